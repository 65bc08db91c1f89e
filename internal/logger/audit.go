package logger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audit logs a security-relevant event at error level and returns its event id.
// Loggers from NewLogger never sample audit events. They carry audit=true for log routing.
func Audit(l *zap.Logger, event string, fields ...zap.Field) string {
	id := uuid.NewString()
	all := make([]zap.Field, 0, len(fields)+3)
	all = append(all,
		zap.Bool("audit", true),
		zap.String("event", event),
		zap.String("event_id", id),
	)
	all = append(all, fields...)
	l.Error(auditMessage, all...)
	return id
}
