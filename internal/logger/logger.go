package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName  = "shopqa"
	auditMessage = "Security audit event"
)

// NewLogger creates a zap logger for the given environment.
// prod writes sampled JSON, every other env writes colored console output.
// levelOverride (if non-empty) overrides the log level: debug, info, warn, error.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	var cfg zap.Config
	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
		opts = append(opts, zap.Fields(zap.String("service", serviceName)))
	case "local", "dev", "docker", "test":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		level, err := zapcore.ParseLevel(levelOverride[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	// zap would sample inside Build; sample here instead so Audit can bypass it.
	if sampling := cfg.Sampling; sampling != nil {
		cfg.Sampling = nil
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return withAuditBypass(core, sampling)
		}))
	}

	l, err := cfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func withAuditBypass(core zapcore.Core, sampling *zap.SamplingConfig) zapcore.Core {
	return &auditBypass{
		Core:    core,
		sampled: zapcore.NewSamplerWithOptions(core, time.Second, sampling.Initial, sampling.Thereafter),
	}
}

// auditBypass samples every entry except audit events, which go to the raw core.
type auditBypass struct {
	zapcore.Core
	sampled zapcore.Core
}

func (c *auditBypass) With(fields []zapcore.Field) zapcore.Core {
	return &auditBypass{Core: c.Core.With(fields), sampled: c.sampled.With(fields)}
}

func (c *auditBypass) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Message == auditMessage {
		return c.Core.Check(ent, ce)
	}
	return c.sampled.Check(ent, ce)
}
