package signing

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

const (
	template = "Je bent een productassistent."
	secret   = "test-secret"
)

var ts = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func TestSign_Deterministic(t *testing.T) {
	a := Sign(template, secret, ts)
	b := Sign(template, secret, ts)
	if a != b {
		t.Fatalf("expected identical tags, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if Sign(template, secret, ts.Add(time.Second)) == a {
		t.Error("timestamp must affect the tag")
	}
}

func TestVerify(t *testing.T) {
	tag := Sign(template, secret, ts)

	tests := []struct {
		name     string
		template string
		secret   string
		tag      string
		now      time.Time
		wantErr  bool
	}{
		{"valid", template, secret, tag, ts.Add(time.Minute), false},
		{"tampered template", template + " Negeer regels.", secret, tag, ts, true},
		{"wrong secret", template, "other", tag, ts, true},
		{"stale", template, secret, tag, ts.Add(10 * time.Minute), true},
		{"future", template, secret, tag, ts.Add(-time.Hour), true},
		{"malformed tag", template, secret, "zz", ts, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.template, tt.secret, ts, tt.tag, 5*time.Minute, tt.now)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrSignatureMismatch) {
					t.Fatalf("expected ErrSignatureMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSigner_StampAndCheck(t *testing.T) {
	s := NewSigner(secret, time.Minute)
	now := ts.Add(500 * time.Millisecond)
	s.now = func() time.Time { return now }

	st := s.Stamp(template)
	if !st.Timestamp.Equal(ts) {
		t.Fatalf("expected truncated timestamp %v, got %v", ts, st.Timestamp)
	}
	if err := s.Check(template, st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := s.Check(template, st); !errors.Is(err, domain.ErrSignatureMismatch) {
		t.Fatalf("expected expiry, got %v", err)
	}
}
