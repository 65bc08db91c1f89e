// Package signing makes instruction templates tamper-evident with a timestamped HMAC.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// maxClockSkew tolerates timestamps slightly in the future.
const maxClockSkew = 30 * time.Second

// Sign returns the hex HMAC-SHA256 of "template|unix_ts" under secret.
func Sign(template, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(template))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks tag in constant time and rejects timestamps older than maxAge.
// maxAge <= 0 disables the age check.
func Verify(template, secret string, ts time.Time, tag string, maxAge time.Duration, now time.Time) error {
	got, err := hex.DecodeString(tag)
	if err != nil {
		return fmt.Errorf("%w: malformed tag", domain.ErrSignatureMismatch)
	}
	want, _ := hex.DecodeString(Sign(template, secret, ts))
	if !hmac.Equal(got, want) {
		return domain.ErrSignatureMismatch
	}

	age := now.Sub(ts)
	if age < -maxClockSkew {
		return fmt.Errorf("%w: timestamp in the future", domain.ErrSignatureMismatch)
	}
	if maxAge > 0 && age > maxAge {
		return fmt.Errorf("%w: signature expired after %s", domain.ErrSignatureMismatch, age.Truncate(time.Second))
	}
	return nil
}

// Stamp is a signature issued for one template at one instant.
type Stamp struct {
	Tag       string
	Timestamp time.Time
}

// Unix returns the stamp time in seconds, the form embedded in prompts.
func (s Stamp) Unix() int64 { return s.Timestamp.Unix() }

// Signer binds a secret, an age bound and a clock.
type Signer struct {
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner creates a signer using the wall clock.
func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: secret, maxAge: maxAge, now: time.Now}
}

// Stamp signs template at the current time, truncated to seconds.
func (s *Signer) Stamp(template string) Stamp {
	ts := s.now().Truncate(time.Second)
	return Stamp{Tag: Sign(template, s.secret, ts), Timestamp: ts}
}

// Check verifies st against template at the current time.
func (s *Signer) Check(template string, st Stamp) error {
	return Verify(template, s.secret, st.Timestamp, st.Tag, s.maxAge, s.now())
}
