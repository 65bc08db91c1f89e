package response

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

// User-facing messages.
const (
	MsgEmptyQuery   = "Stel een vraag om te beginnen."
	MsgQueryTooLong = "Je vraag is te lang. Maak hem korter en probeer het opnieuw."
	MsgNoResults    = "Ik kon geen relevante informatie vinden over je vraag."
	MsgRateLimited  = "Te veel verzoeken. Probeer het over een moment opnieuw."
	MsgUnavailable  = "De assistent is tijdelijk niet beschikbaar. Probeer het later opnieuw."
	MsgGeneric      = "Er is iets misgegaan bij het verwerken van je vraag."
)

var (
	stackTracePattern = regexp.MustCompile(`(?s)(goroutine \d+ \[.*|panic:.*)`)
	filePathPattern   = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[/\\][\w.\-@]+)+\.\w+(?::\d+)*`)
)

var substringMessages = []struct {
	needle string
	msg    string
}{
	{"empty query", MsgEmptyQuery},
	{"too long", MsgQueryTooLong},
	{"no relevant", MsgNoResults},
	{"rate limit", MsgRateLimited},
	{"too many requests", MsgRateLimited},
	{"timeout", MsgUnavailable},
	{"deadline exceeded", MsgUnavailable},
	{"unavailable", MsgUnavailable},
	{"connection refused", MsgUnavailable},
	{"quota", MsgUnavailable},
}

// SanitizeError maps err to a generic Dutch message. Raw error text never leaves.
func SanitizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrEmptyQuery):
		return MsgEmptyQuery
	case errors.Is(err, domain.ErrQueryTooLong):
		return MsgQueryTooLong
	case errors.Is(err, domain.ErrNoResults):
		return MsgNoResults
	case errors.Is(err, domain.ErrRateLimited):
		return MsgRateLimited
	case errors.Is(err, domain.ErrBackendUnavailable),
		errors.Is(err, domain.ErrMissingCredentials),
		errors.Is(err, domain.ErrInvalidResponse),
		errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, context.DeadlineExceeded):
		return MsgUnavailable
	}
	return SanitizeMessage(err.Error())
}

// SanitizeMessage maps a raw error string to a generic Dutch message by known substrings.
func SanitizeMessage(msg string) string {
	lower := strings.ToLower(StripInternals(msg))
	for _, m := range substringMessages {
		if strings.Contains(lower, m.needle) {
			return m.msg
		}
	}
	if isUserMessage(msg) {
		return msg
	}
	return MsgGeneric
}

// StripInternals removes stack traces and file paths, for logs and warnings.
func StripInternals(msg string) string {
	msg = stackTracePattern.ReplaceAllString(msg, "")
	msg = filePathPattern.ReplaceAllString(msg, "")
	return strings.TrimSpace(msg)
}

func isUserMessage(msg string) bool {
	switch msg {
	case MsgEmptyQuery, MsgQueryTooLong, MsgNoResults, MsgRateLimited, MsgUnavailable, MsgGeneric:
		return true
	}
	return false
}
