// Package prompt builds the structural parts of model prompts: signature headers,
// nonce-tagged sections and the neutralization of untrusted text.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/shopqa/internal/usecase/signing"
)

// Tag prefixes of the signature header.
const (
	SignatureTag = "[SIGNATURE:"
	TimestampTag = "[TIMESTAMP:"
)

var (
	headerTagPattern = regexp.MustCompile(`(?i)\[\s*(signature|timestamp)\s*:[^\]\n]*\]?`)
	openRun          = regexp.MustCompile(`<{2,}`)
	closeRun         = regexp.MustCompile(`>{2,}`)
)

// Header renders the signature lines appended to a signed template.
func Header(st signing.Stamp) string {
	return fmt.Sprintf("%s%s]\n%s%d]", SignatureTag, st.Tag, TimestampTag, st.Unix())
}

// Signed returns template followed by its signature header.
func Signed(template string, st signing.Stamp) string {
	return template + "\n\n" + Header(st)
}

// Section wraps body in nonce-tagged delimiters. Body must already be neutralized.
func Section(name, nonce, body string) string {
	name = strings.ToUpper(name)
	return fmt.Sprintf("<<<%s id=%s>>>\n%s\n<<<END_%s id=%s>>>", name, nonce, body, name, nonce)
}

// Neutralize makes untrusted text unable to open or close a section or forge a
// signature header: runs of angle brackets collapse to one and header tags are removed.
func Neutralize(s string) string {
	s = headerTagPattern.ReplaceAllString(s, "")
	s = openRun.ReplaceAllString(s, "<")
	s = closeRun.ReplaceAllString(s, ">")
	return s
}

// HasHeaderTag reports whether s contains a signature or timestamp tag.
func HasHeaderTag(s string) bool {
	return headerTagPattern.MatchString(s)
}
