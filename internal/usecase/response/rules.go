package response

import "regexp"

// Redaction replaces every secret match.
const Redaction = "[REDACTED]"

// SecretRule is one entry of the secret pattern table. Order matters: more specific
// shapes come first so they are counted under their own name.
type SecretRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultSecretRules returns the built-in secret table.
func DefaultSecretRules() []SecretRule {
	return []SecretRule{
		{"private_key", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
		{"anthropic_key", regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{20,}`)},
		{"openai_key", regexp.MustCompile(`\bsk-(proj-)?[A-Za-z0-9_\-]{20,}`)},
		{"huggingface_token", regexp.MustCompile(`\bhf_[A-Za-z0-9]{30,}`)},
		{"github_token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{30,}`)},
		{"aws_access_key", regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`)},
		{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
		{"connection_string", regexp.MustCompile(
			`\b(postgres(ql)?|mysql|mongodb(\+srv)?|rediss?|amqps?)://[^\s"'<>]+`)},
		{"bearer_token", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{16,}=*`)},
		{"credential_assignment", regexp.MustCompile(
			`(?i)\b(password|passwd|pwd|api[_-]?key|secret|token|access[_-]?key)\s*[:=]\s*["']?[^\s"',;]{4,}`)},
	}
}

// internalFields are metadata keys never returned to callers.
var internalFields = map[string]bool{
	"embedding":      true,
	"embeddings":     true,
	"raw_scores":     true,
	"internal_score": true,
	"debug":          true,
	"debug_payload":  true,
	"system_prompt":  true,
	"prompt":         true,
	"signature":      true,
}

// IsInternalField reports whether key is on the internal-field blocklist.
func IsInternalField(key string) bool {
	return internalFields[key]
}
