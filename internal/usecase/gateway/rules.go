package gateway

import "regexp"

// Finding categories.
const (
	CategoryInstructionOverride = "instruction_override"
	CategoryPromptLeak          = "prompt_leak"
	CategoryRolePlay            = "role_play"
	CategoryDelimiterSmuggling  = "delimiter_smuggling"
	CategorySecretProbing       = "secret_probing"
)

// Rule flags a suspicious input pattern. Patterns run over the lowercased raw input.
type Rule struct {
	Name     string
	Category string
	Pattern  *regexp.Regexp
}

// DefaultRules returns the Dutch and English attack table.
func DefaultRules() []Rule {
	return []Rule{
		{"ignore_previous", CategoryInstructionOverride, regexp.MustCompile(
			`(ignore|disregard|forget|negeer|vergeet)\s+(all\s+|alle\s+)?(previous|prior|above|earlier|vorige|eerdere|voorgaande|bovenstaande)?\s*(instructions?|rules|prompts?|instructies|regels)`)},
		{"new_instructions", CategoryInstructionOverride, regexp.MustCompile(
			`(new|nieuwe)\s+(instructions?|instructies)\s*:|from now on|vanaf nu`)},
		{"show_prompt", CategoryPromptLeak, regexp.MustCompile(
			`(show|reveal|print|repeat|output|toon|laat .{0,20}zien|herhaal|geef)\s+.{0,30}(system\s*prompt|systeemprompt|instructions|instructies|prompt)`)},
		{"prompt_reference", CategoryPromptLeak, regexp.MustCompile(
			`system\s*prompt|systeeminstructies|initial instructions`)},
		{"role_switch", CategoryRolePlay, regexp.MustCompile(
			`you are now|act as|pretend (to be|you are)|je bent nu|doe alsof|speel de rol|roleplay|\bdan mode\b|jailbreak`)},
		{"role_token", CategoryRolePlay, regexp.MustCompile(
			`(^|\n)\s*(system|assistant|user)\s*:|<\|?(system|im_start|im_end)\|?>`)},
		{"section_marker", CategoryDelimiterSmuggling, regexp.MustCompile(
			`<{3}|>{3}|\[(signature|timestamp):|end_(context|question|history)`)},
		{"markdown_header", CategoryDelimiterSmuggling, regexp.MustCompile(
			`(^|\n)\s*#{2,}\s*(system|instructions|regels|rules|systeeminstructies)`)},
		{"credential_probe", CategorySecretProbing, regexp.MustCompile(
			`(api[\s_-]?key|secret|password|wachtwoord|token|credentials?|signing[\s_-]?secret|env(ironment)? variables?)`)},
	}
}
