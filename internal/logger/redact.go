package logger

import "regexp"

const RedactedText = "[REDACTED]"

var (
	// Authorization: Bearer <token>
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`)

	// key=..., api_key=..., apikey=... in query strings and messages
	apiKeyPattern = regexp.MustCompile(`(?i)\b(api[_-]?key|apikey|key)=[^&\s"']+`)

	// provider keys that leak into error messages verbatim
	providerKeyPattern = regexp.MustCompile(`\b(sk-[A-Za-z0-9_-]{16,}|AIza[0-9A-Za-z_-]{30,})`)
)

// Redact strips credentials from s. Use it before logging anything that came
// back from the LLM provider.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = providerKeyPattern.ReplaceAllString(s, RedactedText)
	return s
}
