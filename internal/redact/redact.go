// Package redact removes connection credentials from strings before they are
// logged or printed. Backend errors and configuration dumps can carry a
// database URL or a Redis password; these helpers scrub them.
package redact

import (
	"regexp"
	"strings"
)

// Placeholders substituted for redacted values.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
)

var (
	// userinfo in postgres:// and redis:// style URLs.
	urlCredentialRegex = regexp.MustCompile(`(?i)\b((?:postgres(?:ql)?|rediss?)://)[^/@\s]+@`)

	// password=... in keyword/value DSNs and query strings.
	passwordRegex = regexp.MustCompile(`(?i)\b(password|passwd|pwd)=('[^']*'|[^\s&]+)`)
)

// String redacts credentials from input.
func String(input string) string {
	if input == "" {
		return input
	}

	result := urlCredentialRegex.ReplaceAllString(input, "${1}"+RedactedCredentialPlaceholder+"@")
	result = passwordRegex.ReplaceAllString(result, "${1}="+RedactedCredentialPlaceholder)
	return result
}

// Error redacts credentials from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Secrets redacts input and additionally replaces every occurrence of the
// given literal secrets. Empty secrets are ignored.
func Secrets(input string, secrets ...string) string {
	result := String(input)
	for _, secret := range secrets {
		if secret != "" {
			result = strings.ReplaceAll(result, secret, RedactionPlaceholder)
		}
	}
	return result
}
