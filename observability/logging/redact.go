package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the canonical placeholder substituted for credential-like
// log values.
const RedactedValue = "[REDACTED]"

var sensitiveKeyFragments = []string{
	"secret",
	"token",
	"password",
	"passphrase",
	"mnemonic",
	"seed",
	"private",
	"apikey",
	"api_key",
}

// IsSensitiveKey reports whether a log attribute key looks like it carries
// credential material and must not reach the log pipeline in the clear.
func IsSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

// Redact masks the attribute value when its key is sensitive. The key itself
// is preserved so operators can still see that the field was present.
func Redact(attr slog.Attr) slog.Attr {
	if !IsSensitiveKey(attr.Key) {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
