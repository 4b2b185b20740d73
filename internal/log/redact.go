package log

import (
	"log/slog"
	"slices"
	"strings"
)

// Redacted replaces the value of every attribute named in RedactedKeys.
const Redacted = "[REDACTED]"

// RedactedKeys are attribute keys, compared case-insensitively, whose values
// are never written.
var RedactedKeys = []string{
	"password",
	"passphrase",
	"token",
	"access_token",
	"authorization",
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if slices.Contains(RedactedKeys, strings.ToLower(a.Key)) {
		return slog.String(a.Key, Redacted)
	}
	return a
}
