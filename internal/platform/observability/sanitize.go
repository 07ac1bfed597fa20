package observability

import (
	"strings"
	"unicode"
)

// Field length caps keep hostile header or path values from bloating log
// entries.
const (
	routeLimit  = 180
	methodLimit = 10
	userIDLimit = 64
)

// SanitizeRoute strips control characters from a route pattern before it is
// logged or attached to a span.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, routeLimit)
}

// SanitizeMethod strips control characters from an HTTP method.
func SanitizeMethod(method string) string {
	return sanitizeString(method, methodLimit)
}

// SanitizeUserID caps identifiers so a forged UID cannot smuggle payloads
// into log pipelines.
func SanitizeUserID(uid string) string {
	if uid == "" {
		return ""
	}
	return sanitizeString(uid, userIDLimit)
}

// sanitizeString drops control characters (except whitespace escapes zap
// already encodes) and truncates to limit runes.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)

	runes := []rune(cleaned)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}
