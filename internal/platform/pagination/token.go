// Package pagination provides the cursor-token codec shared by the Firestore
// repositories. Tokens are opaque to clients: a JSON-encoded cursor payload
// wrapped in URL-safe base64 without padding.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits page_size.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the supported page_size to prevent unbounded queries.
	DefaultMaxPageSize = 200
)

// ErrInvalidPageToken signals a token that was not produced by EncodeToken.
var ErrInvalidPageToken = errors.New("pagination: invalid page token")

// EncodeToken serialises the provided cursor payload into an opaque page token.
// The payload is repository-specific; any JSON-marshalable struct works.
func EncodeToken(cursor any) (string, error) {
	data, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("pagination: encode token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeToken parses a page token produced by EncodeToken into cursor, which
// must be a pointer to the repository's cursor payload type.
func DecodeToken(token string, cursor any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidPageToken)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	if err := json.Unmarshal(decoded, cursor); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	return nil
}

// ClampPageSize normalises a requested page size against the given bounds.
// Non-positive bounds fall back to the package defaults.
func ClampPageSize(requested, fallback, max int) int {
	if max <= 0 {
		max = DefaultMaxPageSize
	}
	if fallback <= 0 {
		fallback = DefaultPageSize
	}
	if fallback > max {
		fallback = max
	}
	if requested <= 0 {
		return fallback
	}
	if requested > max {
		return max
	}
	return requested
}
