// Package idempotency implements replay protection for mutating endpoints.
// Clients send an Idempotency-Key header; the first request with a given key
// reserves it, runs the handler, and stores the response. Retries with the
// same key and payload replay the stored response instead of re-executing the
// checkout or webhook side effects.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is how long stored responses remain replayable. MercadoPago
// retries webhooks for up to a day, so records must outlive that window.
const DefaultTTL = 24 * time.Hour

// ErrFingerprintMismatch is returned when an idempotency key is reused with a
// different request payload.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

// Status is the lifecycle state of a stored record.
type Status string

const (
	// StatusPending marks a key that is reserved while its first request is
	// still running.
	StatusPending Status = "pending"
	// StatusCompleted marks a key whose response has been stored and can be
	// replayed.
	StatusCompleted Status = "completed"
)

// ReservationState tells the middleware what to do after a Reserve call.
type ReservationState int

const (
	// ReservationStateNew: the key was free, run the handler.
	ReservationStateNew ReservationState = iota
	// ReservationStateCompleted: replay the stored response.
	ReservationStateCompleted
	// ReservationStatePending: another request holds the key, reject with 409.
	ReservationStatePending
)

// Reservation is the outcome of reserving a key, carrying the stored record
// when one exists.
type Reservation struct {
	State  ReservationState
	Record Record
}

// Record is the persisted response for an idempotency key.
type Record struct {
	Key             string
	Fingerprint     string
	Status          Status
	ResponseStatus  int
	ResponseHeaders map[string][]string
	ResponseBody    []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
}

// Response is the handler output captured for future replays.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists idempotency reservations and responses.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// recordDocID derives the storage identifier for a key. The raw key carries
// caller-provided text, so it is hashed before becoming a document ID.
func recordDocID(key string) string {
	return sha256Hex([]byte(strings.TrimSpace(key)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// skippedHeaders are regenerated per response and never replayed.
var skippedHeaders = map[string]struct{}{
	"Content-Length":      {},
	"Date":                {},
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// storableHeaders copies the response headers worth replaying.
func storableHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}

	filtered := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if _, skip := skippedHeaders[canonical]; skip {
			continue
		}
		filtered[canonical] = cloneValues(values)
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func replayHeaders(values map[string][]string) http.Header {
	header := make(http.Header, len(values))
	for name, vals := range values {
		header[name] = cloneValues(vals)
	}
	return header
}

func cloneValues(values []string) []string {
	copied := make([]string, len(values))
	copy(copied, values)
	return copied
}
