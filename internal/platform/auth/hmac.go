package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	signatureHeader = "x-signature"
	requestIDHeader = "x-request-id"

	defaultSignatureSkew = 5 * time.Minute
	defaultReplayTTL     = 5 * time.Minute
)

// Logger is the minimal logging contract used by the auth middlewares.
type Logger interface {
	Printf(format string, args ...any)
}

// MetricsRecorder records verification outcomes for observability.
type MetricsRecorder interface {
	RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration)
}

// MetricsRecorderFunc adapts a function to MetricsRecorder.
type MetricsRecorderFunc func(context.Context, string, bool, string, time.Duration)

// RecordVerification implements MetricsRecorder.
func (f MetricsRecorderFunc) RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration) {
	if f != nil {
		f(ctx, kind, success, reason, duration)
	}
}

// SecretProvider resolves shared secrets used for signature validation.
type SecretProvider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretProviderFunc adapts a function to the SecretProvider interface.
type SecretProviderFunc func(context.Context, string) (string, error)

// GetSecret implements SecretProvider.
func (f SecretProviderFunc) GetSecret(ctx context.Context, name string) (string, error) {
	if f == nil {
		return "", errors.New("auth: secret provider not configured")
	}
	return f(ctx, name)
}

// ReplayStore tracks gateway request ids so a captured notification cannot be
// replayed inside the signature validity window.
type ReplayStore interface {
	// Remember records the request id if it has not been seen before within
	// the scope. The boolean indicates whether it was stored (true) or
	// already existed (false).
	Remember(ctx context.Context, scope, requestID string, expiry time.Time) (bool, error)
}

// InMemoryReplayStore offers an in-memory registry suitable for tests and
// single-instance deployments.
type InMemoryReplayStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewInMemoryReplayStore constructs the store.
func NewInMemoryReplayStore() *InMemoryReplayStore {
	return &InMemoryReplayStore{seen: make(map[string]time.Time)}
}

// Remember records the request id until the provided expiry, rejecting
// replays until then.
func (s *InMemoryReplayStore) Remember(_ context.Context, scope, requestID string, expiry time.Time) (bool, error) {
	if scope == "" || requestID == "" {
		return false, errors.New("auth: scope and request id are required")
	}

	key := scope + "::" + requestID

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, exp := range s.seen {
		if exp.Before(now) {
			delete(s.seen, k)
		}
	}

	if expiry.Before(now) {
		return false, errors.New("auth: expiry is in the past")
	}

	if existing, ok := s.seen[key]; ok && existing.After(now) {
		return false, nil
	}

	s.seen[key] = expiry
	return true, nil
}

// WebhookSignatureValidator verifies the HMAC signature Mercado Pago attaches
// to webhook deliveries via the x-signature header.
type WebhookSignatureValidator struct {
	provider SecretProvider
	replays  ReplayStore

	logger  Logger
	metrics MetricsRecorder
	now     func() time.Time

	clockSkew time.Duration
	replayTTL time.Duration

	secretCache sync.Map
}

// WebhookSignatureOption customises the validator.
type WebhookSignatureOption func(*WebhookSignatureValidator)

// NewWebhookSignatureValidator builds a validator using the given secret provider.
func NewWebhookSignatureValidator(provider SecretProvider, opts ...WebhookSignatureOption) *WebhookSignatureValidator {
	validator := &WebhookSignatureValidator{
		provider:  provider,
		logger:    log.Default(),
		now:       time.Now,
		clockSkew: defaultSignatureSkew,
		replayTTL: defaultReplayTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(validator)
		}
	}

	return validator
}

// WithSignatureLogger overrides the validator logger.
func WithSignatureLogger(logger Logger) WebhookSignatureOption {
	return func(v *WebhookSignatureValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithSignatureMetrics sets the metrics recorder.
func WithSignatureMetrics(metrics MetricsRecorder) WebhookSignatureOption {
	return func(v *WebhookSignatureValidator) {
		v.metrics = metrics
	}
}

// WithSignatureClock injects a custom clock, primarily for tests.
func WithSignatureClock(now func() time.Time) WebhookSignatureOption {
	return func(v *WebhookSignatureValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithSignatureClockSkew adjusts the accepted timestamp skew.
func WithSignatureClockSkew(d time.Duration) WebhookSignatureOption {
	return func(v *WebhookSignatureValidator) {
		if d > 0 {
			v.clockSkew = d
		}
	}
}

// WithSignatureReplayStore enables replay detection on the gateway request id.
// Without a store duplicate deliveries pass through; the notification
// reconciler is idempotent, so this only hardens the perimeter.
func WithSignatureReplayStore(store ReplayStore) WebhookSignatureOption {
	return func(v *WebhookSignatureValidator) {
		v.replays = store
	}
}

// RequireSignature enforces a valid Mercado Pago x-signature on the request.
func (v *WebhookSignatureValidator) RequireSignature(secretName string) func(http.Handler) http.Handler {
	scopedSecret := strings.TrimSpace(secretName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := v.now()
			ctx := r.Context()

			if scopedSecret == "" {
				v.record(ctx, false, "secret_not_configured", start)
				writeAuthError(w, http.StatusServiceUnavailable, "verification_unavailable", "webhook secret not configured")
				return
			}

			secret, err := v.loadSecret(ctx, scopedSecret)
			if err != nil {
				if v.logger != nil {
					v.logger.Printf("auth: webhook secret lookup failed: %v", err)
				}
				v.record(ctx, false, "secret_unavailable", start)
				writeAuthError(w, http.StatusServiceUnavailable, "verification_unavailable", "webhook secret unavailable")
				return
			}

			ts, signature, err := parseSignatureHeader(r.Header.Get(signatureHeader))
			if err != nil {
				v.record(ctx, false, "signature_missing", start)
				writeAuthError(w, http.StatusUnauthorized, "signature_invalid", "x-signature header missing or malformed")
				return
			}

			timestamp, err := parseSignatureTimestamp(ts)
			if err != nil {
				v.record(ctx, false, "timestamp_invalid", start)
				writeAuthError(w, http.StatusUnauthorized, "timestamp_invalid", "signature timestamp invalid")
				return
			}

			if skew := v.now().Sub(timestamp); skew > v.clockSkew || skew < -v.clockSkew {
				v.record(ctx, false, "timestamp_skew", start)
				writeAuthError(w, http.StatusUnauthorized, "timestamp_skew", "signature timestamp outside allowed window")
				return
			}

			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			manifest := buildSignatureManifest(dataIDFromRequest(r), requestID, ts)

			expected := computeHMAC(secret, []byte(manifest))
			if !hmac.Equal(signature, expected) {
				v.record(ctx, false, "signature_mismatch", start)
				writeAuthError(w, http.StatusUnauthorized, "signature_mismatch", "signature verification failed")
				return
			}

			if v.replays != nil && requestID != "" {
				stored, err := v.replays.Remember(ctx, scopedSecret, requestID, timestamp.Add(v.replayTTL))
				if err != nil {
					if v.logger != nil {
						v.logger.Printf("auth: replay store error: %v", err)
					}
					v.record(ctx, false, "replay_store_error", start)
					writeAuthError(w, http.StatusServiceUnavailable, "verification_unavailable", "replay storage error")
					return
				}
				if !stored {
					v.record(ctx, false, "replay", start)
					writeAuthError(w, http.StatusUnauthorized, "signature_replay", "duplicate webhook delivery")
					return
				}
			}

			v.record(ctx, true, "ok", start)
			next.ServeHTTP(w, r)
		})
	}
}

func (v *WebhookSignatureValidator) record(ctx context.Context, success bool, reason string, start time.Time) {
	if v == nil || v.metrics == nil {
		return
	}
	duration := v.now().Sub(start)
	v.metrics.RecordVerification(ctx, "webhook_signature", success, reason, duration)
}

func (v *WebhookSignatureValidator) loadSecret(ctx context.Context, name string) ([]byte, error) {
	if v == nil || v.provider == nil {
		return nil, errors.New("auth: secret provider not configured")
	}

	if cached, ok := v.secretCache.Load(name); ok {
		if secret, ok := cached.([]byte); ok && len(secret) > 0 {
			return secret, nil
		}
	}

	raw, err := v.provider.GetSecret(ctx, name)
	if err != nil {
		return nil, err
	}

	secret := []byte(raw)
	if len(secret) == 0 {
		return nil, errors.New("auth: secret is empty")
	}

	v.secretCache.Store(name, secret)
	return secret, nil
}

// parseSignatureHeader splits the x-signature header into its ts and v1
// parts. The header value looks like "ts=1704908010,v1=618c8534...".
func parseSignatureHeader(value string) (ts string, signature []byte, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil, errors.New("auth: x-signature header empty")
	}

	var v1 string
	for _, part := range strings.Split(value, ",") {
		key, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(val)
		case "v1":
			v1 = strings.TrimSpace(val)
		}
	}

	if ts == "" || v1 == "" {
		return "", nil, errors.New("auth: x-signature header missing ts or v1")
	}

	signature, err = hex.DecodeString(v1)
	if err != nil {
		return "", nil, errors.New("auth: v1 signature must be hex encoded")
	}
	return ts, signature, nil
}

// parseSignatureTimestamp accepts unix seconds or milliseconds, whichever the
// gateway sends.
func parseSignatureTimestamp(value string) (time.Time, error) {
	epoch, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return time.Time{}, errors.New("auth: signature timestamp must be numeric")
	}
	if epoch > 1_000_000_000_000 {
		return time.UnixMilli(epoch).UTC(), nil
	}
	return time.Unix(epoch, 0).UTC(), nil
}

// buildSignatureManifest assembles the signed template. Sections whose value
// is absent are omitted, and the data id is lowercased, both per the gateway
// contract.
func buildSignatureManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:")
		b.WriteString(strings.ToLower(dataID))
		b.WriteString(";")
	}
	if requestID != "" {
		b.WriteString("request-id:")
		b.WriteString(requestID)
		b.WriteString(";")
	}
	if ts != "" {
		b.WriteString("ts:")
		b.WriteString(ts)
		b.WriteString(";")
	}
	return b.String()
}

func dataIDFromRequest(r *http.Request) string {
	query := r.URL.Query()
	if id := strings.TrimSpace(query.Get("data.id")); id != "" {
		return id
	}
	return strings.TrimSpace(query.Get("id"))
}

func computeHMAC(secret []byte, message []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(message)
	return mac.Sum(nil)
}
