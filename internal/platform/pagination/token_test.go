package pagination

import (
	"errors"
	"testing"
	"time"
)

type testCursor struct {
	ID        string
	CreatedAt time.Time
}

func TestEncodeDecodeTokenRoundTrip(t *testing.T) {
	created := time.Date(2026, time.March, 6, 15, 0, 0, 0, time.UTC)
	token, err := EncodeToken(testCursor{ID: "ord_123", CreatedAt: created})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	var decoded testCursor
	if err := DecodeToken(token, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "ord_123" {
		t.Fatalf("unexpected id %q", decoded.ID)
	}
	if !decoded.CreatedAt.Equal(created) {
		t.Fatalf("unexpected createdAt %s", decoded.CreatedAt)
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	var decoded testCursor
	if err := DecodeToken("not-base64!!!", &decoded); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
	if err := DecodeToken("   ", &decoded); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken for blank token, got %v", err)
	}
}

func TestClampPageSize(t *testing.T) {
	cases := []struct {
		name      string
		requested int
		fallback  int
		max       int
		want      int
	}{
		{"defaults when omitted", 0, 50, 200, 50},
		{"negative uses fallback", -5, 25, 100, 25},
		{"within bounds", 40, 50, 200, 40},
		{"capped at max", 500, 50, 200, 200},
		{"zero bounds use package defaults", 0, 0, 0, DefaultPageSize},
		{"fallback clamped to max", 0, 500, 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampPageSize(tc.requested, tc.fallback, tc.max); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}
