package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/rastuci/api/internal/domain"
)

func mustCollect(t *testing.T, checks []DependencyCheck, opts ...DependencyHealthOption) domain.SystemHealthReport {
	t.Helper()

	repo, err := NewDependencyHealthRepository(checks, opts...)
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}
	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return report
}

func slowCheck(delay time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestDependencyHealthRepositoryCollectSuccess(t *testing.T) {
	now := time.Date(2026, time.March, 6, 12, 0, 0, 0, time.UTC)

	report := mustCollect(t, []DependencyCheck{
		{Name: "firestore", Check: slowCheck(10 * time.Millisecond)},
		{Name: "secretManager", Check: func(context.Context) error { return nil }},
	}, WithDependencyClock(func() time.Time { return now }))

	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(report.Checks))
	}
	for name, check := range report.Checks {
		if check.Status != domain.HealthStatusOK {
			t.Fatalf("expected check %s to be ok, got %s", name, check.Status)
		}
		if check.CheckedAt != now {
			t.Fatalf("expected check %s checkedAt %s, got %s", name, now, check.CheckedAt)
		}
	}
	if report.GeneratedAt != now {
		t.Fatalf("expected generatedAt %s, got %s", now, report.GeneratedAt)
	}
}

func TestDependencyHealthRepositoryCollectDegraded(t *testing.T) {
	expectedErr := errors.New("boom")

	report := mustCollect(t, []DependencyCheck{
		{Name: "firestore", Check: func(context.Context) error { return expectedErr }},
		{Name: "pubsub", Check: func(context.Context) error { return nil }},
	})

	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected status degraded, got %s", report.Status)
	}
	check := report.Checks["firestore"]
	if check.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected firestore status degraded, got %s", check.Status)
	}
	if check.Error != expectedErr.Error() {
		t.Fatalf("expected error %q, got %q", expectedErr.Error(), check.Error)
	}
}

func TestDependencyHealthRepositoryCollectTimeout(t *testing.T) {
	report := mustCollect(t, []DependencyCheck{
		{Name: "secretManager", Timeout: 5 * time.Millisecond, Check: slowCheck(20 * time.Millisecond)},
	})

	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected status error, got %s", report.Status)
	}
	check := report.Checks["secretManager"]
	if check.Status != domain.HealthStatusError {
		t.Fatalf("expected secretManager status error, got %s", check.Status)
	}
	if check.Detail != "timeout" {
		t.Fatalf("expected detail timeout, got %s", check.Detail)
	}
}

func TestNewDependencyHealthRepositoryValidatesChecks(t *testing.T) {
	noop := func(context.Context) error { return nil }

	cases := []struct {
		name   string
		checks []DependencyCheck
	}{
		{name: "empty set", checks: nil},
		{name: "blank name", checks: []DependencyCheck{{Name: "  ", Check: noop}}},
		{name: "missing func", checks: []DependencyCheck{{Name: "firestore"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewDependencyHealthRepository(tc.checks); err == nil {
				t.Fatalf("expected constructor error")
			}
		})
	}
}
