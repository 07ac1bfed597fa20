//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	pconfig "github.com/rastuci/api/internal/platform/config"
	pfirestore "github.com/rastuci/api/internal/platform/firestore"
)

const emulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

type productDoc struct {
	Name  string `firestore:"name"`
	Stock int    `firestore:"stock"`
}

func TestProviderAndRepositoryIntegration(t *testing.T) {
	endpoint := startEmulator(t)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "rastuci-test",
		EmulatorHost: endpoint,
	})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := provider.Client(ctx)
	if err != nil {
		t.Fatalf("expected firestore client, got error: %v", err)
	}
	if client == nil {
		t.Fatalf("provider returned nil client")
	}

	repo := pfirestore.NewBaseRepository[productDoc](provider, "products")

	t.Run("set and get", func(t *testing.T) {
		if _, err := repo.Set(ctx, "prod_001", productDoc{Name: "Yerbera Stanley", Stock: 12}); err != nil {
			t.Fatalf("set failed: %v", err)
		}

		doc, err := repo.Get(ctx, "prod_001")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if doc.ID != "prod_001" {
			t.Fatalf("expected id prod_001, got %s", doc.ID)
		}
		if doc.Data.Name != "Yerbera Stanley" || doc.Data.Stock != 12 {
			t.Fatalf("unexpected data: %#v", doc.Data)
		}
		if doc.UpdateTime.IsZero() {
			t.Fatalf("expected update time to be set")
		}
	})

	t.Run("update stock field", func(t *testing.T) {
		if _, err := repo.Update(ctx, "prod_001", []firestore.Update{{Path: "stock", Value: 11}}); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		doc, err := repo.Get(ctx, "prod_001")
		if err != nil {
			t.Fatalf("get after update failed: %v", err)
		}
		if doc.Data.Stock != 11 {
			t.Fatalf("expected stock=11, got %d", doc.Data.Stock)
		}
	})

	t.Run("query collection", func(t *testing.T) {
		docs, err := repo.Query(ctx, nil)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("expected 1 document, got %d", len(docs))
		}
	})

	t.Run("missing document classified not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		if err == nil {
			t.Fatalf("expected not found error")
		}
		type repoClassifier interface{ IsNotFound() bool }
		var cls repoClassifier
		if !errors.As(err, &cls) {
			t.Fatalf("expected repository error, got %v", err)
		}
		if !cls.IsNotFound() {
			t.Fatalf("expected not found classification")
		}
	})

	t.Run("transactional decrement", func(t *testing.T) {
		err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			ref, err := repo.DocumentRef(ctx, "prod_001")
			if err != nil {
				return err
			}
			snap, err := tx.Get(ref)
			if err != nil {
				return err
			}
			var entity productDoc
			if err := snap.DataTo(&entity); err != nil {
				return err
			}
			entity.Stock--
			return tx.Set(ref, entity)
		})
		if err != nil {
			t.Fatalf("transaction failed: %v", err)
		}

		doc, err := repo.Get(ctx, "prod_001")
		if err != nil {
			t.Fatalf("get after transaction failed: %v", err)
		}
		if doc.Data.Stock != 10 {
			t.Fatalf("expected stock=10 after txn, got %d", doc.Data.Stock)
		}
	})

	t.Run("cancelled context surfaces", func(t *testing.T) {
		cancelled, cancelTxn := context.WithCancel(context.Background())
		cancelTxn()
		err := provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error {
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled error, got %v", err)
		}
	})
}

// startEmulator launches the Firestore emulator in docker, waits for it to
// accept connections, and registers teardown. Skips when docker is missing.
func startEmulator(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	infoCtx, cancelInfo := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelInfo()
	if err := exec.CommandContext(infoCtx, "docker", "info").Run(); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)

	out, err := exec.Command("docker",
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		emulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	containerID := strings.TrimSpace(string(out))
	if containerID == "" {
		t.Fatalf("docker returned empty container id")
	}
	t.Cleanup(func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelStop()
		_ = exec.CommandContext(stopCtx, "docker", "stop", containerID).Run()
	})

	deadline := time.Now().Add(30 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return endpoint
		}
		lastErr = err
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("emulator did not become ready: %v", lastErr)
	return ""
}
