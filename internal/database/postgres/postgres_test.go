//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/records"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestRecordStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := pool.Records()

	t.Run("EmptyLoad", func(t *testing.T) {
		snap, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Failed to load records: %v", err)
		}
		if snap.Len() != 0 {
			t.Errorf("Expected 0 records, got %d", snap.Len())
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		snap := records.NewSnapshot()
		for i := range 3 {
			embedding := make([]float32, 128)
			for j := range embedding {
				embedding[j] = float32(i*128+j) / 512.0
			}
			snap.Append(embedding, fmt.Sprintf("person-%d", i%2), fmt.Sprintf("img%d.jpg", i))
		}

		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("Failed to save records: %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Failed to load records: %v", err)
		}
		if got.Len() != 3 {
			t.Fatalf("Expected 3 records, got %d", got.Len())
		}
		for i := range 3 {
			if got.IDs[i] != snap.IDs[i] || got.Filenames[i] != snap.Filenames[i] {
				t.Errorf("Record %d: expected (%s, %s), got (%s, %s)",
					i, snap.IDs[i], snap.Filenames[i], got.IDs[i], got.Filenames[i])
			}
			for j := range snap.Embeddings[i] {
				if got.Embeddings[i][j] != snap.Embeddings[i][j] {
					t.Fatalf("Record %d: embedding differs at %d", i, j)
				}
			}
		}
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		snap := records.NewSnapshot()
		snap.Append([]float32{1, 2, 3}, "solo", "solo.jpg")
		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("Failed to save records: %v", err)
		}

		n, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count records: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 record after replace, got %d", n)
		}
	})

	t.Run("MigrationsRecorded", func(t *testing.T) {
		versions, err := pool.MigrationsApplied(ctx)
		if err != nil {
			t.Fatalf("Failed to list migrations: %v", err)
		}
		if len(versions) == 0 || versions[0] != "001_face_records.sql" {
			t.Errorf("Unexpected migrations: %v", versions)
		}

		// Running again is a no-op.
		if err := pool.Migrate(ctx); err != nil {
			t.Errorf("Second migrate failed: %v", err)
		}
	})
}
