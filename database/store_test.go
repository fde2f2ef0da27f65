package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// store is the surface every backend implements.
type store interface {
	Create(ctx context.Context, language string) (*Document, error)
	Get(ctx context.Context, id string) (*Document, error)
	Update(ctx context.Context, id, code, language string) (*Document, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Hour)
}

func backends(t *testing.T) map[string]store {
	t.Helper()
	out := map[string]store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  newRedisTestStore(t),
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		pool, err := ConnectPostgres(context.Background(), url)
		if err != nil {
			t.Fatalf("ConnectPostgres: %v", err)
		}
		t.Cleanup(pool.Close)
		out["postgres"] = NewPostgresStore(pool, time.Hour)
	}
	return out
}

func TestStoreCreateGetUpdate(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			doc, err := s.Create(ctx, "go")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if doc.ID == "" || doc.Language != "go" || doc.Code != "" {
				t.Fatalf("Create returned %+v", doc)
			}
			if !doc.ExpiresAt.After(doc.CreatedAt) {
				t.Errorf("ExpiresAt %v not after CreatedAt %v", doc.ExpiresAt, doc.CreatedAt)
			}

			updated, err := s.Update(ctx, doc.ID, "package main", "")
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if updated.Code != "package main" || updated.Language != "go" {
				t.Errorf("Update returned %+v", updated)
			}

			if _, err := s.Update(ctx, doc.ID, "package main", "python"); err != nil {
				t.Fatalf("Update language: %v", err)
			}
			got, err := s.Get(ctx, doc.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Code != "package main" || got.Language != "python" {
				t.Errorf("Get returned %+v", got)
			}
			if got.ExpiresAt.UnixMilli() != doc.ExpiresAt.UnixMilli() {
				t.Errorf("ExpiresAt changed from %v to %v", doc.ExpiresAt, got.ExpiresAt)
			}
		})
	}
}

func TestStoreMissingDocument(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get: err = %v, want ErrNotFound", err)
			}
			if _, err := s.Update(ctx, "missing", "x", ""); !errors.Is(err, ErrNotFound) {
				t.Errorf("Update: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreDeleteExpired(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc, err := s.Create(ctx, "go")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}

			n, err := s.DeleteExpired(ctx, doc.CreatedAt)
			if err != nil {
				t.Fatalf("DeleteExpired: %v", err)
			}
			if n != 0 {
				t.Errorf("deleted %d live documents", n)
			}

			n, err = s.DeleteExpired(ctx, doc.ExpiresAt.Add(time.Second))
			if err != nil {
				t.Fatalf("DeleteExpired: %v", err)
			}
			if n < 1 {
				t.Errorf("deleted %d documents, want at least 1", n)
			}
			if _, err := s.Get(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after sweep: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDocumentExpired(t *testing.T) {
	exp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := &Document{ExpiresAt: exp}
	if d.Expired(exp) {
		t.Error("document expired exactly at its expiry time")
	}
	if !d.Expired(exp.Add(time.Millisecond)) {
		t.Error("document not expired after its expiry time")
	}
}

func TestRedisStoreClockDrivesExpiry(t *testing.T) {
	s := newRedisTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	doc, err := s.Create(context.Background(), "go")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !doc.ExpiresAt.Equal(base.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", doc.ExpiresAt, base.Add(time.Hour))
	}
}
