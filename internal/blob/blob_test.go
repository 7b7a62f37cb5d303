package blob_test

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"clinic-scheduler/internal/blob"
)

// exercise runs the Store contract against any driver.
func exercise(t *testing.T, s blob.Store, key string) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := s.Get(ctx, key); err != nil || found {
		t.Fatalf("absent key: found=%v err=%v", found, err)
	}

	if err := s.Set(ctx, key, `[{"id":"a"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := s.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("get after set: found=%v err=%v", found, err)
	}
	if v != `[{"id":"a"}]` {
		t.Errorf("value: got %q", v)
	}

	// overwrite replaces the whole value
	if err := s.Set(ctx, key, `[]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _, _ := s.Get(ctx, key); v != `[]` {
		t.Errorf("after overwrite: got %q", v)
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, found, _ := s.Get(ctx, key); found {
		t.Error("key still present after remove")
	}

	// removing an absent key is not an error
	if err := s.Remove(ctx, key); err != nil {
		t.Errorf("remove absent: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, blob.NewMemory(), "@test:memory")
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := blob.NewMemory().Get(ctx, "k"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	exercise(t, blob.NewRedis(client), "@test:redis")
}

func TestDialRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := blob.DialRedis(context.Background(), addr, ""); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestPostgres(t *testing.T) {
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)

	migration, err := os.ReadFile("../../db/migrations/001_init.sql")
	if err != nil {
		t.Fatalf("migration: %v", err)
	}
	if _, err := pool.Exec(context.Background(), string(migration)); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	exercise(t, blob.NewPostgres(pool), "@test:postgres")
}
