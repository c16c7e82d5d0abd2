package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := setupTestRedis(t)
	runStoreContract(t, store)
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("://nope"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestRedisRefreshExpires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefresh(ctx, "short", Data{UserID: "usr_1"}, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("SaveRefresh() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.ConsumeRefresh(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ConsumeRefresh() error = %v, want ErrNotFound", err)
	}
}

func TestRedisRevokedAccessExpires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := store.RevokeAccess(ctx, "jti_1", time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("revoked:jti_1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("revoked key ttl = %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	revoked, err := store.IsAccessRevoked(ctx, "jti_1")
	if err != nil {
		t.Fatal(err)
	}
	if revoked {
		t.Fatal("revocation should lapse with the token")
	}
}

func TestRedisKeysAreHashes(t *testing.T) {
	store, mr := setupTestRedis(t)
	if err := store.SaveRefresh(context.Background(), "abc123", Data{UserID: "usr_1"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("refresh:abc123") {
		t.Fatalf("keys = %v", mr.Keys())
	}
}

func TestRedisPingAfterServerClose(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping() to fail once redis is gone")
	}
}
