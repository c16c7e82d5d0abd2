package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	expires := time.Now().Add(24 * time.Hour)

	t.Run("save and consume", func(t *testing.T) {
		data := Data{UserID: "usr_1", Name: "Avery", Role: "editor"}
		if err := store.SaveRefresh(ctx, "hash-1", data, expires); err != nil {
			t.Fatalf("SaveRefresh() error = %v", err)
		}
		got, err := store.ConsumeRefresh(ctx, "hash-1")
		if err != nil {
			t.Fatalf("ConsumeRefresh() error = %v", err)
		}
		if got.UserID != "usr_1" || got.Name != "Avery" || got.Role != "editor" || got.CreatedAt.IsZero() {
			t.Fatalf("ConsumeRefresh() = %+v", got)
		}
		if _, err := store.ConsumeRefresh(ctx, "hash-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second ConsumeRefresh() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if _, err := store.ConsumeRefresh(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("ConsumeRefresh() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("revoke refresh", func(t *testing.T) {
		if err := store.SaveRefresh(ctx, "hash-2", Data{UserID: "usr_2"}, expires); err != nil {
			t.Fatal(err)
		}
		if err := store.SaveRefresh(ctx, "hash-3", Data{UserID: "usr_3"}, expires); err != nil {
			t.Fatal(err)
		}
		if err := store.RevokeRefresh(ctx, "hash-2"); err != nil {
			t.Fatalf("RevokeRefresh() error = %v", err)
		}
		if err := store.RevokeRefresh(ctx, "never-saved"); err != nil {
			t.Fatalf("RevokeRefresh() unknown error = %v", err)
		}
		if _, err := store.ConsumeRefresh(ctx, "hash-2"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("revoked token still valid: %v", err)
		}
		got, err := store.ConsumeRefresh(ctx, "hash-3")
		if err != nil || got.UserID != "usr_3" {
			t.Fatalf("other session affected: %+v, %v", got, err)
		}
	})

	t.Run("revoke access", func(t *testing.T) {
		if err := store.RevokeAccess(ctx, "jti-live", time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("RevokeAccess() error = %v", err)
		}
		if err := store.RevokeAccess(ctx, "jti-dead", time.Now().Add(-time.Hour)); err != nil {
			t.Fatalf("RevokeAccess() past expiry error = %v", err)
		}
		for jti, want := range map[string]bool{"jti-live": true, "jti-dead": false, "jti-other": false} {
			got, err := store.IsAccessRevoked(ctx, jti)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("IsAccessRevoked(%q) = %v, want %v", jti, got, want)
			}
		}
	})

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
