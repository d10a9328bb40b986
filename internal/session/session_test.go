package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"platebook/pkg/domain"
)

func newRedisTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisTestStore(t, time.Hour)
	ctx := context.Background()

	id := NewID()
	want := Session{Token: "jwt123", User: domain.User{ID: "u1", Username: "admin"}}
	if err := store.Save(ctx, id, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := store.Get(ctx, id)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.Token != want.Token || got.User.Username != want.User.Username {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := store.Get(ctx, id); found {
		t.Error("session still present after delete")
	}
}

func TestRedisStoreMissingSession(t *testing.T) {
	store, _ := newRedisTestStore(t, time.Hour)
	_, found, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Error("found a session that was never saved")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", Session{Token: "t"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, found, _ := store.Get(ctx, "s1"); found {
		t.Error("session survived past its TTL")
	}
}

func TestRedisStoreSlidingTTL(t *testing.T) {
	store, mr := newRedisTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", Session{Token: "t"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Reads within the window keep the session alive.
	for i := 0; i < 3; i++ {
		mr.FastForward(40 * time.Second)
		if _, found, _ := store.Get(ctx, "s1"); !found {
			t.Fatalf("session expired despite activity (read %d)", i)
		}
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, "s1", Session{Token: "t"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, found, _ := store.Get(ctx, "s1"); !found {
		t.Fatal("fresh session not found")
	}
	now = now.Add(2 * time.Minute)
	if _, found, _ := store.Get(ctx, "s1"); found {
		t.Error("session survived past its TTL")
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	if TokenExpired(signedToken(t, now.Add(time.Hour)), now) {
		t.Error("future-dated token reported expired")
	}
	if !TokenExpired(signedToken(t, now.Add(-time.Hour)), now) {
		t.Error("past-dated token not reported expired")
	}
	// Opaque tokens cannot be checked client-side and must pass through.
	if TokenExpired("not-a-jwt", now) {
		t.Error("opaque token reported expired")
	}
	if TokenExpired("", now) {
		t.Error("empty token reported expired")
	}
}
