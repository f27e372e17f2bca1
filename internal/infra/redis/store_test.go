package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	type payload struct {
		Title string `json:"title"`
	}

	if err := store.Save(ctx, "quiz-app-current-quiz", payload{Title: "Sample"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out payload
	ok, err := store.Load(ctx, "quiz-app-current-quiz", &out)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if out.Title != "Sample" {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestLoadMissingKeyReportsAbsent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var out map[string]any
	ok, err := store.Load(ctx, "missing", &out)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected absent key")
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Save(ctx, "k1", 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var out int
	if ok, _ := store.Load(ctx, "k1", &out); ok {
		t.Fatalf("expected key removed")
	}
}
