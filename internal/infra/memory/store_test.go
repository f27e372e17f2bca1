package memory

import (
	"context"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := store.Save(ctx, "k1", payload{Name: "a", Count: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out payload
	ok, err := store.Load(ctx, "k1", &out)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if out.Name != "a" || out.Count != 2 {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestLoadMissingKeyReportsAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	out := "untouched"
	ok, err := store.Load(ctx, "missing", &out)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected absent key")
	}
	if out != "untouched" {
		t.Fatalf("absent load must not touch out, got %q", out)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Save(ctx, "k1", 1)
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var out int
	if ok, _ := store.Load(ctx, "k1", &out); ok {
		t.Fatalf("expected key removed")
	}
	// Deleting again is fine.
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
