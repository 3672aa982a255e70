package localstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	in := record{Name: "draft", Count: 3}
	if err := store.Put("wizard/draft-1", in); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out record
	if err := store.Get("wizard/draft-1", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestStoreMissingKey(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var out record
	if err := store.Get("cart/nobody", &out); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStoreCorruptValueDegradesToNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "wizard__draft-x.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	var out record
	if err := store.Get("wizard/draft-x", &out); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for corrupt value, got %v", err)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Put("cart/u1", record{Name: "cart"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete("cart/u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete("cart/u1"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestStoreKeysFiltersByPrefix(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, key := range []string{"cart/u1", "cart/u2", "wizard/d1"} {
		if err := store.Put(key, record{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	keys, err := store.Keys("cart/")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "cart/u1" || keys[1] != "cart/u2" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, key := range []string{"", "a b", "../escape", "double__underscore", "/lead", "trail/"} {
		if err := store.Put(key, record{}); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", key, err)
		}
	}
}
