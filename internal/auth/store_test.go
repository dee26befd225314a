package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func testCreds() *Credentials {
	return &Credentials{
		Email:     "user@example.com",
		Token:     "tok-1",
		AccountID: 1234,
		ClientID:  5678,
		Tier:      "u011",
		UniqueID:  "uid-1",
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	store := NewStore(path)

	if err := store.Save(testCreds()); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions: got %o, want 600", perm)
	}

	got := store.Load()
	if got == nil {
		t.Fatal("load: got nil, want credentials")
	}
	want := testCreds()
	if *got != *want {
		t.Errorf("load: got %+v, want %+v", got, want)
	}
}

func TestStoreLoadAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	if got := store.Load(); got != nil {
		t.Errorf("load: got %+v, want nil", got)
	}
}

func TestStoreLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if got := NewStore(path).Load(); got != nil {
		t.Errorf("load: got %+v, want nil for malformed cache", got)
	}
}

func TestStoreSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "creds.json")
	store := NewStore(path)

	if err := store.Save(testCreds()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.Load() == nil {
		t.Fatal("load after save: got nil")
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	store := NewStore(path)

	if err := store.Save(testCreds()); err != nil {
		t.Fatal(err)
	}

	// Token invalidation rewrites the file in place, token cleared but
	// identity intact.
	updated := testCreds()
	updated.Token = ""
	if err := store.Save(updated); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got := store.Load()
	if got == nil {
		t.Fatal("load: got nil")
	}
	if got.Token != "" {
		t.Errorf("token: got %q, want empty", got.Token)
	}
	if got.UniqueID != "uid-1" {
		t.Errorf("unique id: got %q, want uid-1", got.UniqueID)
	}
}
