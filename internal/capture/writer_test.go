package capture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

func TestWriterTimestampedPath(t *testing.T) {
	w := &Writer{Root: t.TempDir()}
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	path, err := w.Write("Front Door", ts, []byte("jpeg"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	want := filepath.Join(w.Root, "Front Door", "20260314_150926.jpg")
	if path != want {
		t.Errorf("path: got %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "jpeg" {
		t.Errorf("content: got %q", data)
	}
}

func TestWriterRejectsEmptyFrame(t *testing.T) {
	root := t.TempDir()
	w := &Writer{Root: root}

	if _, err := w.Write("Front Door", time.Now(), nil); err == nil {
		t.Fatal("write: got nil, want error for empty frame")
	}

	// A rejected frame must not leave a camera directory behind.
	if _, err := os.Stat(filepath.Join(root, "Front Door")); !os.IsNotExist(err) {
		t.Errorf("camera directory created for rejected frame: %v", err)
	}
}

func TestWriterNamesSortChronologically(t *testing.T) {
	w := &Writer{Root: t.TempDir()}

	// Around a midnight boundary, where string order and time order
	// diverge for naive layouts.
	stamps := []time.Time{
		time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 9, 5, 0, 0, time.UTC),
	}
	var names []string
	for _, ts := range stamps {
		path, err := w.Write("cam", ts, []byte("x"))
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, filepath.Base(path))
	}

	if !sort.StringsAreSorted(names) {
		t.Errorf("names do not sort in capture order: %v", names)
	}
}

func TestWriterTimestampsKeepInterval(t *testing.T) {
	w := &Writer{Root: t.TempDir()}

	first := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	second := first.Add(300 * time.Second)

	p1, err := w.Write("cam", first, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := w.Write("cam", second, []byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Fatalf("consecutive ticks collided on %q", p1)
	}

	// The interval must be recoverable from the names alone, since the
	// assembly tooling has only the filenames to go on.
	parse := func(p string) time.Time {
		t.Helper()
		ts, err := time.Parse(timestampLayout, strings.TrimSuffix(filepath.Base(p), ".jpg"))
		if err != nil {
			t.Fatalf("parse %q: %v", p, err)
		}
		return ts
	}
	if got := parse(p2).Sub(parse(p1)); got != 300*time.Second {
		t.Errorf("timestamp distance: got %v, want 5m0s", got)
	}
}

func TestWriterSeparatesCameras(t *testing.T) {
	w := &Writer{Root: t.TempDir()}
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	p1, err := w.Write("Front Door", ts, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := w.Write("Backyard", ts, []byte("b"))
	if err != nil {
		t.Fatal(err)
	}

	if filepath.Dir(p1) == filepath.Dir(p2) {
		t.Errorf("cameras share a directory: %q", filepath.Dir(p1))
	}
}
