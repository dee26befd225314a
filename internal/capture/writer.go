package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// timestampLayout produces filenames that sort lexicographically in time
// order, which is what timelapse assembly tools expect.
const timestampLayout = "20060102_150405"

// Writer persists frames under one directory per camera.
type Writer struct {
	Root string
}

// Write stores a frame as <root>/<camera>/<timestamp>.jpg and returns the
// path. Zero-length data is an error: a failed capture must not leave an
// empty frame in the sequence.
func (w *Writer) Write(camera string, ts time.Time, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("refusing to write empty frame")
	}

	dir := filepath.Join(w.Root, camera)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create camera directory: %w", err)
	}

	path := filepath.Join(dir, ts.Format(timestampLayout)+".jpg")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
