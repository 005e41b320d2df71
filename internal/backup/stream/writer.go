// Package stream provides JSONL streaming to/from zip archives.
package stream

import (
	"archive/zip"
	"encoding/json"
)

// Writer streams entities as JSONL to a zip archive.
type Writer struct {
	zw    *zip.Writer
	enc   *json.Encoder
	count int
}

// NewWriter creates a JSONL writer for a path within the zip.
func NewWriter(zw *zip.Writer, path string) (*Writer, error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, err
	}

	return &Writer{
		zw:  zw,
		enc: json.NewEncoder(w),
	}, nil
}

// Write encodes a single entity as a JSON line.
func (w *Writer) Write(entity any) error {
	// Encode terminates each value with a newline.
	if err := w.enc.Encode(entity); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns entities written so far.
func (w *Writer) Count() int {
	return w.count
}
