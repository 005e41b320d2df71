package stream

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArchive writes rows to name inside a new zip and reopens it.
func writeArchive(t *testing.T, name string, rows ...map[string]any) *zip.ReadCloser {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.zip")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	if name != "" {
		w, err := NewWriter(zw, name)
		require.NoError(t, err)
		for _, r := range rows {
			require.NoError(t, w.Write(r))
		}
		assert.Equal(t, len(rows), w.Count())
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = zr.Close() })
	return zr
}

func readAll(t *testing.T, rc io.ReadCloser) (rows []map[string]any, errs int) {
	t.Helper()
	for row, err := range NewReader[map[string]any](rc).All() {
		if err != nil {
			errs++
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func TestWriterReader_RoundTrip(t *testing.T) {
	zr := writeArchive(t, "entities/books.jsonl",
		map[string]any{"id": "bk-1", "title": "Dune", "is_free_to_read": true},
		map[string]any{"id": "bk-2", "title": "Emma", "is_free_to_read": false},
		map[string]any{"id": "bk-3", "title": "Ulysses", "author": nil},
	)

	rc, err := OpenFile(zr, "entities/books.jsonl")
	require.NoError(t, err)

	rows, errs := readAll(t, rc)
	assert.Zero(t, errs)
	require.Len(t, rows, 3)
	assert.Equal(t, "Dune", rows[0]["title"])
	assert.Equal(t, false, rows[1]["is_free_to_read"])
	assert.Contains(t, rows[2], "author")
	assert.Nil(t, rows[2]["author"])
}

func TestOpenFile_NotFound(t *testing.T) {
	zr := writeArchive(t, "")

	_, err := OpenFile(zr, "entities/books.jsonl")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestReader_ContinuesOnParseError(t *testing.T) {
	jsonl := `{"id":"n-1","title":"Good"}
{bad json}

{"id":"n-2","title":"Also good"}
`
	rows, errs := readAll(t, io.NopCloser(strings.NewReader(jsonl)))
	assert.Len(t, rows, 2, "blank lines are skipped")
	assert.Equal(t, 1, errs)
}

func TestReader_NumbersStayExact(t *testing.T) {
	jsonl := `{"id":"ex-1","version":9007199254740993}` + "\n"

	rows, errs := readAll(t, io.NopCloser(strings.NewReader(jsonl)))
	require.Zero(t, errs)
	require.Len(t, rows, 1)

	n, ok := rows[0]["version"].(json.Number)
	require.True(t, ok, "version decoded as %T", rows[0]["version"])
	got, err := n.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got)
}
