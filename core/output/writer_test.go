package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/confpipe/core"
)

func TestWriteDocument_MirrorsAncestry(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	doc := &core.DocumentRecord{PageID: "42", Title: "My Page!", Sections: []core.SectionRecord{}, Chunks: []core.ChunkRecord{}}
	path, err := w.WriteDocument(doc, []string{"User Guide", "Setup"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(w.Root, "docs", "user_guide", "setup", "my_page.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got core.DocumentRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "42", got.PageID)
}

func TestWriteDocument_FallsBackToPageID(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	doc := &core.DocumentRecord{PageID: "42", Title: "???"}
	path, err := w.WriteDocument(doc, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "42.json"))
}

func TestWriteChunks_OneRecordPerLine(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	records := []core.StreamRecord{
		{ChunkID: "p::0000#000", PageID: "p", Text: "a", TextHash: "h1"},
		{ChunkID: "p::0001#000", PageID: "p", Text: "b", TextHash: "h2"},
	}
	path, err := w.WriteChunks(records)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec core.StreamRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		assert.Equal(t, records[lines], rec)
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, lines)
}

func TestWriteReport(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := w.WriteReport(core.ChangeReport{Added: []string{"c1"}, Changed: []string{}, Removed: []string{}, UnchangedCount: 3})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unchanged_count": 3`)
}

func TestIndexPath_UnderState(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root, "state", "emb_index.json"), w.IndexPath())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "my_page", sanitize("My Page!"))
	assert.Equal(t, "release_2026_01", sanitize("Release 2026-01"))
	assert.Equal(t, "", sanitize("???"))
}
