package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/confpipe/core"
	"github.com/gaurav-prasanna/confpipe/core/index"
	"github.com/gaurav-prasanna/confpipe/core/output"
)

func TestWriteRunOutputs_WritesStreamIndexAndReport(t *testing.T) {
	w, err := output.New(t.TempDir())
	require.NoError(t, err)
	store := index.NewStore(w.IndexPath(), nil)

	previous := map[string]string{"p1::0000#000": "old"}
	current := map[string]string{"p1::0000#000": "new"}
	stream := []core.StreamRecord{
		{ChunkID: "p1::0001#000", PageID: "p1", Text: "b", TextHash: "h2"},
		{ChunkID: "p1::0000#000", PageID: "p1", Text: "a", TextHash: "new"},
	}

	report, err := writeRunOutputs(context.Background(), w, store, previous, current, stream)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1::0000#000"}, report.Changed)
	assert.Equal(t, current, store.Load())

	data, err := os.ReadFile(filepath.Join(w.Root, "chunks", "chunks.jsonl"))
	require.NoError(t, err)
	// Sorted by chunk_id regardless of collection order.
	assert.Less(t, strings.Index(string(data), `"p1::0000#000"`), strings.Index(string(data), `"p1::0001#000"`))

	_, err = os.Stat(filepath.Join(w.Root, "state", "report.json"))
	require.NoError(t, err)
}

func TestWriteRunOutputs_CancelledRunLeavesIndexUntouched(t *testing.T) {
	w, err := output.New(t.TempDir())
	require.NoError(t, err)
	store := index.NewStore(w.IndexPath(), nil)
	require.NoError(t, store.Save(map[string]string{"keep": "1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = writeRunOutputs(ctx, w, store, map[string]string{"keep": "1"}, map[string]string{}, nil)
	require.ErrorIs(t, err, context.Canceled)

	// The persisted index is exactly what the previous run left behind.
	assert.Equal(t, map[string]string{"keep": "1"}, store.Load())
	_, statErr := os.Stat(filepath.Join(w.Root, "chunks", "chunks.jsonl"))
	assert.True(t, os.IsNotExist(statErr))
}
