package assemble

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/confpipe/core"
)

func TestBuild_PreservesOrderAndShape(t *testing.T) {
	page := &core.Page{ID: "42", Title: "Runbook", SpaceKey: "OPS", Version: "7", UpdatedAt: "2026-01-02T03:04:05Z"}
	sections := []core.Section{
		{Index: 0, HeadingLevel: 0, BodyMD: "intro"},
		{Index: 1, HeadingLevel: 2, HeadingText: "Steps", BodyMD: "do things",
			Table: &core.Table{Columns: []string{"a"}, DisplayColumns: []string{"A"}, Rows: []map[string]string{{"a": "1"}}}},
	}
	chunks := []core.Chunk{
		{ID: "42::0000#000", Text: "intro", TextHash: "x"},
		{ID: "42::0001#000", Text: "do things", TextHash: "y"},
	}

	doc := Build(page, sections, chunks)

	assert.Equal(t, "42", doc.PageID)
	assert.Equal(t, "Runbook", doc.Title)
	assert.Equal(t, "OPS", doc.SpaceKey)
	assert.Equal(t, "7", doc.Version)
	assert.Equal(t, "2026-01-02T03:04:05Z", doc.LastModified)
	require.Len(t, doc.Sections, 2)
	require.Len(t, doc.Chunks, 2)
	assert.Equal(t, 0, doc.Sections[0].Index)
	assert.Nil(t, doc.Sections[0].TableJSON)
	assert.NotNil(t, doc.Sections[1].TableJSON)
	assert.Equal(t, "42::0000#000", doc.Chunks[0].ChunkID)
}

func TestBuild_EmptyPageHasNonNilSlices(t *testing.T) {
	doc := Build(&core.Page{ID: "7"}, nil, nil)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	// Empty sequences serialize as [], never null.
	assert.Contains(t, string(data), `"sections":[]`)
	assert.Contains(t, string(data), `"chunks":[]`)
}

func TestBuild_TableJSONOmittedWhenAbsent(t *testing.T) {
	doc := Build(&core.Page{ID: "7"}, []core.Section{{Index: 0, BodyMD: "x"}}, nil)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "table_json")
}
