package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/confpipe/core"
)

func TestMarkdownRender(t *testing.T) {
	doc := &core.DocumentRecord{
		PageID: "1",
		Title:  "On-call Guide",
		Sections: []core.SectionRecord{
			{Index: 0, HeadingLevel: 0, BodyMD: "Intro paragraph."},
			{Index: 1, HeadingLevel: 2, HeadingText: "Schedule", BodyMD: "| Name |\n| --- |\n| Ada |"},
		},
	}

	data, err := NewMarkdownRenderer().Render(doc)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "# On-call Guide\n"))
	assert.Contains(t, out, "\n## Schedule\n")
	assert.Contains(t, out, "Intro paragraph.")
	assert.Contains(t, out, "| Ada |")
	// Preamble body comes before the first heading.
	assert.Less(t, strings.Index(out, "Intro paragraph."), strings.Index(out, "## Schedule"))
}

func TestMarkdownRender_LevelZeroHeadingClampsToOne(t *testing.T) {
	doc := &core.DocumentRecord{
		Sections: []core.SectionRecord{
			{Index: 0, HeadingLevel: 0, HeadingText: "Orphan", BodyMD: "text"},
		},
	}
	data, err := NewMarkdownRenderer().Render(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n# Orphan\n")
}

func TestMarkdownExtension(t *testing.T) {
	assert.Equal(t, ".md", NewMarkdownRenderer().Extension())
}

func TestPDFRender_ProducesDocument(t *testing.T) {
	doc := &core.DocumentRecord{
		PageID:   "1",
		Title:    "On-call Guide",
		SpaceKey: "OPS",
		Sections: []core.SectionRecord{
			{Index: 0, HeadingLevel: 2, HeadingText: "Schedule", BodyMD: "Rotations change **Monday**.\n\n```bash\nkubectl get pods\n```"},
		},
	}

	data, err := NewPDFRenderer().Render(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
	assert.Equal(t, ".pdf", NewPDFRenderer().Extension())
}

func TestCleanInlineMarkdown(t *testing.T) {
	assert.Equal(t, "bold and code", cleanInlineMarkdown("**bold** and `code`"))
	assert.Equal(t, "a link", cleanInlineMarkdown("[a link](https://example.com)"))
}
