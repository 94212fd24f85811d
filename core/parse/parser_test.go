package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/confpipe/core"
)

func parseAll(t *testing.T, markup string) ([]core.Node, core.RunStats) {
	t.Helper()
	var stats core.RunStats
	nodes, err := New().Parse(markup, &stats)
	require.NoError(t, err)
	return nodes, stats
}

func TestParse_HeadingsAndParagraphs(t *testing.T) {
	nodes, _ := parseAll(t, `<h1>Getting Started</h1><p>Hello <strong>world</strong></p><h2>Next</h2>`)

	require.Len(t, nodes, 3)
	assert.Equal(t, core.KindHeading, nodes[0].Kind)
	assert.Equal(t, 1, nodes[0].Level)
	assert.Equal(t, "Getting Started", nodes[0].Text)

	assert.Equal(t, core.KindParagraph, nodes[1].Kind)
	assert.Equal(t, "Hello **world**", nodes[1].Text)

	assert.Equal(t, core.KindHeading, nodes[2].Kind)
	assert.Equal(t, 2, nodes[2].Level)
}

func TestParse_NestedLists(t *testing.T) {
	nodes, _ := parseAll(t, `<ul><li>One</li><li>Two<ul><li>Nested</li></ul></li></ul><ol><li>First</li><li>Second</li></ol>`)

	require.Len(t, nodes, 5)
	for _, n := range nodes {
		assert.Equal(t, core.KindListItem, n.Kind)
	}

	assert.Equal(t, "One", nodes[0].Text)
	assert.Equal(t, 0, nodes[0].Depth)
	assert.Equal(t, 1, nodes[0].Ordinal)
	assert.False(t, nodes[0].Ordered)

	assert.Equal(t, "Two", nodes[1].Text)
	assert.Equal(t, "Nested", nodes[2].Text)
	assert.Equal(t, 1, nodes[2].Depth)

	assert.Equal(t, "First", nodes[3].Text)
	assert.True(t, nodes[3].Ordered)
	assert.Equal(t, 1, nodes[3].Ordinal)
	assert.Equal(t, 2, nodes[4].Ordinal)
}

func TestParse_TableGrid(t *testing.T) {
	nodes, _ := parseAll(t, `<table>
		<tr><th>Name</th><th>Role</th></tr>
		<tr><td>Ada</td><td><p>Engineer</p><p>Lead</p></td></tr>
	</table>`)

	require.Len(t, nodes, 1)
	n := nodes[0]
	assert.Equal(t, core.KindTable, n.Kind)
	assert.True(t, n.HeaderRow)
	require.Len(t, n.Rows, 2)
	assert.Equal(t, []string{"Name", "Role"}, n.Rows[0])
	// Multi-paragraph cell content flattens to one space-joined value.
	assert.Equal(t, []string{"Ada", "Engineer Lead"}, n.Rows[1])
}

func TestParse_TableWithoutHeaderMarkers(t *testing.T) {
	nodes, _ := parseAll(t, `<table><tr><td>a</td><td>b</td></tr><tr><td>c</td><td>d</td></tr></table>`)

	require.Len(t, nodes, 1)
	assert.False(t, nodes[0].HeaderRow)
	assert.Len(t, nodes[0].Rows, 2)
}

func TestParse_CodeMacro(t *testing.T) {
	markup := `<ac:structured-macro ac:name="code"><ac:parameter ac:name="language">go</ac:parameter>` +
		`<ac:plain-text-body><![CDATA[fmt.Println("hi")
x := 1]]></ac:plain-text-body></ac:structured-macro>`
	nodes, _ := parseAll(t, markup)

	require.Len(t, nodes, 1)
	assert.Equal(t, core.KindCode, nodes[0].Kind)
	assert.Equal(t, "go", nodes[0].Lang)
	assert.Equal(t, "fmt.Println(\"hi\")\nx := 1", nodes[0].Text)
}

func TestParse_UnknownMacroBecomesOther(t *testing.T) {
	nodes, _ := parseAll(t, `<ac:structured-macro ac:name="info"><ac:rich-text-body><p>Take note</p></ac:rich-text-body></ac:structured-macro>`)

	require.Len(t, nodes, 1)
	assert.Equal(t, core.KindOther, nodes[0].Kind)
	assert.Contains(t, nodes[0].Text, "Take note")
}

func TestParse_PreCodeBlock(t *testing.T) {
	nodes, _ := parseAll(t, "<pre><code class=\"language-python\">print(1)\nprint(2)</code></pre>")

	require.Len(t, nodes, 1)
	assert.Equal(t, core.KindCode, nodes[0].Kind)
	assert.Equal(t, "python", nodes[0].Lang)
	assert.Equal(t, "print(1)\nprint(2)", nodes[0].Text)
}

func TestParse_TransparentContainersAndNoise(t *testing.T) {
	nodes, _ := parseAll(t, `<div><script>alert(1)</script><style>p{}</style><div><p>Inner</p></div></div>`)

	require.Len(t, nodes, 1)
	assert.Equal(t, core.KindParagraph, nodes[0].Kind)
	assert.Equal(t, "Inner", nodes[0].Text)
}

func TestParse_MalformedMarkupDegrades(t *testing.T) {
	// Unclosed tags must not abort the page.
	nodes, _ := parseAll(t, `<p>Unclosed <em>emphasis`)

	require.NotEmpty(t, nodes)
	assert.Equal(t, core.KindParagraph, nodes[0].Kind)
	assert.Contains(t, nodes[0].Text, "Unclosed")
}

func TestParse_EmptyInput(t *testing.T) {
	nodes, _ := parseAll(t, "")
	assert.Empty(t, nodes)
}

func TestParse_Deterministic(t *testing.T) {
	markup := `<h1>T</h1><p>One</p><ul><li>a</li><li>b</li></ul><table><tr><th>H</th></tr><tr><td>v</td></tr></table>`
	first, _ := parseAll(t, markup)
	second, _ := parseAll(t, markup)
	assert.Equal(t, first, second)
}
