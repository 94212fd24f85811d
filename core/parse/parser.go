// Package parse implements the Parser interface.
// It turns Confluence storage-format markup into an ordered forest of
// block-level nodes. The walk is iterative with an explicit frame stack so
// adversarially nested input cannot exhaust the goroutine stack.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/confpipe/core"
)

// StorageParser parses storage-format (HTML-like) markup into core.Nodes.
type StorageParser struct{}

// New creates a StorageParser.
func New() *StorageParser {
	return &StorageParser{}
}

// frame is one unit of pending work on the walk stack.
type frame struct {
	node    *html.Node
	depth   int  // list nesting depth, for li frames
	ordered bool // numbered list, for li frames
	ordinal int  // 1-based position within its list, for li frames
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Parse converts raw markup into an ordered node forest. Unknown elements
// become Other nodes carrying their text, never dropped silently. Fragment
// conversion failures degrade to literal text and increment
// stats.FragmentWarnings.
func (p *StorageParser) Parse(rawMarkup string, stats *core.RunStats) ([]core.Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawMarkup))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}

	// Script and style contribute no content.
	doc.Find("script, style").Remove()

	body := doc.Find("body")
	if len(body.Nodes) == 0 {
		return nil, nil
	}

	var nodes []core.Node
	stack := make([]frame, 0, 64)
	pushChildren(&stack, body.Nodes[0], frame{})

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node

		switch n.Type {
		case html.TextNode:
			// Stray text directly in block flow becomes a paragraph.
			if txt := collapseSpace(n.Data); txt != "" {
				nodes = append(nodes, core.Node{Kind: core.KindParagraph, Text: txt})
			}
			continue
		case html.ElementNode:
			// handled below
		default:
			continue
		}

		name := n.Data

		// Confluence macro elements carry a namespace prefix. Code macros
		// keep their fenced form; everything else degrades to visible text.
		if strings.Contains(name, ":") {
			if isCodeMacro(n) {
				nodes = append(nodes, core.Node{
					Kind: core.KindCode,
					Lang: macroParam(n, "language"),
					Text: macroBody(n),
				})
			} else if txt := collapseSpace(flatText(n)); txt != "" {
				nodes = append(nodes, core.Node{Kind: core.KindOther, Text: txt})
			}
			continue
		}

		switch name {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			nodes = append(nodes, core.Node{
				Kind:  core.KindHeading,
				Level: int(name[1] - '0'),
				Text:  collapseSpace(flatText(n)),
			})
		case "p":
			if txt := inlineMarkdown(n, stats); txt != "" {
				nodes = append(nodes, core.Node{Kind: core.KindParagraph, Text: txt})
			}
		case "ul", "ol":
			pushListItems(&stack, n, f.depth, name == "ol")
		case "li":
			item := core.Node{
				Kind:    core.KindListItem,
				Depth:   f.depth,
				Ordered: f.ordered,
				Ordinal: max(f.ordinal, 1),
				Text:    listItemText(n, stats),
			}
			if item.Text != "" {
				nodes = append(nodes, item)
			}
			// Nested lists pop next, so their items follow in document order.
			pushNestedLists(&stack, n, f.depth+1)
		case "table":
			rows, header := tableGrid(n)
			if len(rows) > 0 {
				nodes = append(nodes, core.Node{Kind: core.KindTable, Rows: rows, HeaderRow: header})
			}
		case "pre":
			nodes = append(nodes, core.Node{
				Kind: core.KindCode,
				Lang: codeLanguage(n),
				Text: strings.Trim(rawText(n), "\n"),
			})
		case "div", "section", "article", "main", "span":
			// Transparent containers: descend without emitting a node.
			pushChildren(&stack, n, f)
		case "br", "hr", "img":
			// No text content of their own.
		default:
			if txt := inlineMarkdown(n, stats); txt != "" {
				nodes = append(nodes, core.Node{Kind: core.KindOther, Text: txt})
			}
		}
	}

	return nodes, nil
}

// pushChildren queues n's children so they pop in document order.
func pushChildren(stack *[]frame, n *html.Node, parent frame) {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		*stack = append(*stack, frame{node: c, depth: parent.depth})
	}
}

// pushListItems queues the li children of a ul/ol at the given depth.
func pushListItems(stack *[]frame, list *html.Node, depth int, ordered bool) {
	var items []*html.Node
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			items = append(items, c)
		}
	}
	for i := len(items) - 1; i >= 0; i-- {
		*stack = append(*stack, frame{
			node:    items[i],
			depth:   depth,
			ordered: ordered,
			ordinal: i + 1,
		})
	}
}

// pushNestedLists queues any ul/ol children of an li at the next depth.
func pushNestedLists(stack *[]frame, li *html.Node, depth int) {
	var lists []*html.Node
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			lists = append(lists, c)
		}
	}
	for i := len(lists) - 1; i >= 0; i-- {
		*stack = append(*stack, frame{node: lists[i], depth: depth})
	}
}

// listItemText renders an li's own content (excluding nested lists) as
// inline Markdown.
func listItemText(li *html.Node, stats *core.RunStats) string {
	var b strings.Builder
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			continue
		}
		html.Render(&b, c)
	}
	return fragmentMarkdown(b.String(), stats)
}

// inlineMarkdown renders an element's inner HTML as Markdown, keeping
// inline formatting (bold, links, inline code).
func inlineMarkdown(n *html.Node, stats *core.RunStats) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&b, c)
	}
	return fragmentMarkdown(b.String(), stats)
}

// fragmentMarkdown converts an HTML fragment to Markdown. A failed
// conversion degrades to the fragment's literal text rather than aborting
// the page.
func fragmentMarkdown(fragment string, stats *core.RunStats) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		if stats != nil {
			stats.FragmentWarnings++
		}
		return collapseSpace(stripTags(fragment))
	}
	md = blankRuns.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

// tableGrid extracts the cell text grid of a table element, skipping rows
// that belong to nested tables. header reports whether every cell of the
// first row is a th.
func tableGrid(table *html.Node) (rows [][]string, header bool) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				// Nested table: its rows are not ours.
				continue
			case "tr":
				var cells []string
				allTH := true
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode {
						continue
					}
					if cell.Data == "td" || cell.Data == "th" {
						// Multi-paragraph cell content flattens to one value.
						cells = append(cells, collapseSpace(flatText(cell)))
						if cell.Data != "th" {
							allTH = false
						}
					}
				}
				if len(cells) > 0 {
					if len(rows) == 0 {
						header = allTH
					}
					rows = append(rows, cells)
				}
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows, header
}

// isCodeMacro reports whether n is a Confluence code structured macro.
func isCodeMacro(n *html.Node) bool {
	if n.Data != "ac:structured-macro" {
		return false
	}
	return attr(n, "ac:name") == "code"
}

// macroParam returns the text of the ac:parameter child with the given name.
func macroParam(macro *html.Node, name string) string {
	var out string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "ac:parameter" && attr(c, "ac:name") == name {
				out = collapseSpace(flatText(c))
				return
			}
			walk(c)
		}
	}
	walk(macro)
	return out
}

// macroBody returns the code text of a macro's plain-text or rich-text body.
// CDATA sections survive HTML parsing as comment nodes, so those are
// unwrapped too.
func macroBody(macro *html.Node) string {
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ac:plain-text-body" || c.Data == "ac:rich-text-body") {
				body = c
				return
			}
			find(c)
		}
	}
	find(macro)
	if body == nil {
		return ""
	}

	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.CommentNode:
				data := strings.TrimPrefix(c.Data, "[CDATA[")
				data = strings.TrimSuffix(data, "]]")
				b.WriteString(data)
			default:
				collect(c)
			}
		}
	}
	collect(body)
	return strings.Trim(b.String(), "\n")
}

// codeLanguage extracts the fence language of a pre block from a
// language-* class on the pre or a nested code element.
func codeLanguage(pre *html.Node) string {
	if lang := classLanguage(pre); lang != "" {
		return lang
	}
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "code" {
			if lang := classLanguage(c); lang != "" {
				return lang
			}
		}
	}
	return ""
}

func classLanguage(n *html.Node) string {
	for _, cls := range strings.Fields(attr(n, "class")) {
		if lang, ok := strings.CutPrefix(cls, "language-"); ok {
			return lang
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// flatText concatenates all descendant text, separated by single spaces.
func flatText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
				b.WriteByte(' ')
			}
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// rawText concatenates descendant text without whitespace collapsing,
// preserving code layout.
func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// collapseSpace folds whitespace runs into single spaces and trims.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags is the literal-text fallback for unconvertible fragments.
func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}
