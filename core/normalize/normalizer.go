// Package normalize implements the Normalizer interface.
// It groups a parsed node forest into ordered, heading-scoped sections and
// renders each section's body as canonical Markdown. Identical node input
// always yields byte-identical output; chunk hash stability depends on it.
package normalize

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/confpipe/core"
	"github.com/gaurav-prasanna/confpipe/core/table"
)

// SectionNormalizer groups nodes into sections.
type SectionNormalizer struct{}

// New creates a SectionNormalizer.
func New() *SectionNormalizer {
	return &SectionNormalizer{}
}

// Normalize traverses nodes in document order. A heading opens a new
// section; a table arriving while the current body accumulator is non-empty
// opens a synthetic sub-section carrying the heading forward, so each
// section holds at most one table. Content before the first heading forms a
// level-0 section with empty heading text. Sections with no body, no table,
// and no heading are dropped, so an empty page yields zero sections.
func (sn *SectionNormalizer) Normalize(nodes []core.Node, stats *core.RunStats) []core.Section {
	var sections []core.Section
	var blocks []string

	cur := core.Section{Index: 0, HeadingLevel: 0}
	next := 0
	lastKind := core.KindOther

	flush := func() {
		cur.BodyMD = strings.Join(blocks, "\n\n")
		if cur.BodyMD != "" || cur.Table != nil || cur.HeadingText != "" {
			sections = append(sections, cur)
			next++
			if stats != nil {
				stats.Sections++
			}
		}
		blocks = nil
	}

	for _, n := range nodes {
		switch n.Kind {
		case core.KindHeading:
			flush()
			cur = core.Section{Index: next, HeadingLevel: n.Level, HeadingText: n.Text}
		case core.KindTable:
			if len(blocks) > 0 {
				// Table boundary: start a synthetic sub-section under the
				// same heading so Table stays 0..1 per section.
				flush()
				cur = core.Section{Index: next, HeadingLevel: cur.HeadingLevel, HeadingText: cur.HeadingText}
			}
			t := table.Lift(n.Rows, n.HeaderRow, stats)
			cur.Table = t
			if md := table.RenderMarkdown(t); md != "" {
				blocks = append(blocks, md)
			}
		case core.KindParagraph, core.KindOther:
			if n.Text != "" {
				blocks = append(blocks, n.Text)
			}
		case core.KindListItem:
			line := listLine(n)
			if line == "" {
				break
			}
			if lastKind == core.KindListItem && len(blocks) > 0 {
				// Consecutive items stay in one block so a list renders
				// and chunks as a unit.
				blocks[len(blocks)-1] += "\n" + line
			} else {
				blocks = append(blocks, line)
			}
		case core.KindCode:
			blocks = append(blocks, fence(n))
		}
		lastKind = n.Kind
	}
	flush()

	return sections
}

// listLine renders one list item as a Markdown line indented by depth.
func listLine(n core.Node) string {
	if n.Text == "" {
		return ""
	}
	marker := "-"
	if n.Ordered {
		marker = fmt.Sprintf("%d.", n.Ordinal)
	}
	// Multi-line item text folds onto one line to keep list structure flat.
	text := strings.Join(strings.Fields(n.Text), " ")
	return strings.Repeat("  ", n.Depth) + marker + " " + text
}

// fence renders a code node as a fenced block tagged with its language.
func fence(n core.Node) string {
	return "```" + n.Lang + "\n" + n.Text + "\n```"
}
