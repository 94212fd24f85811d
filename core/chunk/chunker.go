// Package chunk splits normalized sections into bounded chunks with
// deterministic identifiers and content hashes.
//
// Chunk IDs derive from position (page, section index, slice index), never
// from content, so an unchanged section reproduces the same identity run
// after run. The hash is what changes when content changes. Section and
// slice indexes are zero-padded so lexicographic chunk_id order equals
// document order.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/confpipe/core"
)

const (
	defaultMaxChars = 2000
	defaultMinChars = 200
)

// Splitter splits section bodies into character-bounded chunks.
type Splitter struct {
	MaxChars int // maximum chunk length in runes
	MinChars int // floor below which a trailing fragment merges backward
}

// New creates a Splitter. Non-positive values fall back to defaults.
func New(maxChars, minChars int) *Splitter {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	return &Splitter{MaxChars: maxChars, MinChars: minChars}
}

// Chunk splits each section's body into one or more chunks, preferring
// boundaries at blank-line block breaks and hard-cutting only when a single
// block exceeds MaxChars. A section below MaxChars yields exactly one chunk;
// an empty page yields none.
func (s *Splitter) Chunk(sections []core.Section, pageID string) []core.Chunk {
	var chunks []core.Chunk
	for _, sec := range sections {
		if strings.TrimSpace(sec.BodyMD) == "" {
			continue
		}
		for i, text := range s.split(sec.BodyMD) {
			sum := sha256.Sum256([]byte(text))
			chunks = append(chunks, core.Chunk{
				ID:           ChunkID(pageID, sec.Index, i),
				PageID:       pageID,
				SectionIndex: sec.Index,
				Text:         text,
				TextHash:     hex.EncodeToString(sum[:]),
			})
		}
	}
	return chunks
}

// ChunkID is the deterministic identifier for one slice of one section.
func ChunkID(pageID string, sectionIndex, sliceIndex int) string {
	return fmt.Sprintf("%s::%04d#%03d", pageID, sectionIndex, sliceIndex)
}

// split packs blank-line-separated blocks greedily up to MaxChars, then
// merges a trailing fragment below MinChars into the previous slice. Fenced
// code regions count as single blocks so a fence never opens in one chunk
// and closes in another.
func (s *Splitter) split(body string) []string {
	blocks := fenceBlocks(body)

	var parts []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, block := range blocks {
		n := utf8.RuneCountInString(block)
		if n > s.MaxChars {
			// A single oversized block gets a hard rune cut.
			flush()
			parts = append(parts, hardCut(block, s.MaxChars)...)
			continue
		}
		if curLen > 0 && curLen+2+n > s.MaxChars {
			flush()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(block)
		curLen += n
	}
	flush()

	// Fragment floor: a short tail joins its predecessor unless it is the
	// section's only content.
	if last := len(parts) - 1; last > 0 && utf8.RuneCountInString(parts[last]) < s.MinChars {
		parts[last-1] += "\n\n" + parts[last]
		parts = parts[:last]
	}

	return parts
}

// fenceBlocks splits a body on blank lines, keeping fenced code regions
// whole: a blank line inside an open fence never starts a new block.
func fenceBlocks(body string) []string {
	var blocks []string
	var cur []string
	inFence := false

	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && !inFence {
			flush()
			continue
		}
		cur = append(cur, line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
	}
	flush()
	return blocks
}

// hardCut slices text into max-rune pieces.
func hardCut(text string, max int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += max {
		end := min(start+max, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
