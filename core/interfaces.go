// Package core defines the pipeline interfaces and data model for confpipe.
// Each stage of the pipeline is a clean, testable interface.
package core

import "context"

// Page is one source document fetched from Confluence.
// Immutable once fetched; owned by the pipeline run.
type Page struct {
	ID        string
	Title     string
	SpaceKey  string
	Version   string
	UpdatedAt string   // ISO8601, version timestamp
	Ancestors []string // ancestor page titles, root first
	Body      string   // raw storage-format markup
}

// NodeKind tags the variants of a parsed markup node.
type NodeKind int

const (
	KindHeading NodeKind = iota
	KindParagraph
	KindListItem
	KindTable
	KindCode
	KindOther
)

// Node is one block-level element of the parsed markup tree.
// Fields beyond Kind and Text are only meaningful for the kinds noted.
type Node struct {
	Kind      NodeKind
	Level     int        // heading level 1-6 (KindHeading)
	Depth     int        // nesting depth, 0-based (KindListItem)
	Ordered   bool       // numbered list item (KindListItem)
	Ordinal   int        // 1-based position within its list (KindListItem)
	Text      string     // inline Markdown, heading text, or raw code text
	Lang      string     // fence language (KindCode)
	Rows      [][]string // cell text grid in document order (KindTable)
	HeaderRow bool       // first row cells were <th> (KindTable)
}

// Table is the structured extraction of a table node.
// len(Columns) == len(DisplayColumns); every row map carries every column
// key, with missing trailing cells as empty strings.
type Table struct {
	Columns        []string            `json:"columns"`
	DisplayColumns []string            `json:"display_columns"`
	Rows           []map[string]string `json:"rows"`
}

// Section is a heading-scoped unit of a page's normalized content.
type Section struct {
	Index        int
	HeadingLevel int // 0 for content preceding the first heading
	HeadingText  string
	BodyMD       string
	Table        *Table // at most one table per section
}

// Chunk is a retrieval-sized slice of section content.
type Chunk struct {
	ID           string
	PageID       string
	SectionIndex int
	Text         string
	TextHash     string // SHA-256 hex of Text
}

// SectionRecord is the output shape of one section in a document record.
type SectionRecord struct {
	Index        int    `json:"index"`
	HeadingLevel int    `json:"heading_level"`
	HeadingText  string `json:"heading_text"`
	BodyMD       string `json:"body_md"`
	TableJSON    *Table `json:"table_json,omitempty"`
}

// ChunkRecord is the output shape of one chunk in a document record.
type ChunkRecord struct {
	ChunkID  string `json:"chunk_id"`
	Text     string `json:"text"`
	TextHash string `json:"text_hash"`
}

// DocumentRecord is the final per-page output.
type DocumentRecord struct {
	PageID       string          `json:"page_id"`
	Title        string          `json:"title"`
	SpaceKey     string          `json:"space_key"`
	Version      string          `json:"version,omitempty"`
	LastModified string          `json:"last_modified,omitempty"`
	Sections     []SectionRecord `json:"sections"`
	Chunks       []ChunkRecord   `json:"chunks"`
}

// StreamRecord is one line of the flat chunk stream (chunks.jsonl).
type StreamRecord struct {
	ChunkID  string `json:"chunk_id"`
	PageID   string `json:"page_id"`
	Text     string `json:"text"`
	TextHash string `json:"text_hash"`
}

// ChangeReport summarizes the delta between two index snapshots.
// Unchanged chunks are reported only as a count.
type ChangeReport struct {
	Added          []string `json:"added"`
	Changed        []string `json:"changed"`
	Removed        []string `json:"removed"`
	UnchangedCount int      `json:"unchanged_count"`
}

// RunStats accumulates counters across pipeline stages. Stages take it by
// pointer; concurrent workers keep their own copy and merge at the end.
type RunStats struct {
	Pages            int
	Sections         int
	Chunks           int
	FragmentWarnings int // markup fragments degraded to literal text
	TableWarnings    int // table rows truncated to header width
	PageFailures     int
}

// Merge folds another accumulator into s.
func (s *RunStats) Merge(o RunStats) {
	s.Pages += o.Pages
	s.Sections += o.Sections
	s.Chunks += o.Chunks
	s.FragmentWarnings += o.FragmentWarnings
	s.TableWarnings += o.TableWarnings
	s.PageFailures += o.PageFailures
}

// Source supplies pages from the remote document system.
type Source interface {
	FetchPage(ctx context.Context, id string) (*Page, error)
	ChildIDs(ctx context.Context, id string) ([]string, error)
}

// Parser turns raw storage-format markup into an ordered node forest.
type Parser interface {
	Parse(rawMarkup string, stats *RunStats) ([]Node, error)
}

// Normalizer groups a node forest into ordered, heading-scoped sections.
type Normalizer interface {
	Normalize(nodes []Node, stats *RunStats) []Section
}

// Chunker splits sections into bounded chunks with deterministic IDs.
type Chunker interface {
	Chunk(sections []Section, pageID string) []Chunk
}

// Renderer converts a document record into an export format.
type Renderer interface {
	Render(doc *DocumentRecord) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md").
	Extension() string
}
