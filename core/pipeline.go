package core

// PageResult is everything one page's pipeline run produces.
type PageResult struct {
	Doc    *DocumentRecord
	Chunks []Chunk
	Hashes map[string]string // chunk_id → text_hash for this page
	Stats  RunStats
}

// Pipeline runs the parse → normalize → chunk → assemble stages for a
// single page. It is synchronous and owns no shared state, so independent
// instances may process pages concurrently; only the delta index is shared
// across pages, and that is reconciled by a single writer after all pages.
type Pipeline struct {
	Parser     Parser
	Normalizer Normalizer
	Chunker    Chunker
	Assemble   func(*Page, []Section, []Chunk) *DocumentRecord
}

// Process converts one page into its document record, chunk sequence, and
// hash map. Fragment- and table-level issues are recovered inside the
// stages and surface only as RunStats counts; an error here means the page
// produced nothing and must be reported upstream, since silently omitting a
// page would corrupt delta semantics.
func (p *Pipeline) Process(page *Page) (*PageResult, error) {
	stats := RunStats{Pages: 1}

	nodes, err := p.Parser.Parse(page.Body, &stats)
	if err != nil {
		return nil, err
	}

	sections := p.Normalizer.Normalize(nodes, &stats)
	chunks := p.Chunker.Chunk(sections, page.ID)
	stats.Chunks = len(chunks)

	hashes := make(map[string]string, len(chunks))
	for _, c := range chunks {
		hashes[c.ID] = c.TextHash
	}

	return &PageResult{
		Doc:    p.Assemble(page, sections, chunks),
		Chunks: chunks,
		Hashes: hashes,
		Stats:  stats,
	}, nil
}
