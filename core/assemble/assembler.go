// Package assemble composes page metadata, sections, and chunks into the
// final document record. Pure aggregation: both sequences keep document
// order and nothing is computed here.
package assemble

import "github.com/gaurav-prasanna/confpipe/core"

// Build produces the per-page document record.
func Build(page *core.Page, sections []core.Section, chunks []core.Chunk) *core.DocumentRecord {
	secs := make([]core.SectionRecord, 0, len(sections))
	for _, s := range sections {
		secs = append(secs, core.SectionRecord{
			Index:        s.Index,
			HeadingLevel: s.HeadingLevel,
			HeadingText:  s.HeadingText,
			BodyMD:       s.BodyMD,
			TableJSON:    s.Table,
		})
	}

	recs := make([]core.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		recs = append(recs, core.ChunkRecord{
			ChunkID:  c.ID,
			Text:     c.Text,
			TextHash: c.TextHash,
		})
	}

	return &core.DocumentRecord{
		PageID:       page.ID,
		Title:        page.Title,
		SpaceKey:     page.SpaceKey,
		Version:      page.Version,
		LastModified: page.UpdatedAt,
		Sections:     secs,
		Chunks:       recs,
	}
}
