// Package output handles the on-disk layout for a run:
//
//	out/docs/<ancestor path>/<title>.json   one document record per page
//	out/chunks/chunks.jsonl                 flat chunk stream
//	out/state/emb_index.json                persisted delta index
//	out/state/report.json                   change report
//	out/pages/<slug>.md|.pdf                optional per-page exports
//
// Document paths mirror the page's ancestor chain the way a site export
// mirrors URL paths.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/confpipe/core"
)

// Writer writes run outputs under a root directory.
type Writer struct {
	Root string
}

// New creates a Writer rooted at outputDir, defaulting to ./out.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		outputDir = "out"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{Root: outputDir}, nil
}

// IndexPath is where the delta index persists between runs.
func (w *Writer) IndexPath() string {
	return filepath.Join(w.Root, "state", "emb_index.json")
}

// WriteDocument writes one page's document record under docs/, mirroring
// the page's ancestor chain as directories.
func (w *Writer) WriteDocument(doc *core.DocumentRecord, ancestors []string) (string, error) {
	parts := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		if s := sanitize(a); s != "" {
			parts = append(parts, s)
		}
	}
	name := sanitize(doc.Title)
	if name == "" {
		name = sanitize(doc.PageID)
	}
	parts = append(parts, name+".json")

	path := filepath.Join(append([]string{w.Root, "docs"}, parts...)...)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling document %s: %w", doc.PageID, err)
	}
	return path, writeFile(path, data)
}

// WriteChunks writes the flat chunk stream, one JSON record per line.
func (w *Writer) WriteChunks(records []core.StreamRecord) (string, error) {
	path := filepath.Join(w.Root, "chunks", "chunks.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return "", fmt.Errorf("writing chunk %s: %w", rec.ChunkID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("flushing %s: %w", path, err)
	}
	return path, nil
}

// WriteReport writes the run's change report.
func (w *Writer) WriteReport(report core.ChangeReport) (string, error) {
	path := filepath.Join(w.Root, "state", "report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	return path, writeFile(path, data)
}

// WritePageExport writes an optional per-page rendering (Markdown, PDF)
// under pages/.
func (w *Writer) WritePageExport(doc *core.DocumentRecord, data []byte, ext string) (string, error) {
	name := sanitize(doc.Title)
	if name == "" {
		name = sanitize(doc.PageID)
	}
	path := filepath.Join(w.Root, "pages", name+ext)
	return path, writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	return nil
}

// sanitize lowercases and replaces non-alphanumeric runs with underscores
// so titles become safe path segments.
func sanitize(s string) string {
	var b strings.Builder
	pending := false
	for _, ch := range strings.ToLower(s) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(ch)
		} else {
			pending = true
		}
	}
	return b.String()
}
