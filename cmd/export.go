// The export command orchestrates the full run: traverse, fetch, parse,
// normalize, chunk, assemble, write, then the single-writer delta
// reconciliation.
//
// Pages are processed by a pool of independent pipeline workers; the delta
// index is read once before any page and written once after all pages.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/confpipe/confluence"
	"github.com/gaurav-prasanna/confpipe/core"
	"github.com/gaurav-prasanna/confpipe/core/assemble"
	"github.com/gaurav-prasanna/confpipe/core/chunk"
	"github.com/gaurav-prasanna/confpipe/core/index"
	"github.com/gaurav-prasanna/confpipe/core/normalize"
	"github.com/gaurav-prasanna/confpipe/core/output"
	"github.com/gaurav-prasanna/confpipe/core/parse"
	"github.com/gaurav-prasanna/confpipe/core/render"
)

// Flag variables.
var (
	flagBaseURL         string
	flagEmail           string
	flagAPIToken        string
	flagSpace           string
	flagRootPageID      string
	flagIncludeChildren bool
	flagOutputDir       string
	flagMarkdown        bool
	flagPDF             bool
	flagMaxChunk        int
	flagMinChunk        int
	flagWorkers         int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a Confluence page tree to docs, chunks, and a change report",
	Long: `Export fetches a root page (and optionally all its descendants), normalizes
each page into heading-scoped Markdown sections with lifted tables, splits
them into hash-addressed chunks, and diffs the chunk hashes against the
previous run's index.

Connection flags fall back to CONF_BASE_URL, CONF_EMAIL, CONF_API_TOKEN,
CONF_SPACE, CONF_ROOT_PAGE_ID, and INCLUDE_CHILDREN; a .env file is loaded
when present.

Examples:
  confpipe export --space DOCS --root-page-id 12345
  confpipe export --root-page-id 12345 --include-children=false --markdown
  confpipe export --output_dir ./out --max-chunk 2000 --workers 4`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Confluence base URL (env CONF_BASE_URL)")
	exportCmd.Flags().StringVar(&flagEmail, "email", "", "Account email (env CONF_EMAIL)")
	exportCmd.Flags().StringVar(&flagAPIToken, "api-token", "", "API token (env CONF_API_TOKEN)")
	exportCmd.Flags().StringVar(&flagSpace, "space", "", "Space key (env CONF_SPACE)")
	exportCmd.Flags().StringVar(&flagRootPageID, "root-page-id", "", "Root page ID (env CONF_ROOT_PAGE_ID)")
	exportCmd.Flags().BoolVar(&flagIncludeChildren, "include-children", true, "Include descendant pages (env INCLUDE_CHILDREN)")

	// Optional per-page exports alongside the document records.
	exportCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Also write per-page Markdown files")
	exportCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Also write per-page PDF files")

	exportCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: ./out)")
	exportCmd.Flags().IntVar(&flagMaxChunk, "max-chunk", 2000, "Maximum chunk length in characters")
	exportCmd.Flags().IntVar(&flagMinChunk, "min-chunk", 200, "Minimum trailing-chunk length in characters")
	exportCmd.Flags().IntVar(&flagWorkers, "workers", 4, "Concurrent page workers")
}

// settings is the resolved run configuration.
type settings struct {
	confluence.Config
	Space           string
	RootPageID      string
	IncludeChildren bool
}

// resolveSettings merges flags with environment variables and validates the
// required keys.
func resolveSettings(cmd *cobra.Command) (settings, error) {
	s := settings{
		Config: confluence.Config{
			BaseURL:  envOr(flagBaseURL, "CONF_BASE_URL"),
			Email:    envOr(flagEmail, "CONF_EMAIL"),
			APIToken: envOr(flagAPIToken, "CONF_API_TOKEN"),
		},
		Space:           envOr(flagSpace, "CONF_SPACE"),
		RootPageID:      envOr(flagRootPageID, "CONF_ROOT_PAGE_ID"),
		IncludeChildren: flagIncludeChildren,
	}

	if !cmd.Flags().Changed("include-children") {
		if v := os.Getenv("INCLUDE_CHILDREN"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				s.IncludeChildren = b
			}
		}
	}

	missing := []string{}
	for key, val := range map[string]string{
		"base-url":     s.BaseURL,
		"email":        s.Email,
		"api-token":    s.APIToken,
		"space":        s.Space,
		"root-page-id": s.RootPageID,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return s, fmt.Errorf("missing required configuration: %v (set flags or CONF_* env)", missing)
	}
	return s, nil
}

func envOr(flagValue, envKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envKey)
}

// outcome carries one page's result back to the collector.
type outcome struct {
	pageID string
	res    *core.PageResult
	err    error
}

func runExport(cmd *cobra.Command, args []string) error {
	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := confluence.NewClient(s.Config, logger)

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	var renderers []core.Renderer
	if flagMarkdown {
		renderers = append(renderers, render.NewMarkdownRenderer())
	}
	if flagPDF {
		renderers = append(renderers, render.NewPDFRenderer())
	}

	logger.Info("discovering pages", "root", s.RootPageID, "include_children", s.IncludeChildren)
	ids, err := confluence.Descendants(ctx, client, s.RootPageID, s.IncludeChildren)
	if err != nil {
		return fmt.Errorf("traversing descendants: %w", err)
	}
	logger.Info("processing pages", "count", len(ids), "space", s.Space)

	// The index is read once before any page processing begins.
	store := index.NewStore(writer.IndexPath(), logger)
	previous := store.Load()

	pipe := &core.Pipeline{
		Parser:     parse.New(),
		Normalizer: normalize.New(),
		Chunker:    chunk.New(flagMaxChunk, flagMinChunk),
		Assemble:   assemble.Build,
	}

	workers := flagWorkers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan outcome)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				// Cancellation is checked between pages, never mid-page.
				if err := ctx.Err(); err != nil {
					results <- outcome{pageID: id, err: err}
					continue
				}
				results <- processPage(ctx, id, client, pipe, writer, renderers, logger)
			}
		}()
	}

	go func() {
		for _, id := range ids {
			jobs <- id
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Single collector: merges stats and hash maps without shared locks.
	var stats core.RunStats
	var stream []core.StreamRecord
	current := make(map[string]string)

	for out := range results {
		if out.err != nil {
			// A failed page produces nothing and never aborts siblings.
			logger.Error("page failed", "page_id", out.pageID, "err", out.err)
			stats.PageFailures++
			continue
		}
		stats.Merge(out.res.Stats)
		for _, c := range out.res.Chunks {
			stream = append(stream, core.StreamRecord{
				ChunkID:  c.ID,
				PageID:   c.PageID,
				Text:     c.Text,
				TextHash: c.TextHash,
			})
		}
		for id, hash := range out.res.Hashes {
			current[id] = hash
		}
	}

	if stats.Pages == 0 {
		logger.Warn("no documents exported")
		return nil
	}

	report, err := writeRunOutputs(ctx, writer, store, previous, current, stream)
	if err != nil {
		return err
	}

	logger.Info("export complete",
		"pages", stats.Pages,
		"page_failures", stats.PageFailures,
		"sections", stats.Sections,
		"chunks", stats.Chunks,
		"added", len(report.Added),
		"changed", len(report.Changed),
		"removed", len(report.Removed),
		"unchanged", report.UnchangedCount,
		"fragment_warnings", stats.FragmentWarnings,
		"table_warnings", stats.TableWarnings,
	)
	return nil
}

// writeRunOutputs persists the chunk stream, then reconciles and replaces
// the delta index. A cancelled run aborts before anything is written, so an
// interrupted export never replaces the index with a partial map (which
// would surface the missing pages' chunks as spurious removals).
func writeRunOutputs(
	ctx context.Context,
	writer *output.Writer,
	store *index.Store,
	previous, current map[string]string,
	stream []core.StreamRecord,
) (core.ChangeReport, error) {
	if err := ctx.Err(); err != nil {
		return core.ChangeReport{}, fmt.Errorf("aborted before index update: %w", err)
	}

	// Stream order is deterministic regardless of worker scheduling.
	sort.Slice(stream, func(i, j int) bool { return stream[i].ChunkID < stream[j].ChunkID })
	if _, err := writer.WriteChunks(stream); err != nil {
		return core.ChangeReport{}, fmt.Errorf("writing chunk stream: %w", err)
	}

	// Single-writer reconciliation after all pages complete. Save fully
	// replaces the index even after page failures; a failed page's chunks
	// read as removed this run and added again once the page recovers.
	report := index.Reconcile(previous, current)
	if err := store.Save(current); err != nil {
		return report, fmt.Errorf("saving index: %w", err)
	}
	if _, err := writer.WriteReport(report); err != nil {
		return report, fmt.Errorf("writing report: %w", err)
	}
	return report, nil
}

// processPage runs one page through fetch → pipeline → writes. Per-page
// export failures (Markdown/PDF) are logged but do not fail the page: the
// document record and chunk data are the contract, exports are extras.
func processPage(
	ctx context.Context,
	id string,
	src core.Source,
	pipe *core.Pipeline,
	writer *output.Writer,
	renderers []core.Renderer,
	logger *slog.Logger,
) outcome {
	page, err := src.FetchPage(ctx, id)
	if err != nil {
		return outcome{pageID: id, err: err}
	}

	res, err := pipe.Process(page)
	if err != nil {
		return outcome{pageID: id, err: fmt.Errorf("processing page %s: %w", id, err)}
	}

	path, err := writer.WriteDocument(res.Doc, page.Ancestors)
	if err != nil {
		return outcome{pageID: id, err: err}
	}
	logger.Info("exported page", "title", page.Title, "path", path,
		"sections", len(res.Doc.Sections), "chunks", len(res.Chunks))

	for _, r := range renderers {
		data, err := r.Render(res.Doc)
		if err != nil {
			logger.Warn("page export failed", "page_id", id, "ext", r.Extension(), "err", err)
			continue
		}
		if _, err := writer.WritePageExport(res.Doc, data, r.Extension()); err != nil {
			logger.Warn("page export failed", "page_id", id, "ext", r.Extension(), "err", err)
		}
	}

	return outcome{pageID: id, res: res}
}
