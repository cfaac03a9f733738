package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/docket/internal/report"
	"github.com/ppiankov/docket/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	noFooter     bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Build term reports for many datasets in parallel",
	Long: `Batch processes multiple datasets concurrently:
- Read dataset paths or URLs from input file (one per line)
- Load datasets in parallel with configurable worker count
- Rate-limit fetches per remote host
- Write a JSON and a Markdown term report for each dataset

Example:
  docket batch terms.txt
  docket batch terms.txt --concurrency 8 --output-dir ./reports
  docket batch terms.txt --timeout 5m --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./docket-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	workers := cfg.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}
	includeFooter := cfg.Output.IncludeFooter && !noFooter

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Docket Batch Processing\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(newLoader(), cfg.RosterValue(), workers,
		cfg.Concurrency.RequestsPerSecond, cfg.Concurrency.BurstSize).
		WithLogger(logger)
	for _, h := range cfg.Concurrency.Hosts {
		processor.WithHostRate(h.Host, h.RequestsPerSecond, h.Burst)
	}

	fmt.Fprintf(stderr, "⚙️  Processing datasets with %d workers...\n", workers)
	fmt.Fprintf(stderr, "\n")

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	renderer := report.NewRenderer(includeFooter)
	slugs := make(map[string]bool)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		slug := uniqueSlug(slugs, sanitizeFilename(result.Report.Name))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}

		successCount++
		fmt.Fprintf(stderr, "✓ %s (%d cases, %d%% unanimous)\n",
			result.Source, result.Report.Overview.TotalCases, result.Report.Overview.Unanimous.Percent)
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d datasets\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "dataset"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}

// uniqueSlug returns slug, or slug suffixed with -2, -3, ... when that name
// is already taken, including by a dataset whose own name carries a suffix
func uniqueSlug(seen map[string]bool, slug string) string {
	candidate := slug
	for n := 2; seen[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", slug, n)
	}
	seen[candidate] = true
	return candidate
}
