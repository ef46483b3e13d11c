package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/instaweb/internal/extract"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	batchOut     string
	batchTimeout time.Duration
	batchLocal   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file|dir>",
	Short: "Extract records from many conversations in parallel",
	Long: `Batch extracts business records concurrently:
- Read transcripts from a JSONL file ({"id","transcript"} per line)
  or a directory of .txt files (one conversation per file)
- Process them in parallel with a configurable worker count
- Rate-limit model calls across all workers
- Write one JSON line per transcript, in input order

Example:
  instaweb batch chats.jsonl
  instaweb batch ./chats --concurrency 8 --out records.jsonl
  instaweb batch chats.jsonl --local`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "output JSONL path (default stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchLocal, "local", false, "use the local pattern extractor (no model call)")
	batchCmd.Flags().BoolVar(&useFallback, "fallback", false, "fall back to the local extractor when the model is unreachable")
}

// batchLine is one output record
type batchLine struct {
	ID         string                `json:"id"`
	Success    bool                  `json:"success"`
	Data       *model.BusinessRecord `json:"data,omitempty"`
	Error      string                `json:"error,omitempty"`
	Kind       string                `json:"kind,omitempty"`
	DurationMS int64                 `json:"durationMs"`
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommonFlags(cmd, &cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  InstaWeb Batch Extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", path)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)

	var extractor extract.Extractor
	rps := cfg.Concurrency.RequestsPerSecond
	if batchLocal {
		extractor = extract.WithLocalFallback(nil, extract.NewLocalExtractor(), log)
		rps = 0
		fmt.Fprintf(os.Stderr, "  Extractor:    local\n")
	} else {
		engine, err := newEngine(cfg, log)
		if err != nil {
			return err
		}
		extractor = withFallback(extract.RetryOnRateLimit(engine, cfg.Extraction.RetryDelay, log), cfg.Extraction.LocalFallback, log)
		fmt.Fprintf(os.Stderr, "  Extractor:    %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(extractor, cfg.Concurrency.Workers, rps, cfg.Concurrency.BurstSize)

	fmt.Fprintf(os.Stderr, "⚙️  Reading transcripts...\n")
	results, err := processor.ProcessPath(ctx, path)
	if err != nil {
		return fmt.Errorf("process transcripts: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if batchOut != "" {
		f, err := os.Create(batchOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		out = f
	}

	successCount, failureCount, err := writeBatchResults(out, results)
	if err != nil {
		return err
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d transcripts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	if batchOut != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOut)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeBatchResults writes one JSON line per result and reports progress on stderr
func writeBatchResults(w io.Writer, results []*worker.ExtractResult) (int, int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	successCount, failureCount := 0, 0
	for _, result := range results {
		line := batchLine{
			ID:         result.ID,
			DurationMS: result.Duration.Milliseconds(),
		}

		if result.Error != nil {
			failureCount++
			line.Error = model.UserMessage(result.Error)
			line.Kind = model.KindOf(result.Error)
			fmt.Fprintf(os.Stderr, "✗ %s: %s (%s)\n", result.ID, line.Error, line.Kind)
		} else {
			successCount++
			line.Success = true
			line.Data = result.Record
			fmt.Fprintf(os.Stderr, "✓ %s: %s\n", result.ID, result.Record.BusinessName)
		}

		if err := enc.Encode(line); err != nil {
			return successCount, failureCount, fmt.Errorf("write result: %w", err)
		}
	}

	return successCount, failureCount, nil
}
