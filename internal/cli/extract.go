package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/instaweb/internal/client"
	"github.com/ppiankov/instaweb/internal/extract"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/spf13/cobra"
)

var (
	extractFile    string
	extractLocal   bool
	extractRemote  string
	extractTimeout time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [transcript|-]",
	Short: "Extract a business record from a conversation",
	Long: `Extract reads a conversation and prints the validated business record as JSON.

The transcript is taken from the argument, from --file, or from stdin
when the argument is "-" or omitted. A rate-limited model call is retried
once after 2s; timeouts are not retried.

Example:
  instaweb extract "عندي مطعم اسمه مطعم النيل ورقمي 01012345678"
  instaweb extract --file chat.txt
  cat chat.txt | instaweb extract --local
  instaweb extract --remote http://localhost:8080 --file chat.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "read the transcript from a file")
	extractCmd.Flags().BoolVar(&extractLocal, "local", false, "use the local pattern extractor (no model call)")
	extractCmd.Flags().StringVar(&extractRemote, "remote", "", "extract through a running instaweb server at this base URL")
	extractCmd.Flags().BoolVar(&useFallback, "fallback", false, "fall back to the local extractor when the model is unreachable")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 30*time.Second, "overall timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	transcript, err := readTranscript(cmd.InOrStdin(), args, extractFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommonFlags(cmd, &cfg)

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	out := cmd.OutOrStdout()

	switch {
	case extractLocal:
		partial, err := extract.NewLocalExtractor().Extract(transcript)
		if err != nil {
			return fmt.Errorf("extraction failed: %s", model.UserMessage(err))
		}
		return writeJSON(out, partial)

	case extractRemote != "":
		result := client.New(extractRemote, cfg.HTTP, log).Extract(ctx, transcript)
		if !result.Success {
			return fmt.Errorf("extraction failed: %s", result.Error)
		}
		return writeJSON(out, result.Data)
	}

	engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}
	extractor := withFallback(extract.RetryOnRateLimit(engine, cfg.Extraction.RetryDelay, log), cfg.Extraction.LocalFallback, log)

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Extracting with %s/%s...\n", cfg.LLM.Provider, cfg.LLM.Model)
	}

	rec, err := extractor.Extract(ctx, transcript)
	if err != nil {
		return fmt.Errorf("extraction failed: %s (%s)", model.UserMessage(err), model.KindOf(err))
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %s (%s, %d services)\n", rec.BusinessName, rec.BusinessType, len(rec.Services))
	}
	return writeJSON(out, rec)
}

// readTranscript picks the transcript from --file, the argument, or stdin
func readTranscript(stdin io.Reader, args []string, file string) (string, error) {
	var text string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read transcript: %w", err)
		}
		text = string(data)
	case len(args) == 1 && args[0] != "-":
		text = args[0]
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty transcript")
	}
	return text, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
