package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/instaweb/internal/preview"
	"github.com/spf13/cobra"
)

var (
	previewOut     string
	previewTimeout time.Duration
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview <record.json>",
	Short: "Render a business record into the landing page template",
	Long: `Preview validates a business record (JSON) and injects it into the
configured template, applying the site configuration (colors, font, RTL).

Example:
  instaweb preview record.json --out site.html
  instaweb extract --file chat.txt | instaweb preview - --template ./my-template.html
  instaweb preview record.json --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "write HTML to this file instead of stdout")
	previewCmd.Flags().StringVar(&templateSource, "template", "", "template file path or URL")
	previewCmd.Flags().BoolVar(&strictTemplate, "strict", false, "fail when a marker for a present field is missing")
	previewCmd.Flags().DurationVar(&previewTimeout, "timeout", 30*time.Second, "template load timeout")
}

func runPreview(cmd *cobra.Command, args []string) error {
	// Validation happens in the orchestrator; raw bytes go straight in
	data, err := readRecordFile(cmd, args[0])
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

	ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
	defer cancel()

	result := newOrchestrator(cfg, log).GeneratePreview(ctx, data)
	if !result.Success {
		return errors.New(result.Error)
	}

	return writePreview(cmd, result)
}

func readRecordFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return data, nil
}

func writePreview(cmd *cobra.Command, result preview.Result) error {
	if previewOut == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), result.HTML)
		return err
	}

	if err := os.WriteFile(previewOut, []byte(result.HTML), 0644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	if result.Record != nil {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s for %s\n", previewOut, result.Record.BusinessName)
	}
	return nil
}
