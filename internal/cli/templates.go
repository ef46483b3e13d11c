package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/instaweb/internal/preview"
	"github.com/ppiankov/instaweb/internal/template"
	"github.com/spf13/cobra"
)

// templateCmd represents the template command
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Inspect landing page templates",
}

var templateCheckCmd = &cobra.Command{
	Use:   "check [source]",
	Short: "Report which insertion markers a template contains",
	Long: `Check loads a template (file path or URL, default: the configured one)
and lists every insertion marker, present or missing. It fails when a
required marker is missing.

Example:
  instaweb template check
  instaweb template check ./templates/landwind/index.html
  instaweb template check https://example.com/template.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplateCheck,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateCheckCmd)
}

func runTemplateCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	source := cfg.Template.Source
	if len(args) == 1 {
		source = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := preview.NewFetcher(cfg.HTTP).Load(ctx, source)
	if err != nil {
		return err
	}

	return checkTemplate(cmd.OutOrStdout(), source, string(body), templateOptions(cfg))
}

// checkTemplate prints the marker report for doc
func checkTemplate(w io.Writer, source, doc string, opts template.Options) error {
	inj, err := template.New(doc, opts)
	if err != nil {
		fmt.Fprintf(w, "✗ %s: %v\n", source, err)
		return err
	}

	missing := make(map[template.Marker]bool)
	for _, m := range inj.MissingMarkers() {
		missing[m] = true
	}

	fmt.Fprintf(w, "Template: %s (%s)\n\n", source, inj.TemplateID())
	for _, fm := range template.Markers {
		status := "✓"
		if missing[fm.Marker] {
			status = "-"
		}
		required := ""
		if fm.Required {
			required = " (required)"
		}
		fmt.Fprintf(w, "  %s %-28s %s%s\n", status, fm.Marker.Selector(), fm.Field, required)
	}
	fmt.Fprintf(w, "\n%d of %d markers present\n", len(template.Markers)-len(missing), len(template.Markers))

	return nil
}
