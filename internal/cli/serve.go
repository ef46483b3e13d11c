package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/instaweb/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes extraction and preview over HTTP:
  POST   /extract            transcript -> validated record
  POST   /extract/local      transcript -> partial record (no model)
  POST   /preview            partial record -> rendered HTML
  DELETE /preview/cache      drop the cached template
  /sessions/...              incremental preview sessions
  GET    /healthz, /metrics

Example:
  instaweb serve --addr :8080
  INSTAWEB_LLM_PROVIDER=openai instaweb serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
	serveCmd.Flags().StringVar(&templateSource, "template", "", "template file path or URL")
	serveCmd.Flags().BoolVar(&useFallback, "fallback", false, "fall back to the local extractor when the model is unreachable")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	applyCommonFlags(cmd, &cfg)

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, server.Deps{
		Extractor: withFallback(engine, cfg.Extraction.LocalFallback, log),
		Previews:  newOrchestrator(cfg, log),
		Logger:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting instaweb",
		zap.String("version", Version),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("template", cfg.Template.Source),
	)
	return srv.Run(ctx)
}
