package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/instaweb/internal/cache"
	"github.com/ppiankov/instaweb/internal/extract"
	"github.com/ppiankov/instaweb/internal/llm"
	"github.com/ppiankov/instaweb/internal/logger"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/preview"
	"github.com/ppiankov/instaweb/internal/template"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// loadConfig layers defaults, the config file, then INSTAWEB_* variables and bound flags
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	overrideString(&cfg.LLM.Provider, "llm.provider")
	overrideString(&cfg.LLM.Model, "llm.model")
	overrideString(&cfg.LLM.BaseURL, "llm.base_url")
	overrideString(&cfg.Template.Source, "template.source")
	overrideString(&cfg.Template.PhoneRegion, "template.phone_region")
	overrideString(&cfg.Server.Addr, "server.addr")
	overrideString(&cfg.Cache.DiskDir, "cache.disk_dir")
	overrideString(&cfg.Logging.Level, "logging.level")
	overrideString(&cfg.Logging.Format, "logging.format")
	overrideString(&cfg.HTTP.HTTPProxy, "http.http_proxy")
	overrideString(&cfg.HTTP.HTTPSProxy, "http.https_proxy")
	if viper.IsSet("template.strict") {
		cfg.Template.Strict = viper.GetBool("template.strict")
	}
	if viper.IsSet("extraction.local_fallback") {
		cfg.Extraction.LocalFallback = viper.GetBool("extraction.local_fallback")
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := viper.GetString(key); v != "" {
		*dst = v
	}
}

// Flags shared by several commands
var (
	templateSource string
	strictTemplate bool
	useFallback    bool
)

// applyCommonFlags copies the shared flags a command defines onto cfg
func applyCommonFlags(cmd *cobra.Command, cfg *model.Config) {
	if f := cmd.Flags().Lookup("template"); f != nil && f.Changed {
		cfg.Template.Source = templateSource
	}
	if f := cmd.Flags().Lookup("strict"); f != nil && f.Changed {
		cfg.Template.Strict = strictTemplate
	}
	if f := cmd.Flags().Lookup("fallback"); f != nil && f.Changed {
		cfg.Extraction.LocalFallback = useFallback
	}
}

// newLogger builds the process logger from cfg
func newLogger(cfg model.Config) *zap.Logger {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format)
}

// newEngine builds the extraction engine. Missing credentials are not fatal:
// the engine then fails each extraction with ErrMissingCredentials.
func newEngine(cfg model.Config, log *zap.Logger) (*extract.Engine, error) {
	llmCfg := llm.ApplyEnv(llm.ConfigFromModel(cfg.LLM))

	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		if !errors.Is(err, model.ErrMissingCredentials) {
			return nil, fmt.Errorf("create provider: %w", err)
		}
		log.Warn("no credentials for completion provider",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("env", llm.APIKeyEnv(cfg.LLM.Provider)),
		)
		provider = nil
	}

	timeout := cfg.Extraction.Timeout
	if timeout <= 0 {
		timeout = time.Duration(cfg.LLM.Timeout) * time.Second
	}

	return extract.NewEngine(provider, timeout, log), nil
}

// withFallback adds the local extractor behind primary when enabled
func withFallback(primary extract.Extractor, enabled bool, log *zap.Logger) extract.Extractor {
	if !enabled {
		return primary
	}
	return extract.WithLocalFallback(primary, extract.NewLocalExtractor(), log)
}

// newOrchestrator wires the template fetcher, cache and injector options
func newOrchestrator(cfg model.Config, log *zap.Logger) *preview.Orchestrator {
	cacheCfg := cfg.Cache
	if !cacheCfg.Enabled {
		cacheCfg = model.CacheConfig{}
	}

	templates := preview.NewTemplateCache(
		cfg.Template.Source,
		preview.NewFetcher(cfg.HTTP),
		cache.New(cacheCfg),
		log,
	)

	site := cfg.Site
	if cfg.Template.TemplateID != "" {
		site.TemplateID = cfg.Template.TemplateID
	}

	return preview.NewOrchestrator(templates, site, templateOptions(cfg), log)
}

func templateOptions(cfg model.Config) template.Options {
	return template.Options{
		TemplateID:  cfg.Template.TemplateID,
		Policy:      template.ParsePolicy(cfg.Template.Strict),
		PhoneRegion: cfg.Template.PhoneRegion,
	}
}
