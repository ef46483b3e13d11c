package preview

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/instaweb/internal/metrics"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/template"
	"github.com/ppiankov/instaweb/internal/validate"
	"go.uber.org/zap"
)

// Result is the outcome of one preview generation. Error is a short user-facing message.
type Result struct {
	Success bool                  `json:"success"`
	HTML    string                `json:"html,omitempty"`
	Error   string                `json:"error,omitempty"`
	Record  *model.BusinessRecord `json:"-"`
}

// Orchestrator validates candidate data and renders it into the cached template
type Orchestrator struct {
	templates *TemplateCache
	site      model.SiteConfig
	opts      template.Options
	logger    *zap.Logger
}

// NewOrchestrator creates a new preview orchestrator
func NewOrchestrator(templates *TemplateCache, site model.SiteConfig, opts template.Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TemplateID == "" {
		opts.TemplateID = site.TemplateID
	}
	return &Orchestrator{
		templates: templates,
		site:      site,
		opts:      opts,
		logger:    logger,
	}
}

// Templates returns the template cache backing this orchestrator
func (o *Orchestrator) Templates() *TemplateCache {
	return o.templates
}

// GeneratePreview validates candidate and renders it. It never returns an error:
// every failure is reported in Result.Error.
func (o *Orchestrator) GeneratePreview(ctx context.Context, candidate any) Result {
	rec, err := validate.Record(candidate)
	if err != nil {
		metrics.PreviewsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return Result{Error: model.UserMessage(err)}
	}
	return o.Render(ctx, rec)
}

// Render injects an already validated record into the template
func (o *Orchestrator) Render(ctx context.Context, rec *model.BusinessRecord) Result {
	start := time.Now()

	html, err := o.render(ctx, rec)
	if err != nil {
		metrics.PreviewsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		o.logger.Warn("preview failed",
			zap.String("kind", model.KindOf(err)),
			zap.String("template_id", o.opts.TemplateID),
			zap.Error(err),
		)
		return Result{Error: previewMessage(err), Record: rec}
	}

	metrics.PreviewsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	o.logger.Debug("preview rendered",
		zap.Int("bytes", len(html)),
		zap.Duration("duration", time.Since(start)),
	)
	return Result{Success: true, HTML: html, Record: rec}
}

func (o *Orchestrator) render(ctx context.Context, rec *model.BusinessRecord) (string, error) {
	doc, err := o.templates.Load(ctx)
	if err != nil {
		return "", err
	}
	return template.Render(doc, rec, &o.site, o.opts)
}

// previewMessage maps a render failure to its user message
func previewMessage(err error) string {
	var mismatch *template.MismatchError
	switch {
	case errors.As(err, &mismatch):
		return model.TemplateMismatchMessage(mismatch.Selector)
	case errors.Is(err, model.ErrTemplateLoad):
		return model.MsgTemplateLoad
	default:
		return model.MsgPreviewFailed
	}
}
