package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/instaweb/internal/llm"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/normalize"
	"github.com/ppiankov/instaweb/internal/validate"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single completion call
const DefaultTimeout = 10 * time.Second

// Extractor turns a transcript into a validated record
type Extractor interface {
	Extract(ctx context.Context, transcript string) (*model.BusinessRecord, error)
}

// Phase is a step of one extraction attempt
type Phase string

const (
	PhaseBuildingPrompt  Phase = "BUILDING_PROMPT"
	PhaseAwaitingService Phase = "AWAITING_SERVICE"
	PhaseParsing         Phase = "PARSING"
	PhaseNormalizing     Phase = "NORMALIZING"
	PhaseValidating      Phase = "VALIDATING"
	PhaseSuccess         Phase = "SUCCESS"
	PhaseFailed          Phase = "FAILED"
)

// ExtractionError reports the phase an attempt failed in.
// Kind is one of the model sentinels; Raw holds model output for logging only.
type ExtractionError struct {
	Phase  Phase
	Kind   error
	Reason string
	Raw    string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("extraction failed at %s: %v: %s", e.Phase, e.Kind, e.Reason)
	}
	return fmt.Sprintf("extraction failed at %s: %v", e.Phase, e.Kind)
}

func (e *ExtractionError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Engine runs the prompt -> completion -> parse -> normalize -> validate pipeline
type Engine struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEngine creates a new extraction engine
func NewEngine(provider llm.Provider, timeout time.Duration, logger *zap.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Extract runs one extraction attempt. It never retries.
func (e *Engine) Extract(ctx context.Context, transcript string) (*model.BusinessRecord, error) {
	log := e.logger.With(zap.Int("transcript_runes", len([]rune(transcript))))

	if e.provider == nil {
		return nil, e.fail(log, PhaseAwaitingService, model.ErrMissingCredentials, "no completion provider configured", "", nil)
	}

	log.Debug("extraction phase", zap.String("phase", string(PhaseBuildingPrompt)))
	prompt := BuildPrompt(transcript)

	log.Debug("extraction phase", zap.String("phase", string(PhaseAwaitingService)), zap.String("provider", e.provider.Name()))
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.provider.Complete(callCtx, llm.CompletionRequest{
		System: SystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		// A deadline hit on our own context is a timeout even if the provider reported it differently
		if callCtx.Err() == context.DeadlineExceeded && !errors.Is(err, model.ErrTimeout) {
			err = fmt.Errorf("%w: %v", model.ErrTimeout, err)
		}
		return nil, e.fail(log, PhaseAwaitingService, serviceKind(err), "", "", err)
	}

	raw := resp.Text

	log.Debug("extraction phase", zap.String("phase", string(PhaseParsing)))
	obj, ok := FirstJSONObject(normalize.Digits(raw))
	if !ok {
		return nil, e.fail(log, PhaseParsing, model.ErrParseFailure, "no JSON object found", raw, nil)
	}

	var candidate model.Partial
	if err := json.Unmarshal([]byte(obj), &candidate); err != nil {
		return nil, e.fail(log, PhaseParsing, model.ErrParseFailure, "output is not a JSON object", raw, err)
	}

	log.Debug("extraction phase", zap.String("phase", string(PhaseNormalizing)))
	normalizeCandidate(candidate)

	log.Debug("extraction phase", zap.String("phase", string(PhaseValidating)))
	rec, err := validate.Record(candidate)
	if err != nil {
		var fe *model.FieldError
		reason := model.MsgInvalidData
		if errors.As(err, &fe) {
			reason = fe.Reason
		}
		return nil, e.fail(log, PhaseValidating, model.ErrSchemaViolation, reason, raw, err)
	}

	log.Debug("extraction phase",
		zap.String("phase", string(PhaseSuccess)),
		zap.String("business_type", string(rec.BusinessType)),
		zap.Int("services", len(rec.Services)),
		zap.Int("tokens", resp.TokensUsed),
	)
	return rec, nil
}

func (e *Engine) fail(log *zap.Logger, phase Phase, kind error, reason, raw string, err error) error {
	log.Warn("extraction failed",
		zap.String("phase", string(PhaseFailed)),
		zap.String("failed_phase", string(phase)),
		zap.String("kind", model.KindOf(kind)),
		zap.String("reason", reason),
		zap.String("raw_output", truncate(raw, 500)),
		zap.Error(err),
	)
	return &ExtractionError{
		Phase:  phase,
		Kind:   kind,
		Reason: reason,
		Raw:    raw,
		Err:    err,
	}
}

// serviceKind picks the sentinel for a failed completion call
func serviceKind(err error) error {
	switch {
	case errors.Is(err, model.ErrTimeout):
		return model.ErrTimeout
	case errors.Is(err, model.ErrRateLimited):
		return model.ErrRateLimited
	case errors.Is(err, model.ErrMissingCredentials):
		return model.ErrMissingCredentials
	case errors.Is(err, model.ErrUpstream):
		return model.ErrUpstream
	default:
		return model.ErrNetwork
	}
}

// normalizeCandidate converts digits that survived as JSON escapes (٠..٩)
func normalizeCandidate(candidate model.Partial) {
	for _, key := range []string{"phone", "whatsapp"} {
		if s, ok := candidate[key].(string); ok {
			candidate[key] = normalize.Digits(s)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "…"
}
