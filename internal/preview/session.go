package preview

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ppiankov/instaweb/internal/extract"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/validate"
	"go.uber.org/zap"
)

// Renderer renders a validated record
type Renderer interface {
	Render(ctx context.Context, rec *model.BusinessRecord) Result
}

// Session is one conversation's preview state: the last valid record and the
// last rendered HTML. Cycles (update, merge, turn, reset) run one at a time;
// a cycle started while another is in flight waits for it.
type Session struct {
	ID string

	extractor extract.Extractor
	renderer  Renderer
	bridge    *Bridge
	logger    *zap.Logger

	// Holds the single cycle slot
	sem chan struct{}

	// Written only by the cycle holder, read by State at any time
	mu      sync.RWMutex
	record  *model.BusinessRecord
	html    string
	lastErr string
}

// State is a point-in-time view of a session
type State struct {
	Record *model.BusinessRecord `json:"record,omitempty"`
	HTML   string                `json:"html,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// NewSession creates a new empty session. extractor and bridge may be nil.
func NewSession(extractor extract.Extractor, renderer Renderer, bridge *Bridge, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		ID:        id,
		extractor: extractor,
		renderer:  renderer,
		bridge:    bridge,
		logger:    logger.With(zap.String("session_id", id)),
		sem:       make(chan struct{}, 1),
	}
}

// State returns the current record, HTML and last error without waiting for a cycle
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Record: s.record, HTML: s.html, Error: s.lastErr}
}

// Bridge returns the render-surface bridge, nil when the session has none
func (s *Session) Bridge() *Bridge {
	return s.bridge
}

// Update replaces the current record with candidate when it is valid
func (s *Session) Update(ctx context.Context, candidate model.Partial) Result {
	if err := s.acquire(ctx); err != nil {
		return Result{Error: model.MsgPreviewFailed}
	}
	defer s.release()

	rec, err := validate.Record(candidate)
	return s.apply(ctx, rec, err)
}

// Merge overlays patch on the current record and keeps the result when it is valid.
// On failure the previous record stays current.
func (s *Session) Merge(ctx context.Context, patch model.Partial) Result {
	if err := s.acquire(ctx); err != nil {
		return Result{Error: model.MsgPreviewFailed}
	}
	defer s.release()

	rec, err := validate.Merge(s.record, patch)
	return s.apply(ctx, rec, err)
}

// Turn runs one chat turn: extract from the transcript, merge, re-render.
// Extractors that yield partial candidates have them merged before validation,
// so an incomplete fallback result can still update the current record.
func (s *Session) Turn(ctx context.Context, transcript string) Result {
	if err := s.acquire(ctx); err != nil {
		return Result{Error: model.MsgPreviewFailed}
	}
	defer s.release()

	if s.extractor == nil {
		return s.reject(model.MsgExtractFailed)
	}

	patch, err := s.extractPatch(ctx, transcript)
	if err != nil {
		s.logger.Info("turn extraction failed", zap.String("kind", model.KindOf(err)))
		return s.reject(model.MsgExtractionRetry)
	}

	rec, err := validate.Merge(s.record, patch)
	return s.apply(ctx, rec, err)
}

func (s *Session) extractPatch(ctx context.Context, transcript string) (model.Partial, error) {
	if pe, ok := s.extractor.(extract.PartialExtractor); ok {
		return pe.ExtractPartial(ctx, transcript)
	}

	extracted, err := s.extractor.Extract(ctx, transcript)
	if err != nil {
		return nil, err
	}
	return model.PartialOf(extracted)
}

// Reset clears the session and the render surface
func (s *Session) Reset(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	s.record = nil
	s.html = ""
	s.lastErr = ""
	s.mu.Unlock()

	if s.bridge != nil {
		return s.bridge.Reset()
	}
	return nil
}

// apply publishes a validated record and re-renders. Must hold the cycle slot.
func (s *Session) apply(ctx context.Context, rec *model.BusinessRecord, verr error) Result {
	if verr != nil {
		s.logger.Debug("candidate rejected", zap.Error(verr))
		return s.reject(model.UserMessage(verr))
	}

	res := s.renderer.Render(ctx, rec)

	s.mu.Lock()
	s.record = rec
	s.lastErr = res.Error
	// On a render failure the last good HTML stays on screen
	if res.Success {
		s.html = res.HTML
	}
	s.mu.Unlock()

	if !res.Success {
		return res
	}

	if s.bridge != nil {
		if err := s.bridge.Update(res.HTML); err != nil {
			s.logger.Warn("render surface update failed", zap.Error(err))
		}
	}
	return res
}

// reject records a failure and leaves the current record in place. Must hold the cycle slot.
func (s *Session) reject(msg string) Result {
	s.mu.Lock()
	s.lastErr = msg
	rec := s.record
	s.mu.Unlock()
	return Result{Error: msg, Record: rec}
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.sem
}
