package extract

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/validate"
	"go.uber.org/zap"
)

// DefaultRetryDelay is the fixed backoff before the single rate-limit retry
const DefaultRetryDelay = 2 * time.Second

// retrySleepFunc waits between attempts (injectable for tests)
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryExtractor retries exactly once after a fixed delay when the wrapped
// extractor is rate limited. Timeouts and all other failures are returned as is.
type RetryExtractor struct {
	next   Extractor
	delay  time.Duration
	logger *zap.Logger
}

// RetryOnRateLimit wraps next with the single rate-limit retry
func RetryOnRateLimit(next Extractor, delay time.Duration, logger *zap.Logger) *RetryExtractor {
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryExtractor{next: next, delay: delay, logger: logger}
}

// Extract calls the wrapped extractor, retrying once on ErrRateLimited
func (r *RetryExtractor) Extract(ctx context.Context, transcript string) (*model.BusinessRecord, error) {
	rec, err := r.next.Extract(ctx, transcript)
	if err == nil || !errors.Is(err, model.ErrRateLimited) {
		return rec, err
	}

	r.logger.Info("rate limited, retrying once", zap.Duration("delay", r.delay))
	if sleepErr := retrySleepFunc(ctx, r.delay); sleepErr != nil {
		return nil, err
	}

	return r.next.Extract(ctx, transcript)
}

// PartialExtractor yields an unvalidated candidate. Callers that hold a previous
// record merge it before validating, so the candidate may be incomplete.
type PartialExtractor interface {
	ExtractPartial(ctx context.Context, transcript string) (model.Partial, error)
}

// FallbackExtractor uses the local pattern extractor when the remote service
// cannot be reached or is not configured
type FallbackExtractor struct {
	primary Extractor
	local   *LocalExtractor
	logger  *zap.Logger
}

// WithLocalFallback wraps primary with the local fallback
func WithLocalFallback(primary Extractor, local *LocalExtractor, logger *zap.Logger) *FallbackExtractor {
	if local == nil {
		local = NewLocalExtractor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackExtractor{primary: primary, local: local, logger: logger}
}

// Extract tries the primary extractor, then the local one on connectivity or credential failures.
// A local result must validate on its own.
func (f *FallbackExtractor) Extract(ctx context.Context, transcript string) (*model.BusinessRecord, error) {
	rec, useLocal, err := f.tryPrimary(ctx, transcript)
	if !useLocal {
		return rec, err
	}

	partial, err := f.local.Extract(transcript)
	if err != nil {
		return nil, err
	}
	return validate.Record(partial)
}

// ExtractPartial is Extract without validating the local result
func (f *FallbackExtractor) ExtractPartial(ctx context.Context, transcript string) (model.Partial, error) {
	rec, useLocal, err := f.tryPrimary(ctx, transcript)
	if !useLocal {
		if err != nil {
			return nil, err
		}
		return model.PartialOf(rec)
	}
	return f.local.Extract(transcript)
}

// tryPrimary reports useLocal when there is no primary or it failed in a way the local extractor covers
func (f *FallbackExtractor) tryPrimary(ctx context.Context, transcript string) (*model.BusinessRecord, bool, error) {
	if f.primary == nil {
		return nil, true, nil
	}

	rec, err := f.primary.Extract(ctx, transcript)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, model.ErrNetwork) && !errors.Is(err, model.ErrMissingCredentials) {
		return nil, false, err
	}
	f.logger.Warn("remote extraction unavailable, using local fallback", zap.String("kind", model.KindOf(err)))
	return nil, true, nil
}
