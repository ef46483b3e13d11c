package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/util"
)

const maxFetchAttempts = 3

// fetchSleepFunc waits between fetch attempts (overridden in tests)
var fetchSleepFunc = time.Sleep

// LoadError reports a template that could not be loaded
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load template %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == model.ErrTemplateLoad }

// statusError is a non-2xx template response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

// Fetcher loads template documents from http(s) URLs or local files
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg model.HTTPConfig) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
}

// Load reads the template at source. Every failure is a *LoadError.
func (f *Fetcher) Load(ctx context.Context, source string) ([]byte, error) {
	var (
		body []byte
		err  error
	)

	if isRemote(source) {
		body, err = f.FetchWithRetry(ctx, source)
	} else {
		body, err = f.readFile(source)
	}
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &LoadError{Source: source, Err: errors.New("empty template")}
	}

	return body, nil
}

// Fetch retrieves the template body from the given URL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: http.StatusText(resp.StatusCode)}
	}

	return f.readLimited(resp.Body)
}

// FetchWithRetry fetches with up to three attempts, retrying transient failures
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(attempt) * time.Second)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		body, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxFetchAttempts, lastErr)
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return f.readLimited(file)
}

// readLimited reads at most maxBytes and fails on anything larger rather than truncating
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("template exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}

// isRetryableFetchError reports whether a fetch failure is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}

	var ue *url.Error
	return errors.As(err, &ue)
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
