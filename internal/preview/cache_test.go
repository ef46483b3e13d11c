package preview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/instaweb/internal/model"
)

// countingLoader counts loads and can block until released
type countingLoader struct {
	calls   atomic.Int32
	gate    chan struct{}
	body    string
	failFor int32
}

func (l *countingLoader) Load(ctx context.Context, source string) ([]byte, error) {
	n := l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	if n <= l.failFor {
		return nil, &LoadError{Source: source, Err: errors.New("unavailable")}
	}
	return []byte(l.body), nil
}

func TestTemplateCache_SingleFetchUnderConcurrency(t *testing.T) {
	loader := &countingLoader{gate: make(chan struct{}), body: "<html></html>"}
	tc := NewTemplateCache("index.html", loader, nil, nil)

	var wg sync.WaitGroup
	results := make([]string, 10)
	errs := make([]error, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tc.Load(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(loader.gate)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Errorf("Expected one underlying fetch, got %d", loader.calls.Load())
	}
	for i := range results {
		if errs[i] != nil || results[i] != "<html></html>" {
			t.Errorf("Caller %d got %q, %v", i, results[i], errs[i])
		}
	}
}

func TestTemplateCache_FailureNotCached(t *testing.T) {
	loader := &countingLoader{body: "<html></html>", failFor: 1}
	tc := NewTemplateCache("index.html", loader, nil, nil)

	if _, err := tc.Load(context.Background()); !errors.Is(err, model.ErrTemplateLoad) {
		t.Fatalf("Expected ErrTemplateLoad, got %v", err)
	}

	body, err := tc.Load(context.Background())
	if err != nil || body != "<html></html>" {
		t.Fatalf("Expected second load to succeed, got %q %v", body, err)
	}

	if _, err := tc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if loader.calls.Load() != 2 {
		t.Errorf("Expected 2 fetches, got %d", loader.calls.Load())
	}
}

func TestTemplateCache_Invalidate(t *testing.T) {
	loader := &countingLoader{body: "<html></html>"}
	tc := NewTemplateCache("index.html", loader, nil, nil)

	_, _ = tc.Load(context.Background())
	_, _ = tc.Load(context.Background())
	if loader.calls.Load() != 1 {
		t.Fatalf("Expected cached body, got %d fetches", loader.calls.Load())
	}

	if err := tc.Invalidate(); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	_, _ = tc.Load(context.Background())
	if loader.calls.Load() != 2 {
		t.Errorf("Expected refetch after invalidate, got %d fetches", loader.calls.Load())
	}
}

func TestTemplateCache_CallerCancelled(t *testing.T) {
	loader := &countingLoader{gate: make(chan struct{}), body: "<html></html>"}
	defer close(loader.gate)
	tc := NewTemplateCache("index.html", loader, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tc.Load(ctx)
	if !errors.Is(err, model.ErrTemplateLoad) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected load error wrapping the deadline, got %v", err)
	}
}

func TestTemplateCache_WrapsForeignErrors(t *testing.T) {
	tc := NewTemplateCache("index.html", loaderFunc(func(ctx context.Context, source string) ([]byte, error) {
		return nil, errors.New("boom")
	}), nil, nil)

	if _, err := tc.Load(context.Background()); !errors.Is(err, model.ErrTemplateLoad) {
		t.Errorf("Expected ErrTemplateLoad, got %v", err)
	}
}

type loaderFunc func(ctx context.Context, source string) ([]byte, error)

func (f loaderFunc) Load(ctx context.Context, source string) ([]byte, error) { return f(ctx, source) }
