package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/instaweb/internal/extract"
	"github.com/ppiankov/instaweb/internal/metrics"
	"github.com/ppiankov/instaweb/internal/model"
)

// completionKey is the limiter key shared by every batch job
const completionKey = "completion"

// Transcript is one conversation to extract
type Transcript struct {
	ID   string `json:"id"`
	Text string `json:"transcript"`
}

// ExtractJob represents a single transcript extraction
type ExtractJob struct {
	Index      int
	Transcript Transcript
	Extractor  extract.Extractor
	Limiter    *Limiter
}

// Execute executes the extraction job
func (j *ExtractJob) Execute(ctx context.Context) Result {
	result := &ExtractResult{Index: j.Index, ID: j.Transcript.ID}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, completionKey); err != nil {
			result.Error = err
			return result
		}
	}

	start := time.Now()
	rec, err := j.Extractor.Extract(ctx, j.Transcript.Text)
	result.Duration = time.Since(start)
	metrics.ExtractionDuration.WithLabelValues("batch").Observe(result.Duration.Seconds())

	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("batch", metrics.OutcomeFailure).Inc()
		result.Error = err
		return result
	}

	metrics.ExtractionsTotal.WithLabelValues("batch", metrics.OutcomeSuccess).Inc()
	result.Record = rec
	return result
}

// ExtractResult represents the result of an extraction job
type ExtractResult struct {
	Index    int
	ID       string
	Record   *model.BusinessRecord
	Error    error
	Duration time.Duration
}

// GetError returns the error from the extraction result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// BatchProcessor extracts many transcripts concurrently
type BatchProcessor struct {
	extractor   extract.Extractor
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor.
// A non-positive requestsPerSecond disables rate limiting.
func NewBatchProcessor(extractor extract.Extractor, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	var limiter *Limiter
	if requestsPerSecond > 0 {
		limiter = NewLimiter(requestsPerSecond, burst)
	}

	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// Process extracts every transcript and returns the results in input order
func (b *BatchProcessor) Process(ctx context.Context, transcripts []Transcript) []*ExtractResult {
	if len(transcripts) == 0 {
		return []*ExtractResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, t := range transcripts {
		job := &ExtractJob{
			Index:      i,
			Transcript: t,
			Extractor:  b.extractor,
			Limiter:    b.limiter,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	extracted := make([]*ExtractResult, 0, len(results))
	for _, result := range results {
		extracted = append(extracted, result.(*ExtractResult))
	}
	sort.Slice(extracted, func(i, j int) bool {
		return extracted[i].Index < extracted[j].Index
	})

	return extracted
}

// ProcessPath reads transcripts from path and extracts them
func (b *BatchProcessor) ProcessPath(ctx context.Context, path string) ([]*ExtractResult, error) {
	transcripts, err := ReadTranscripts(path)
	if err != nil {
		return nil, fmt.Errorf("read transcripts: %w", err)
	}

	return b.Process(ctx, transcripts), nil
}

// ReadTranscripts loads transcripts from a directory of .txt files (one
// conversation per file) or from a JSONL file of {"id","transcript"} objects
func ReadTranscripts(path string) ([]Transcript, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	if info.IsDir() {
		return readTranscriptDir(path)
	}
	return readTranscriptLines(path)
}

func readTranscriptDir(dir string) ([]Transcript, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	sort.Strings(files)

	transcripts := make([]Transcript, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}

		transcripts = append(transcripts, Transcript{
			ID:   strings.TrimSuffix(filepath.Base(file), ".txt"),
			Text: text,
		})
	}

	return transcripts, nil
}

func readTranscriptLines(path string) ([]Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var transcripts []Transcript
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var t Transcript
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			return nil, fmt.Errorf("line %d: empty transcript", lineNo)
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("line-%d", lineNo)
		}

		// Deduplicate by ID
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		transcripts = append(transcripts, t)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return transcripts, nil
}
