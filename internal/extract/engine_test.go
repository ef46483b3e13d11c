package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/instaweb/internal/llm"
	"github.com/ppiankov/instaweb/internal/model"
	"go.uber.org/zap/zaptest"
)

// mockProvider is a scripted completion provider
type mockProvider struct {
	text  string
	err   error
	block bool
	calls int
	last  llm.CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.calls++
	m.last = req
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Text: m.text, Model: "mock"}, nil
}

func TestEngine_Extract_Success(t *testing.T) {
	provider := &mockProvider{
		text: `Here you go: {"businessName":"مطعم النيل","tagline":null,"phone":"٠١٠١٢٣٤٥٦٧٨","services":[],"businessType":"restaurant"} enjoy`,
	}
	engine := NewEngine(provider, time.Second, zaptest.NewLogger(t))

	rec, err := engine.Extract(context.Background(), "اسمي أحمد وعندي مطعم اسمه مطعم النيل")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if rec.BusinessName != "مطعم النيل" {
		t.Errorf("Unexpected name: %s", rec.BusinessName)
	}
	if rec.Phone != "01012345678" {
		t.Errorf("Expected normalized phone, got %s", rec.Phone)
	}
	if rec.BusinessType != model.BusinessRestaurant {
		t.Errorf("Unexpected type: %s", rec.BusinessType)
	}

	if provider.last.System != SystemPrompt {
		t.Error("Expected system prompt to be sent as system message")
	}
	if !strings.Contains(provider.last.Prompt, "اسمي أحمد وعندي مطعم اسمه مطعم النيل") {
		t.Error("Expected prompt to contain the transcript")
	}
}

func TestEngine_Extract_EscapedArabicDigits(t *testing.T) {
	provider := &mockProvider{
		text: `{"businessName":"مطعم النيل","phone":"\u0660\u0661\u0660\u0661\u0662\u0663\u0664\u0665\u0666\u0667\u0668"}`,
	}
	engine := NewEngine(provider, time.Second, nil)

	rec, err := engine.Extract(context.Background(), "x")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rec.Phone != "01012345678" {
		t.Errorf("Expected normalized phone, got %s", rec.Phone)
	}
}

func TestEngine_Extract_ParseFailure(t *testing.T) {
	provider := &mockProvider{text: "عذراً، لا أستطيع المساعدة"}
	engine := NewEngine(provider, time.Second, nil)

	_, err := engine.Extract(context.Background(), "x")
	if !errors.Is(err, model.ErrParseFailure) {
		t.Fatalf("Expected ErrParseFailure, got %v", err)
	}

	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("Expected ExtractionError, got %T", err)
	}
	if extErr.Phase != PhaseParsing {
		t.Errorf("Expected PARSING phase, got %s", extErr.Phase)
	}
	if extErr.Raw != "عذراً، لا أستطيع المساعدة" {
		t.Errorf("Expected raw output kept for logging, got %q", extErr.Raw)
	}
}

func TestEngine_Extract_MalformedJSONNotRepaired(t *testing.T) {
	// Trailing comma: a repairing parser would accept this
	provider := &mockProvider{text: `{"businessName":"مطعم النيل","phone":"01012345678",}`}
	engine := NewEngine(provider, time.Second, nil)

	_, err := engine.Extract(context.Background(), "x")
	if !errors.Is(err, model.ErrParseFailure) {
		t.Fatalf("Expected ErrParseFailure, got %v", err)
	}
}

func TestEngine_Extract_SchemaViolation(t *testing.T) {
	provider := &mockProvider{text: `{"businessName":"مطعم النيل","phone":"0101234567"}`}
	engine := NewEngine(provider, time.Second, nil)

	_, err := engine.Extract(context.Background(), "x")
	if !errors.Is(err, model.ErrSchemaViolation) {
		t.Fatalf("Expected ErrSchemaViolation, got %v", err)
	}

	var extErr *ExtractionError
	if !errors.As(err, &extErr) || extErr.Phase != PhaseValidating {
		t.Fatalf("Expected VALIDATING failure, got %v", err)
	}
	if extErr.Reason != model.MsgPhoneFormat {
		t.Errorf("Expected validator reason, got %q", extErr.Reason)
	}

	var fe *model.FieldError
	if !errors.As(err, &fe) || fe.Field != "phone" {
		t.Errorf("Expected phone FieldError in chain, got %v", err)
	}
}

func TestEngine_Extract_RateLimited(t *testing.T) {
	provider := &mockProvider{err: &model.StatusError{StatusCode: 429, Body: "rate limit"}}
	engine := NewEngine(provider, time.Second, nil)

	_, err := engine.Extract(context.Background(), "x")
	if !errors.Is(err, model.ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("Engine must not retry, got %d calls", provider.calls)
	}
}

func TestEngine_Extract_Upstream(t *testing.T) {
	provider := &mockProvider{err: &model.StatusError{StatusCode: 500}}
	engine := NewEngine(provider, time.Second, nil)

	_, err := engine.Extract(context.Background(), "x")
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("Expected ErrUpstream, got %v", err)
	}
}

func TestEngine_Extract_Timeout(t *testing.T) {
	provider := &mockProvider{block: true}
	engine := NewEngine(provider, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := engine.Extract(context.Background(), "x")
	if !errors.Is(err, model.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, model.ErrNetwork) {
		t.Error("Expected timeout to surface as a network failure too")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Timeout did not abort the in-flight call")
	}
	if provider.calls != 1 {
		t.Errorf("Expected exactly one call, got %d", provider.calls)
	}
}

func TestEngine_Extract_NoProvider(t *testing.T) {
	engine := NewEngine(nil, time.Second, nil)

	_, err := engine.Extract(context.Background(), "x")
	if !errors.Is(err, model.ErrMissingCredentials) {
		t.Fatalf("Expected ErrMissingCredentials, got %v", err)
	}
}

func TestExtractionError_Message(t *testing.T) {
	err := &ExtractionError{Phase: PhaseParsing, Kind: model.ErrParseFailure, Reason: "no JSON object found", Raw: "secret raw"}

	if strings.Contains(err.Error(), "secret raw") {
		t.Error("Raw output must not appear in the error message")
	}
	if !strings.Contains(err.Error(), "PARSING") {
		t.Errorf("Expected phase in message, got %s", err.Error())
	}
}
