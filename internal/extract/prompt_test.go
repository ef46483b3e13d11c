package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/instaweb/internal/validate"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("عندي محل البركة ورقمي 01112345678")

	if !strings.HasPrefix(prompt, SystemPrompt) {
		t.Error("Expected prompt to start with the instruction text")
	}
	if !strings.Contains(prompt, "عندي محل البركة ورقمي 01112345678") {
		t.Error("Expected prompt to contain the transcript")
	}
	for _, ex := range Examples {
		if !strings.Contains(prompt, ex.Output) {
			t.Errorf("Expected prompt to contain example output %s", ex.Output)
		}
	}
	if !strings.HasSuffix(prompt, "JSON:") {
		t.Error("Expected prompt to end with the JSON cue")
	}
}

func TestExamples_AreValidRecords(t *testing.T) {
	if len(Examples) < 2 {
		t.Fatalf("Expected at least two worked examples, got %d", len(Examples))
	}

	for _, ex := range Examples {
		if !json.Valid([]byte(ex.Output)) {
			t.Errorf("Example output is not valid JSON: %s", ex.Output)
			continue
		}
		if _, err := validate.Record([]byte(ex.Output)); err != nil {
			t.Errorf("Example output fails validation: %v", err)
		}
	}
}
