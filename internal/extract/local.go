package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/normalize"
)

// categoryRule maps a keyword pattern to a business type
type categoryRule struct {
	businessType model.BusinessType
	pattern      *regexp.Regexp
}

// LocalExtractor extracts a partial record with fixed patterns, without a remote service
type LocalExtractor struct {
	phone      *regexp.Regexp
	names      []*regexp.Regexp
	categories []categoryRule
}

// NewLocalExtractor creates a new local extractor
func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{
		phone: regexp.MustCompile(`01\d{9}`),
		// Tried in order, first match wins
		names: []*regexp.Regexp{
			regexp.MustCompile(`اسم[ه]?\s*[:\s]+([^\n,،]+)`),
			regexp.MustCompile(`مطعم\s+([^\n,،]+)`),
			regexp.MustCompile(`صالون\s+([^\n,،]+)`),
			regexp.MustCompile(`محل\s+([^\n,،]+)`),
		},
		// Priority order: restaurant > salon > clinic > store
		categories: []categoryRule{
			{model.BusinessRestaurant, regexp.MustCompile(`مطعم|اكل|طبخ`)},
			{model.BusinessSalon, regexp.MustCompile(`صالون|تجميل|شعر|مكياج`)},
			{model.BusinessClinic, regexp.MustCompile(`عياد[ة]|دكتور|طبيب`)},
			{model.BusinessStore, regexp.MustCompile(`محل|متجر|بيع`)},
		},
	}
}

// Extract returns the fields it could find. The result may lack required fields;
// it fails only when neither a name nor a phone is present.
func (e *LocalExtractor) Extract(transcript string) (model.Partial, error) {
	normalized := normalize.Digits(transcript)

	phone := e.phone.FindString(normalized)

	var name string
	for _, pattern := range e.names {
		if m := pattern.FindStringSubmatch(transcript); m != nil {
			name = strings.TrimSpace(m[1])
			break
		}
	}

	if name == "" && phone == "" {
		return nil, model.ErrInsufficientData
	}

	partial := model.Partial{
		"businessType": string(e.classify(transcript)),
	}
	if name != "" {
		partial["businessName"] = name
	}
	if phone != "" {
		partial["phone"] = phone
	}

	return partial, nil
}

// classify returns the first category whose keywords appear in text
func (e *LocalExtractor) classify(text string) model.BusinessType {
	for _, rule := range e.categories {
		if rule.pattern.MatchString(text) {
			return rule.businessType
		}
	}
	return model.BusinessOther
}
