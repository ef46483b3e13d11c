package extract

import (
	"errors"
	"testing"

	"github.com/ppiankov/instaweb/internal/model"
)

func TestLocalExtractor_Restaurant(t *testing.T) {
	extractor := NewLocalExtractor()

	partial, err := extractor.Extract("عندي مطعم جميل ورقمي 01012345678")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if partial["businessType"] != "restaurant" {
		t.Errorf("Expected restaurant, got %v", partial["businessType"])
	}
	if partial["phone"] != "01012345678" {
		t.Errorf("Expected phone, got %v", partial["phone"])
	}
}

func TestLocalExtractor_MessySalonTranscript(t *testing.T) {
	extractor := NewLocalExtractor()

	transcript := `
    مرحبا انا عندي صالون تجميل
    اسمه صالون الجمال
    الموبايل بتاعي ٠١٢٣٤٥٦٧٨٩٠
    بنعمل شعر ومكياج
    في المعادي
  `

	partial, err := extractor.Extract(transcript)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if partial["businessName"] != "صالون الجمال" {
		t.Errorf("Expected name صالون الجمال, got %v", partial["businessName"])
	}
	if partial["phone"] != "01234567890" {
		t.Errorf("Expected normalized phone, got %v", partial["phone"])
	}
	if partial["businessType"] != "salon" {
		t.Errorf("Expected salon, got %v", partial["businessType"])
	}
}

func TestLocalExtractor_CategoryPriority(t *testing.T) {
	extractor := NewLocalExtractor()

	tests := []struct {
		name       string
		transcript string
		want       model.BusinessType
	}{
		{"restaurant beats store", "محل اكل شعبي 01012345678", model.BusinessRestaurant},
		{"salon beats store", "محل تجميل 01012345678", model.BusinessSalon},
		{"clinic", "عيادة دكتور سامي 01012345678", model.BusinessClinic},
		{"store", "متجر ملابس 01012345678", model.BusinessStore},
		{"other", "شركة نقل 01012345678", model.BusinessOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partial, err := extractor.Extract(tt.transcript)
			if err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			if partial["businessType"] != string(tt.want) {
				t.Errorf("Expected %s, got %v", tt.want, partial["businessType"])
			}
		})
	}
}

func TestLocalExtractor_NameOnly(t *testing.T) {
	extractor := NewLocalExtractor()

	partial, err := extractor.Extract("محل البركة، شارع التحرير")
	if err != nil {
		t.Fatalf("Expected partial success, got %v", err)
	}
	if partial["businessName"] != "البركة" {
		t.Errorf("Unexpected name: %v", partial["businessName"])
	}
	if _, ok := partial["phone"]; ok {
		t.Error("Expected phone to be absent")
	}
}

func TestLocalExtractor_Insufficient(t *testing.T) {
	extractor := NewLocalExtractor()

	_, err := extractor.Extract("أهلا، عايز أعمل موقع")
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Fatalf("Expected ErrInsufficientData, got %v", err)
	}
}
