package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/instaweb/internal/model"
)

func validPartial() model.Partial {
	return model.Partial{
		"businessName": "مطعم النيل",
		"phone":        "01012345678",
	}
}

func TestRecord_Minimal(t *testing.T) {
	rec, err := Record(validPartial())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if rec.BusinessName != "مطعم النيل" {
		t.Errorf("unexpected name: %s", rec.BusinessName)
	}
	if rec.Phone != "01012345678" {
		t.Errorf("unexpected phone: %s", rec.Phone)
	}
	if rec.Services == nil || len(rec.Services) != 0 {
		t.Errorf("expected empty non-nil services, got %#v", rec.Services)
	}
	if rec.BusinessType != model.BusinessOther {
		t.Errorf("expected default businessType other, got %s", rec.BusinessType)
	}
	if rec.Tagline != nil || rec.Email != nil || rec.WhatsApp != nil {
		t.Error("expected absent optionals to be nil")
	}
}

func TestRecord_Phone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
		want    string
	}{
		{"valid latin", "01012345678", false, "01012345678"},
		{"valid arabic digits", "٠١٠١٢٣٤٥٦٧٨", false, "01012345678"},
		{"ten digits", "0101234567", true, ""},
		{"twelve digits", "010123456789", true, ""},
		{"wrong prefix", "02012345678", true, ""},
		{"international", "+201012345678", true, ""},
		{"spaces", "010 1234 5678", true, ""},
		{"empty", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPartial()
			p["phone"] = tt.phone

			rec, err := Record(p)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for phone %q", tt.phone)
				}
				var fe *model.FieldError
				if !errors.As(err, &fe) || fe.Field != "phone" {
					t.Errorf("expected phone field error, got %v", err)
				}
				if !errors.Is(err, model.ErrSchemaViolation) {
					t.Error("expected error to match ErrSchemaViolation")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Phone != tt.want {
				t.Errorf("phone = %q, want %q", rec.Phone, tt.want)
			}
		})
	}
}

func TestRecord_PhoneFormatReason(t *testing.T) {
	p := validPartial()
	p["phone"] = "12345"

	_, err := Record(p)
	var fe *model.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fe.Reason != "رقم الهاتف يجب أن يكون 11 رقم ويبدأ بـ 01" {
		t.Errorf("unexpected reason: %s", fe.Reason)
	}
}

func TestRecord_FirstFailureWins(t *testing.T) {
	_, err := Record(model.Partial{
		"businessName": "x",
		"phone":        "bad",
	})

	var fe *model.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fe.Field != "businessName" {
		t.Errorf("expected businessName to fail first, got %s", fe.Field)
	}
}

func TestRecord_Optionals(t *testing.T) {
	p := validPartial()
	p["tagline"] = "أحلى أكل في مصر"
	p["whatsapp"] = "01198765432"
	p["email"] = "info@nile.com"
	p["address"] = "المعادي"
	p["city"] = "القاهرة"
	p["heroImage"] = "https://example.com/hero.jpg"
	p["facebook"] = "https://facebook.com/nile"
	p["businessType"] = "restaurant"

	rec, err := Record(p)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if model.Deref(rec.WhatsApp) != "01198765432" {
		t.Errorf("unexpected whatsapp: %v", rec.WhatsApp)
	}
	if model.Deref(rec.Email) != "info@nile.com" {
		t.Errorf("unexpected email: %v", rec.Email)
	}
	if rec.BusinessType != model.BusinessRestaurant {
		t.Errorf("unexpected businessType: %s", rec.BusinessType)
	}
	if rec.Logo != nil || rec.Instagram != nil {
		t.Error("expected unset URLs to stay nil")
	}
}

func TestRecord_NullOptionals(t *testing.T) {
	p := validPartial()
	p["tagline"] = nil
	p["whatsapp"] = nil
	p["services"] = []any{}

	rec, err := Record(p)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Tagline != nil || rec.WhatsApp != nil {
		t.Error("expected null optionals to be nil")
	}
}

func TestRecord_EmptyStringIsNotAbsent(t *testing.T) {
	for _, key := range []string{"whatsapp", "email", "heroImage", "logo", "facebook", "instagram", "businessType"} {
		t.Run(key, func(t *testing.T) {
			p := validPartial()
			p[key] = ""

			_, err := Record(p)
			var fe *model.FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError for empty %s, got %v", key, err)
			}
			if fe.Field != key {
				t.Errorf("field = %q, want %q", fe.Field, key)
			}
		})
	}
}

func TestRecord_EmptyFreeTextKept(t *testing.T) {
	p := validPartial()
	p["tagline"] = ""

	rec, err := Record(p)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Tagline == nil || *rec.Tagline != "" {
		t.Errorf("expected empty tagline to be kept, got %v", rec.Tagline)
	}
}

func TestRecord_FieldErrors(t *testing.T) {
	long := func(n int) string {
		s := ""
		for i := 0; i < n; i++ {
			s += "ب"
		}
		return s
	}

	tests := []struct {
		name  string
		key   string
		value any
		field string
	}{
		{"name too long", "businessName", long(101), "businessName"},
		{"tagline too long", "tagline", long(201), "tagline"},
		{"bad whatsapp", "whatsapp", "123", "whatsapp"},
		{"bad email", "email", "not-an-email", "email"},
		{"email without tld", "email", "a@b", "email"},
		{"address too long", "address", long(201), "address"},
		{"city too long", "city", long(51), "city"},
		{"relative url", "logo", "/img/logo.png", "logo"},
		{"ftp url", "instagram", "ftp://example.com/x", "instagram"},
		{"unknown type", "businessType", "bakery", "businessType"},
		{"wrong type", "tagline", 42, "tagline"},
		{"services not array", "services", "شعر", "services"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPartial()
			p[tt.key] = tt.value

			_, err := Record(p)
			var fe *model.FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fe.Field != tt.field {
				t.Errorf("field = %q, want %q", fe.Field, tt.field)
			}
			if fe.Reason == "" {
				t.Error("expected non-empty reason")
			}
		})
	}
}

func TestRecord_NameRuneLength(t *testing.T) {
	p := validPartial()
	// 100 Arabic letters are 200 bytes but within the limit
	name := ""
	for i := 0; i < 100; i++ {
		name += "م"
	}
	p["businessName"] = name

	if _, err := Record(p); err != nil {
		t.Errorf("expected 100-rune name to pass, got %v", err)
	}
}

func TestRecord_Services(t *testing.T) {
	p := validPartial()
	p["services"] = []any{
		map[string]any{"title": "شعر", "description": "خدمات الشعر"},
		map[string]any{"title": "مكياج", "description": "خدمات المكياج", "icon": "💄"},
	}

	rec, err := Record(p)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(rec.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(rec.Services))
	}
	if rec.Services[1].Icon != "💄" {
		t.Errorf("unexpected icon: %q", rec.Services[1].Icon)
	}
}

func TestRecord_ServiceErrors(t *testing.T) {
	p := validPartial()
	p["services"] = []any{
		map[string]any{"title": "شعر", "description": "خدمات الشعر"},
		map[string]any{"title": "م", "description": ""},
	}

	_, err := Record(p)
	var fe *model.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if fe.Field != "services[1].title" {
		t.Errorf("unexpected field: %s", fe.Field)
	}
}

func TestRecord_ServiceDescriptionRequired(t *testing.T) {
	p := validPartial()
	p["services"] = []any{
		map[string]any{"title": "شعر"},
	}

	_, err := Record(p)
	var fe *model.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if !strings.HasPrefix(fe.Field, "services[0]") {
		t.Errorf("unexpected field: %s", fe.Field)
	}

	p["services"] = []any{
		map[string]any{"title": "شعر", "description": nil},
	}
	if _, err := Record(p); err == nil {
		t.Error("expected null description to fail")
	}
}

func TestRecord_ServicesCap(t *testing.T) {
	services := make([]any, 7)
	for i := range services {
		services[i] = map[string]any{"title": "خدمة", "description": ""}
	}

	p := validPartial()
	p["services"] = services

	_, err := Record(p)
	var fe *model.FieldError
	if !errors.As(err, &fe) || fe.Field != "services" {
		t.Fatalf("expected services cap error, got %v", err)
	}

	p["services"] = services[:6]
	if _, err := Record(p); err != nil {
		t.Errorf("expected 6 services to pass, got %v", err)
	}
}

func TestRecord_UnknownKeysStripped(t *testing.T) {
	p := validPartial()
	p["ownerName"] = "أحمد"

	if _, err := Record(p); err != nil {
		t.Errorf("expected unknown key to be ignored, got %v", err)
	}
}

func TestRecord_RawJSON(t *testing.T) {
	rec, err := Record([]byte(`{"businessName":"مطعم النيل","tagline":null,"phone":"01012345678","services":[],"businessType":"restaurant"}`))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.BusinessType != model.BusinessRestaurant {
		t.Errorf("unexpected businessType: %s", rec.BusinessType)
	}

	if _, err := Record([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Record(nil); err == nil {
		t.Error("expected error for nil candidate")
	}
}

func TestRecord_RoundTripsValidRecord(t *testing.T) {
	first, err := Record(validPartial())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	second, err := Record(first)
	if err != nil {
		t.Fatalf("re-validating a valid record failed: %v", err)
	}
	if second.BusinessName != first.BusinessName || second.Phone != first.Phone {
		t.Error("re-validation changed the record")
	}
}

func TestMerge(t *testing.T) {
	prev, err := Record(validPartial())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	merged, err := Merge(prev, model.Partial{"tagline": "أحلى أكل"})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.BusinessName != prev.BusinessName {
		t.Error("merge dropped existing field")
	}
	if model.Deref(merged.Tagline) != "أحلى أكل" {
		t.Errorf("unexpected tagline: %v", merged.Tagline)
	}
	if prev.Tagline != nil {
		t.Error("merge mutated prev")
	}
}

func TestMerge_InvalidPatch(t *testing.T) {
	prev, _ := Record(validPartial())

	_, err := Merge(prev, model.Partial{"phone": "123"})
	if !errors.Is(err, model.ErrSchemaViolation) {
		t.Fatalf("expected schema violation, got %v", err)
	}
	if prev.Phone != "01012345678" {
		t.Error("prev changed after failed merge")
	}
}

func TestMerge_NilPrev(t *testing.T) {
	if _, err := Merge(nil, model.Partial{"tagline": "x"}); err == nil {
		t.Error("expected error when merged object lacks required fields")
	}

	rec, err := Merge(nil, validPartial())
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rec.Phone != "01012345678" {
		t.Errorf("unexpected phone: %s", rec.Phone)
	}
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"info@nile.com", true},
		{"first.last+tag@example.co.uk", true},
		{"info@مطعم.مصر", true},
		{"no-at-sign", false},
		{"@example.com", false},
		{"user@", false},
		{"user@localhost", false},
		{"us er@example.com", false},
	}

	for _, tt := range tests {
		if got := IsEmail(tt.in); got != tt.want {
			t.Errorf("IsEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a.jpg", true},
		{"http://example.com", true},
		{"example.com", false},
		{"/local/path.png", false},
		{"javascript:alert(1)", false},
	}

	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
