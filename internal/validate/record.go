package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/normalize"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/net/idna"
)

var (
	phonePattern       = regexp.MustCompile(`^01\d{9}$`)
	emailLocalPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-']+$`)
	emailDomainPattern = regexp.MustCompile(`^([a-z0-9-]+\.)+([a-z]{2,}|xn--[a-z0-9-]+)$`)
	idnaProfile        = idna.Lookup
)

// recordShape only asserts JSON types. Constraints are checked field by field afterwards
// so the first failing field can be reported with a precise reason.
const recordShape = `{
  "type": "object",
  "properties": {
    "businessName": {"type": "string"},
    "tagline":      {"type": ["string", "null"]},
    "phone":        {"type": "string"},
    "whatsapp":     {"type": ["string", "null"]},
    "email":        {"type": ["string", "null"]},
    "address":      {"type": ["string", "null"]},
    "city":         {"type": ["string", "null"]},
    "services": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["title", "description"],
        "properties": {
          "title":       {"type": "string"},
          "description": {"type": "string"},
          "icon":        {"type": ["string", "null"]}
        }
      }
    },
    "heroImage":    {"type": ["string", "null"]},
    "logo":         {"type": ["string", "null"]},
    "facebook":     {"type": ["string", "null"]},
    "instagram":    {"type": ["string", "null"]},
    "businessType": {"type": ["string", "null"]}
  }
}`

var loadRecordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", strings.NewReader(recordShape)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// Record validates an untrusted candidate and returns a complete BusinessRecord.
// The candidate may be a model.Partial, a map, a BusinessRecord, or raw JSON bytes.
// On failure the error is a *model.FieldError naming the first offending field.
func Record(candidate any) (*model.BusinessRecord, error) {
	obj, err := toObject(candidate)
	if err != nil {
		return nil, err
	}

	if err := checkShape(obj); err != nil {
		return nil, err
	}

	rec := &model.BusinessRecord{}

	// Declaration order: the first failure wins
	name, _ := obj["businessName"].(string)
	if name == "" {
		return nil, fieldErr("businessName", model.MsgNameRequired)
	}
	if n := runeLen(name); n < 2 || n > 100 {
		return nil, fieldErr("businessName", model.MsgNameLength)
	}
	rec.BusinessName = name

	if s, ok := optString(obj, "tagline"); ok {
		if runeLen(s) > 200 {
			return nil, fieldErr("tagline", model.MsgTaglineLength)
		}
		rec.Tagline = model.String(s)
	}

	phone, _ := obj["phone"].(string)
	phone = normalize.Digits(phone)
	if phone == "" {
		return nil, fieldErr("phone", model.MsgPhoneRequired)
	}
	if !phonePattern.MatchString(phone) {
		return nil, fieldErr("phone", model.MsgPhoneFormat)
	}
	rec.Phone = phone

	if s, ok := optString(obj, "whatsapp"); ok {
		s = normalize.Digits(s)
		if !phonePattern.MatchString(s) {
			return nil, fieldErr("whatsapp", model.MsgPhoneFormat)
		}
		rec.WhatsApp = model.String(s)
	}

	if s, ok := optString(obj, "email"); ok {
		if !IsEmail(s) {
			return nil, fieldErr("email", model.MsgEmailFormat)
		}
		rec.Email = model.String(s)
	}

	if s, ok := optString(obj, "address"); ok {
		if runeLen(s) > 200 {
			return nil, fieldErr("address", model.MsgAddressLength)
		}
		rec.Address = model.String(s)
	}

	if s, ok := optString(obj, "city"); ok {
		if runeLen(s) > 50 {
			return nil, fieldErr("city", model.MsgCityLength)
		}
		rec.City = model.String(s)
	}

	services, err := validateServices(obj["services"])
	if err != nil {
		return nil, err
	}
	rec.Services = services

	for _, f := range []struct {
		key string
		dst **string
	}{
		{"heroImage", &rec.HeroImage},
		{"logo", &rec.Logo},
		{"facebook", &rec.Facebook},
		{"instagram", &rec.Instagram},
	} {
		s, ok := optString(obj, f.key)
		if !ok {
			continue
		}
		if !IsURL(s) {
			return nil, fieldErr(f.key, model.MsgURLFormat)
		}
		*f.dst = model.String(s)
	}

	rec.BusinessType = model.BusinessOther
	if s, ok := optString(obj, "businessType"); ok {
		bt := model.BusinessType(s)
		if !bt.Valid() {
			return nil, fieldErr("businessType", model.MsgBusinessType)
		}
		rec.BusinessType = bt
	}

	if len(rec.Services) > model.MaxServices {
		return nil, fieldErr("services", model.MsgServicesMax)
	}

	return rec, nil
}

// Merge overlays patch on prev and re-validates the combined object.
// On failure prev is left untouched and the caller should keep it.
func Merge(prev *model.BusinessRecord, patch model.Partial) (*model.BusinessRecord, error) {
	base := map[string]any{}
	if prev != nil {
		obj, err := toObject(prev)
		if err != nil {
			return nil, err
		}
		base = obj
	}

	for k, v := range patch {
		base[k] = v
	}

	return Record(base)
}

// IsEmail reports whether s has the local@domain.tld shape with an IDNA-convertible domain
func IsEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if !emailLocalPattern.MatchString(local) {
		return false
	}

	ascii, err := idnaProfile.ToASCII(strings.ToLower(domain))
	if err != nil || ascii == "" {
		return false
	}
	return emailDomainPattern.MatchString(ascii)
}

// IsURL reports whether s is an absolute http(s) URL with a host
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func validateServices(raw any) ([]model.Service, error) {
	items, _ := raw.([]any)
	services := make([]model.Service, 0, len(items))

	for i, item := range items {
		obj, _ := item.(map[string]any)
		prefix := fmt.Sprintf("services[%d]", i)

		title, _ := obj["title"].(string)
		if n := runeLen(title); n < 2 || n > 100 {
			return nil, fieldErr(prefix+".title", model.MsgServiceTitle)
		}

		desc, ok := obj["description"].(string)
		if !ok || runeLen(desc) > 300 {
			return nil, fieldErr(prefix+".description", model.MsgServiceDesc)
		}

		icon, _ := obj["icon"].(string)

		services = append(services, model.Service{
			Title:       title,
			Description: desc,
			Icon:        icon,
		})
	}

	return services, nil
}

// toObject converts any supported candidate into a generic JSON object
func toObject(candidate any) (map[string]any, error) {
	var data []byte
	switch c := candidate.(type) {
	case nil:
		return nil, fieldErr("", model.MsgInvalidData)
	case []byte:
		data = c
	case json.RawMessage:
		data = c
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fieldErr("", model.MsgInvalidData)
		}
		data = b
	}

	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, fieldErr("", model.MsgInvalidData)
	}
	return obj, nil
}

func checkShape(obj map[string]any) error {
	schema, err := loadRecordSchema()
	if err != nil {
		return fmt.Errorf("record schema: %w", err)
	}

	if err := schema.Validate(obj); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fieldErr(firstLocation(verr), model.MsgWrongType)
		}
		return fieldErr("", model.MsgInvalidData)
	}
	return nil
}

// firstLocation returns the deepest instance location of the first cause, as a field path
func firstLocation(verr *jsonschema.ValidationError) string {
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}

	parts := strings.Split(strings.TrimPrefix(verr.InstanceLocation, "/"), "/")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if isIndex(p) {
			fmt.Fprintf(&b, "[%s]", p)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// optString returns an optional string value. Only an absent key or null reads as unset;
// "" is returned as set so the field's own constraint decides.
func optString(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func fieldErr(field, reason string) error {
	return &model.FieldError{Field: field, Reason: reason}
}
