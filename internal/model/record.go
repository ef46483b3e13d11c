package model

import "encoding/json"

// BusinessRecord is the validated business profile extracted from a conversation.
// Instances only exist after passing validation; partial candidates travel as Partial.
type BusinessRecord struct {
	BusinessName string  `json:"businessName"`
	Tagline      *string `json:"tagline,omitempty"`

	// Contact (Egyptian mobile format: 01XXXXXXXXX)
	Phone    string  `json:"phone"`
	WhatsApp *string `json:"whatsapp,omitempty"`
	Email    *string `json:"email,omitempty"`

	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`

	Services []Service `json:"services"` // At most MaxServices (template grid size)

	HeroImage *string `json:"heroImage,omitempty"`
	Logo      *string `json:"logo,omitempty"`

	Facebook  *string `json:"facebook,omitempty"`
	Instagram *string `json:"instagram,omitempty"`

	BusinessType BusinessType `json:"businessType"`
}

// Service is a single offering rendered as one card in the services grid
type Service struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"` // Emoji or icon class
}

// MaxServices is the number of service cards the template grid can render
const MaxServices = 6

// BusinessType classifies the business
type BusinessType string

const (
	BusinessRestaurant BusinessType = "restaurant"
	BusinessStore      BusinessType = "store"
	BusinessServices   BusinessType = "services"
	BusinessClinic     BusinessType = "clinic"
	BusinessSalon      BusinessType = "salon"
	BusinessOther      BusinessType = "other"
)

// BusinessTypes lists every accepted business type
var BusinessTypes = []BusinessType{
	BusinessRestaurant,
	BusinessStore,
	BusinessServices,
	BusinessClinic,
	BusinessSalon,
	BusinessOther,
}

// Valid reports whether t is one of the accepted business types
func (t BusinessType) Valid() bool {
	for _, bt := range BusinessTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// WhatsAppNumber returns the number used for chat links: whatsapp if set, otherwise phone
func (r *BusinessRecord) WhatsAppNumber() string {
	if r.WhatsApp != nil && *r.WhatsApp != "" {
		return *r.WhatsApp
	}
	return r.Phone
}

// Partial is an untrusted, not yet validated candidate record (model output,
// UI patch, or local fallback result). Keys use the BusinessRecord JSON names.
type Partial map[string]any

// PartialOf turns a validated record back into an overlay. Unset optionals are
// omitted so merging it keeps whatever the target already has.
func PartialOf(rec *BusinessRecord) (Partial, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var p Partial
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// Clone returns a shallow copy of the partial
func (p Partial) Clone() Partial {
	out := make(Partial, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns a pointer to s, or nil when s is empty
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
