package template

// Marker is the attribute that identifies an insertion point in the template
type Marker string

const (
	MarkerBusinessName Marker = "data-iw-business-name"
	MarkerTagline      Marker = "data-iw-tagline"
	MarkerPhone        Marker = "data-iw-phone"
	MarkerWhatsApp     Marker = "data-iw-whatsapp"
	MarkerEmail        Marker = "data-iw-email"
	MarkerAddress      Marker = "data-iw-address"
	MarkerHeroImage    Marker = "data-iw-hero-image"
	MarkerLogo         Marker = "data-iw-logo"
	MarkerServices     Marker = "data-iw-services"
	MarkerServiceItem  Marker = "data-iw-service-item"
	MarkerFacebook     Marker = "data-iw-facebook"
	MarkerInstagram    Marker = "data-iw-instagram"

	// Nested inside a service item
	MarkerServiceTitle       Marker = "data-iw-service-title"
	MarkerServiceDescription Marker = "data-iw-service-description"
	MarkerServiceIcon        Marker = "data-iw-service-icon"

	// Set on the style block written by ApplyConfig
	MarkerConfigStyle Marker = "data-iw-config"
)

// Selector returns the attribute selector form, e.g. [data-iw-phone]
func (m Marker) Selector() string {
	return "[" + string(m) + "]"
}

// FieldMarker maps a record field to its insertion point
type FieldMarker struct {
	Field    string
	Marker   Marker
	Required bool
}

// Markers is the fixed field-to-marker table, in injection order
var Markers = []FieldMarker{
	{Field: "businessName", Marker: MarkerBusinessName, Required: true},
	{Field: "tagline", Marker: MarkerTagline},
	{Field: "phone", Marker: MarkerPhone},
	{Field: "whatsapp", Marker: MarkerWhatsApp},
	{Field: "email", Marker: MarkerEmail},
	{Field: "address", Marker: MarkerAddress},
	{Field: "heroImage", Marker: MarkerHeroImage},
	{Field: "logo", Marker: MarkerLogo},
	{Field: "services", Marker: MarkerServices},
	{Field: "services[]", Marker: MarkerServiceItem},
	{Field: "facebook", Marker: MarkerFacebook},
	{Field: "instagram", Marker: MarkerInstagram},
}
