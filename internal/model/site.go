package model

// SiteConfig holds template-level presentation settings
type SiteConfig struct {
	TemplateID     string `json:"templateId" yaml:"template_id"`
	PrimaryColor   string `json:"primaryColor" yaml:"primary_color"`
	SecondaryColor string `json:"secondaryColor" yaml:"secondary_color"`
	FontFamily     string `json:"fontFamily" yaml:"font_family"`
	RTL            bool   `json:"rtl" yaml:"rtl"`
}

const (
	DefaultTemplateID     = "landwind-v1"
	DefaultPrimaryColor   = "#14b8a6"
	DefaultSecondaryColor = "#7e3af2"
	DefaultFontFamily     = "Cairo"
)

// DefaultSiteConfig returns the site configuration used when none is supplied
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		TemplateID:     DefaultTemplateID,
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
		FontFamily:     DefaultFontFamily,
		RTL:            true,
	}
}
