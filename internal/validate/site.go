package validate

import (
	"regexp"
	"strings"

	"github.com/ppiankov/instaweb/internal/model"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// SiteConfig fills empty fields with defaults and validates the rest
func SiteConfig(cfg model.SiteConfig) (model.SiteConfig, error) {
	def := model.DefaultSiteConfig()

	if cfg.TemplateID == "" {
		cfg.TemplateID = def.TemplateID
	}
	if cfg.PrimaryColor == "" {
		cfg.PrimaryColor = def.PrimaryColor
	}
	if cfg.SecondaryColor == "" {
		cfg.SecondaryColor = def.SecondaryColor
	}
	if cfg.FontFamily == "" {
		cfg.FontFamily = def.FontFamily
	}

	if !colorPattern.MatchString(cfg.PrimaryColor) {
		return cfg, fieldErr("primaryColor", model.MsgColorFormat)
	}
	if !colorPattern.MatchString(cfg.SecondaryColor) {
		return cfg, fieldErr("secondaryColor", model.MsgColorFormat)
	}
	// Font names end up inside a CSS declaration
	if strings.ContainsAny(cfg.FontFamily, `;{}<>"'\`+"\n\r") {
		return cfg, fieldErr("fontFamily", model.MsgFontFamily)
	}

	return cfg, nil
}
