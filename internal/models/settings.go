package models

import (
	"fmt"
	"strings"
)

// AppearanceSettings is the singleton branding/appearance document,
// saved wholesale. The UI applies ThemeProperties as CSS custom properties.
type AppearanceSettings struct {
	CompanyName  string `json:"company_name"`
	LogoURL      string `json:"logo_url,omitempty"`
	FontFamily   string `json:"font_family,omitempty"`
	BaseFontSize int    `json:"base_font_size,omitempty"` // px
	PrimaryColor string `json:"primary_color,omitempty"`
	AccentColor  string `json:"accent_color,omitempty"`
	PrintFooter  string `json:"print_footer,omitempty"`
}

// DefaultAppearanceSettings returns the seed appearance document.
func DefaultAppearanceSettings() *AppearanceSettings {
	return &AppearanceSettings{
		CompanyName:  "HTM Medical",
		FontFamily:   "Inter, sans-serif",
		BaseFontSize: 14,
		PrimaryColor: "#1f6feb",
		AccentColor:  "#d29922",
	}
}

// ThemeProperties maps the appearance settings to CSS custom property
// name/value pairs. Pure function: the rendering layer owns applying them.
func (s *AppearanceSettings) ThemeProperties() map[string]string {
	props := make(map[string]string)
	if f := strings.TrimSpace(s.FontFamily); f != "" {
		props["--app-font-family"] = f
	}
	if s.BaseFontSize > 0 {
		props["--app-font-size"] = fmt.Sprintf("%dpx", s.BaseFontSize)
	}
	if c := strings.TrimSpace(s.PrimaryColor); c != "" {
		props["--app-primary-color"] = c
	}
	if c := strings.TrimSpace(s.AccentColor); c != "" {
		props["--app-accent-color"] = c
	}
	return props
}
