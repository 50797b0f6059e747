package output

import (
	"strings"

	"termshell/pkg/shelltypes"
)

// PlainTextStyle renders text without escape sequences.
type PlainTextStyle struct{}

// Render joins the text unchanged.
func (PlainTextStyle) Render(text ...string) string {
	return strings.Join(text, " ")
}

// PlainStyleProvider is the fallback provider for redirected output.
type PlainStyleProvider struct{}

// NewPlainStyleProvider creates a plain style provider.
func NewPlainStyleProvider() *PlainStyleProvider {
	return &PlainStyleProvider{}
}

// GetStyle returns PlainTextStyle for every style.
func (p *PlainStyleProvider) GetStyle(_ shelltypes.Style) TextStyle {
	return PlainTextStyle{}
}

// IsAvailable always returns true.
func (p *PlainStyleProvider) IsAvailable() bool {
	return true
}
