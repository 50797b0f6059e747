package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"termshell/internal/environment"
	"termshell/pkg/shelltypes"
)

// Theme maps semantic styles to lipgloss styles bound to one renderer.
type Theme struct {
	renderer *lipgloss.Renderer
	styles   map[shelltypes.Style]lipgloss.Style
}

// NewTheme builds the default theme for w. The color profile honors
// NO_COLOR, CLICOLOR and FORCE_COLOR from env.
func NewTheme(w io.Writer, env environment.Provider, info environment.Info) *Theme {
	renderer := lipgloss.NewRenderer(w, termenv.WithEnvironment(env))

	profile := renderer.Output().EnvColorProfile()
	switch {
	case info.NoColor:
		profile = termenv.Ascii
	case info.ForceColor && profile == termenv.Ascii:
		profile = termenv.ANSI256
	}
	renderer.SetColorProfile(profile)

	t := &Theme{renderer: renderer}
	t.styles = map[shelltypes.Style]lipgloss.Style{
		shelltypes.StyleInfo:      renderer.NewStyle().Foreground(lipgloss.Color("39")),
		shelltypes.StyleSuccess:   renderer.NewStyle().Foreground(lipgloss.Color("42")),
		shelltypes.StyleWarning:   renderer.NewStyle().Foreground(lipgloss.Color("214")),
		shelltypes.StyleError:     renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		shelltypes.StyleCommand:   renderer.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		shelltypes.StyleHighlight: renderer.NewStyle().Foreground(lipgloss.Color("226")),
		shelltypes.StyleMuted:     renderer.NewStyle().Foreground(lipgloss.Color("245")),
		shelltypes.StylePrompt:    renderer.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
	}
	return t
}

// GetStyle returns the style for s, or an unstyled style for unknown names.
func (t *Theme) GetStyle(s shelltypes.Style) TextStyle {
	if style, ok := t.styles[s]; ok {
		return style
	}
	return t.renderer.NewStyle()
}

// IsAvailable reports whether the theme renders any color.
func (t *Theme) IsAvailable() bool {
	return t.renderer.ColorProfile() != termenv.Ascii
}

// Styled renders text with the named style, used for readline prompts.
func (t *Theme) Styled(text string, s shelltypes.Style) string {
	if !t.IsAvailable() {
		return text
	}
	return t.GetStyle(s).Render(text)
}
