package terminal

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/render"
)

type plainPainter struct{}

func (plainPainter) Paint(text string, _ render.Tone) string { return text }

type stylePainter struct {
	styles map[render.Tone]lipgloss.Style
}

func (p stylePainter) Paint(text string, t render.Tone) string {
	s, ok := p.styles[t]
	if !ok {
		return text
	}
	return s.Render(text)
}

// NewPainter returns a painter for w. When enabled is false the painter
// returns text unchanged.
func NewPainter(w io.Writer, enabled bool) render.Painter {
	if !enabled {
		return plainPainter{}
	}
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI)
	color := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }
	return stylePainter{styles: map[render.Tone]lipgloss.Style{
		render.ToneLow:      color("2"),
		render.ToneMid:      color("6"),
		render.ToneHigh:     color("3"),
		render.ToneCritical: color("1"),
		render.ToneReady:    color("2"),
		render.ToneNotReady: color("1"),
		render.ToneAccent:   color("6"),
		render.ToneWarn:     color("3"),
		render.ToneMuted:    r.NewStyle().Faint(true),
		render.ToneTitle:    color("6").Bold(true),
	}}
}
