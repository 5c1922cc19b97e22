package render

import "strings"

// Tone is a symbolic style. The output stage decides what, if anything, it
// looks like.
type Tone int

const (
	ToneNone Tone = iota
	ToneLow
	ToneMid
	ToneHigh
	ToneCritical
	ToneReady
	ToneNotReady
	ToneAccent
	ToneMuted
	ToneWarn
	ToneTitle
)

// Segment is a run of text with a single tone.
type Segment struct {
	Text string
	Tone Tone
}

// Line is one output line.
type Line []Segment

// Text returns the line without styling.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Document is a rendered report.
type Document []Line

// Painter styles a segment for a particular output device.
type Painter interface {
	Paint(text string, t Tone) string
}

// String returns the document as plain text, one line per Line.
func (d Document) String() string {
	var b strings.Builder
	for _, l := range d {
		b.WriteString(l.Text())
		b.WriteByte('\n')
	}
	return b.String()
}

// Paint is String with every toned segment passed through p.
func (d Document) Paint(p Painter) string {
	if p == nil {
		return d.String()
	}
	var b strings.Builder
	for _, l := range d {
		for _, s := range l {
			if s.Tone == ToneNone || s.Text == "" {
				b.WriteString(s.Text)
				continue
			}
			b.WriteString(p.Paint(s.Text, s.Tone))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
