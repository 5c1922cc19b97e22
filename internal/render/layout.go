package render

import (
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

func width(segs []Segment) int {
	n := 0
	for _, s := range segs {
		n += utf8.RuneCountInString(s.Text)
	}
	return n
}

// fit pads or truncates segs to exactly n runes. Truncated content ends with
// "..." in the tone of the last visible segment.
func fit(segs []Segment, n int) []Segment {
	if n <= 0 {
		return nil
	}
	w := width(segs)
	if w <= n {
		out := append([]Segment(nil), segs...)
		if w < n {
			out = append(out, Segment{Text: strings.Repeat(" ", n-w)})
		}
		return out
	}
	keep := n - len(ellipsis)
	if keep < 0 {
		keep = n
	}
	var out []Segment
	tone := ToneNone
	for _, s := range segs {
		if keep == 0 {
			break
		}
		r := []rune(s.Text)
		if len(r) > keep {
			r = r[:keep]
		}
		out = append(out, Segment{Text: string(r), Tone: s.Tone})
		tone = s.Tone
		keep -= len(r)
	}
	if n >= len(ellipsis) {
		out = append(out, Segment{Text: ellipsis, Tone: tone})
	}
	return out
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= len(ellipsis) {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-len(ellipsis)]) + ellipsis
}

func center(s string, n int) string {
	s = truncate(s, n)
	gap := n - utf8.RuneCountInString(s)
	left := gap / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
}

func pad(s string, n int) string {
	if gap := n - utf8.RuneCountInString(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// box draws rows inside a rounded border of exactly w runes per line.
type box struct {
	w      int
	border Tone
	lines  Document
}

func newBox(w int, title string, titleTone, border Tone) *box {
	b := &box{w: w, border: border}
	// "╭─ " + title + " " + fill + "╮"
	title = truncate(title, w-6)
	fill := w - 5 - utf8.RuneCountInString(title)
	b.lines = append(b.lines, Line{
		{Text: "╭─ ", Tone: border},
		{Text: title, Tone: titleTone},
		{Text: " " + strings.Repeat("─", fill) + "╮", Tone: border},
	})
	return b
}

func (b *box) row(segs ...Segment) {
	line := Line{{Text: "│ ", Tone: b.border}}
	line = append(line, fit(segs, b.w-4)...)
	line = append(line, Segment{Text: " │", Tone: b.border})
	b.lines = append(b.lines, line)
}

func (b *box) close() Document {
	b.lines = append(b.lines, Line{{Text: "╰" + strings.Repeat("─", b.w-2) + "╯", Tone: b.border}})
	return b.lines
}

func banner(w int, title string) Document {
	edge := strings.Repeat("═", w-2)
	return Document{
		{{Text: "╔" + edge + "╗", Tone: ToneAccent}},
		{{Text: "║", Tone: ToneAccent}, {Text: center(title, w-2), Tone: ToneTitle}, {Text: "║", Tone: ToneAccent}},
		{{Text: "╚" + edge + "╝", Tone: ToneAccent}},
	}
}
