// Package ui runs the full-screen watch mode.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// LoadFunc produces one fully rendered report for the given terminal width
// (0 when unknown).
type LoadFunc func(ctx context.Context, width int) (string, error)

type Options struct {
	Title    string
	Interval time.Duration
	Load     LoadFunc
	Now      func() time.Time
}

type model struct {
	opts    Options
	spinner spinner.Model
	width   int
	loading bool
	view    string
	err     string
	updated time.Time
	seq     int
}

type reportMsg struct {
	view string
	err  error
	at   time.Time
}

type tickMsg struct{ seq int }

func Run(opts Options) error {
	if opts.Load == nil {
		return fmt.Errorf("watch: no report loader configured")
	}
	p := tea.NewProgram(initialModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(opts Options) model {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Title == "" {
		opts.Title = "oke-node-inspector"
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{opts: opts, spinner: sp, loading: true}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadCmd(m.opts, m.width))
}

func loadCmd(opts Options, width int) tea.Cmd {
	return func() tea.Msg {
		view, err := opts.Load(context.Background(), width)
		return reportMsg{view: view, err: err, at: opts.Now()}
	}
}

func tickCmd(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{seq: seq} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.seq++
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, loadCmd(m.opts, m.width))
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case reportMsg:
		m.loading = false
		m.updated = msg.at
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.err = ""
			m.view = msg.view
		}
		return m, tickCmd(m.opts.Interval, m.seq)
	case tickMsg:
		// A manual refresh supersedes the timer that was pending before it.
		if msg.seq != m.seq || m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, loadCmd(m.opts, m.width))
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  •  every %s  •  r refresh  •  q quit", m.opts.Title, m.opts.Interval))
	if !m.updated.IsZero() {
		b.WriteString("  •  updated " + m.updated.Format("15:04:05"))
	}
	if m.loading {
		b.WriteString("  " + m.spinner.View() + " loading")
	}
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}
	if m.view != "" {
		b.WriteString(m.view)
	}
	return b.String()
}
