package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func fixedNow() time.Time { return time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC) }

func TestReportUpdatesView(t *testing.T) {
	m := initialModel(Options{Interval: 5 * time.Second, Now: fixedNow, Load: func(context.Context, int) (string, error) { return "", nil }})
	if !m.loading {
		t.Fatal("expected initial model to be loading")
	}
	updated, cmd := m.Update(reportMsg{view: "NODE REPORT\n", at: fixedNow()})
	m2 := updated.(model)
	if m2.loading {
		t.Fatal("expected loading to stop after report")
	}
	if cmd == nil {
		t.Fatal("expected a refresh tick to be scheduled")
	}
	view := m2.View()
	if !strings.Contains(view, "NODE REPORT") || !strings.Contains(view, "updated 09:30:00") || !strings.Contains(view, "every 5s") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestErrorKeepsLastReport(t *testing.T) {
	m := initialModel(Options{Load: func(context.Context, int) (string, error) { return "", nil }})
	updated, _ := m.Update(reportMsg{view: "first"})
	updated, _ = updated.(model).Update(reportMsg{err: errors.New("connection refused")})
	view := updated.(model).View()
	if !strings.Contains(view, "first") || !strings.Contains(view, "Error: connection refused") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestManualRefreshInvalidatesPendingTick(t *testing.T) {
	var widths []int
	m := initialModel(Options{Load: func(_ context.Context, w int) (string, error) {
		widths = append(widths, w)
		return "fresh", nil
	}})
	updated, _ := m.Update(reportMsg{view: "old"})
	updated, _ = updated.(model).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m2 := updated.(model)

	updated, cmd := m2.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m3 := updated.(model)
	if !m3.loading || cmd == nil {
		t.Fatal("expected refresh to start loading")
	}
	if m3.seq != 1 {
		t.Fatalf("seq = %d want 1", m3.seq)
	}

	// A second r while loading is ignored.
	updated, cmd = m3.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd != nil || updated.(model).seq != 1 {
		t.Fatal("expected refresh to be ignored while loading")
	}

	// The stale timer from before the manual refresh does nothing.
	m3.loading = false
	if _, cmd := m3.Update(tickMsg{seq: 0}); cmd != nil {
		t.Fatal("stale tick should not trigger a load")
	}
	updated, cmd = m3.Update(tickMsg{seq: 1})
	if cmd == nil || !updated.(model).loading {
		t.Fatal("current tick should trigger a load")
	}

	msg := loadCmd(m3.opts, m3.width)()
	if rm, ok := msg.(reportMsg); !ok || rm.view != "fresh" {
		t.Fatalf("unexpected load message %#v", msg)
	}
	if len(widths) != 1 || widths[0] != 120 {
		t.Fatalf("loader widths = %v", widths)
	}
}

func TestQuitKeys(t *testing.T) {
	m := initialModel(Options{Load: func(context.Context, int) (string, error) { return "", nil }})
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("expected quit command for %q", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected tea.QuitMsg for %q", key.String())
		}
	}
}

func TestRunRequiresLoader(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatal("expected error without loader")
	}
}
