package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/bubbleflow/pkg/config"
	"github.com/matzehuels/bubbleflow/pkg/controller"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/source"
)

func newLoadedExplorer(t *testing.T) ExploreModel {
	t.Helper()
	ctrl, err := controller.New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	src := &source.BytesSource{Label: "scenario", Data: []byte(scenarioJSON)}
	m := newExploreModel(context.Background(), ctrl, src)
	t.Cleanup(m.stop)

	next, _ := m.Update(m.do(func(ctx context.Context) error { return ctrl.Load(ctx, src) })())
	return next.(ExploreModel)
}

// press sends a key and runs the resulting command synchronously.
func press(t *testing.T, m ExploreModel, key tea.KeyMsg) ExploreModel {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(ExploreModel)
	if cmd == nil {
		return m
	}
	next, _ = m.Update(cmd())
	return next.(ExploreModel)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestExploreLoad(t *testing.T) {
	m := newLoadedExplorer(t)
	if m.loading {
		t.Error("loading should be cleared after the load completes")
	}
	if m.err != nil {
		t.Fatalf("load error: %v", m.err)
	}
	if len(m.snap.Entities) != 3 {
		t.Errorf("entities = %d, want 3", len(m.snap.Entities))
	}
	out := m.View()
	for _, want := range []string{"Pairwise flows", "generation 1", "scenario"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestExploreKeys(t *testing.T) {
	m := newLoadedExplorer(t)

	m = press(t, m, runes("f"))
	if got := m.ctrl.Params().FlowType; got != model.FlowIn {
		t.Errorf("flow type after f = %q, want %q", got, model.FlowIn)
	}

	m = press(t, m, runes("+"))
	if got := m.ctrl.Params().Threshold; got != thresholdStep {
		t.Errorf("threshold after + = %v, want %v", got, thresholdStep)
	}
	m = press(t, m, runes("-"))
	if got := m.ctrl.Params().Threshold; got != 0 {
		t.Errorf("threshold after - = %v, want 0", got)
	}

	m = press(t, m, runes("t"))
	if got := m.ctrl.Params().Theme; got != model.ThemeDark {
		t.Errorf("theme after t = %q, want dark", got)
	}

	m = press(t, m, runes("l"))
	if m.entityCursor != 1 {
		t.Fatalf("entity cursor = %d, want 1", m.entityCursor)
	}
	want := m.snap.Entities[1].ID
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if id := m.ctrl.Params().FocusEntity; id == nil || *id != want {
		t.Errorf("focus = %v, want %d", id, want)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.ctrl.Params().HasFocus() {
		t.Error("esc should clear the focus")
	}
	if m.err != nil {
		t.Errorf("unexpected error: %v", m.err)
	}
}

func TestExploreCursorClamps(t *testing.T) {
	m := newLoadedExplorer(t)
	for range 5 {
		m = press(t, m, runes("h"))
	}
	if m.entityCursor != 0 {
		t.Errorf("cursor = %d, want 0", m.entityCursor)
	}
	for range 5 {
		m = press(t, m, runes("l"))
	}
	if m.entityCursor != 2 {
		t.Errorf("cursor = %d, want 2", m.entityCursor)
	}
}

func TestExploreQuit(t *testing.T) {
	m := newLoadedExplorer(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestCycle(t *testing.T) {
	values := []string{"a", "b", "c"}
	tests := []struct {
		cur  string
		step int
		want string
	}{
		{"a", 1, "b"},
		{"c", 1, "a"},
		{"a", -1, "c"},
		{"missing", 1, "a"},
	}
	for _, tt := range tests {
		if got := cycle(values, tt.cur, tt.step); got != tt.want {
			t.Errorf("cycle(%q, %d) = %q, want %q", tt.cur, tt.step, got, tt.want)
		}
	}
	if got := cycle(nil, "x", 1); got != "x" {
		t.Errorf("cycle on empty = %q, want x", got)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		cursor, n, rows int
		start, end      int
	}{
		{0, 3, 5, 0, 3},
		{0, 10, 4, 0, 4},
		{5, 10, 4, 3, 7},
		{9, 10, 4, 6, 10},
	}
	for _, tt := range tests {
		start, end := window(tt.cursor, tt.n, tt.rows)
		if start != tt.start || end != tt.end {
			t.Errorf("window(%d, %d, %d) = [%d, %d), want [%d, %d)",
				tt.cursor, tt.n, tt.rows, start, end, tt.start, tt.end)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("truncate = %q, want abcd…", got)
	}
}
