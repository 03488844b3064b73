package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bubbleflow/pkg/controller"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/pipeline"
	"github.com/matzehuels/bubbleflow/pkg/source"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// thresholdStep is the percentile change per +/- key press.
const thresholdStep = 10

// exploreCommand opens the interactive terminal explorer.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		opts    pipeline.Options
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "explore <dataset>",
		Short: "Explore a dataset interactively in the terminal",
		Long: `Explore loads a dataset into the interaction controller and lets you switch
views, metrics and flow types, focus entities and flows, change the threshold
and toggle the theme. Every change recomputes the diagram.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], opts, noCache)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not cache fetched datasets")
	c.addParamFlags(cmd, &opts)
	return cmd
}

func (c *CLI) runExplore(ctx context.Context, ref string, opts pipeline.Options, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, keyer, err := c.newCache(cfg, noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	src, err := c.openSource(ref, store, keyer)
	if err != nil {
		return err
	}

	ctrl, err := controller.New(cfg,
		controller.WithParams(opts),
		controller.WithCanvas(opts.Width, opts.Height))
	if err != nil {
		return err
	}

	// The terminal UI owns the screen; log output would corrupt it.
	c.Logger.SetOutput(io.Discard)

	m := newExploreModel(ctx, ctrl, src)
	defer m.stop()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// =============================================================================
// ExploreModel - Bubbletea model over the controller
// =============================================================================

type (
	// snapshotMsg carries a model published by the controller.
	snapshotMsg struct{ model *model.RenderModel }

	// actionMsg reports the outcome of a controller transition.
	actionMsg struct{ err error }
)

// ExploreModel is the bubbletea model of the explorer.
type ExploreModel struct {
	ctx  context.Context
	ctrl *controller.Controller
	src  source.Source

	updates     <-chan *model.RenderModel
	unsubscribe func()

	snap         *model.RenderModel
	entityCursor int
	flowCursor   int
	loading      bool
	err          error
	height       int
}

func newExploreModel(ctx context.Context, ctrl *controller.Controller, src source.Source) ExploreModel {
	updates, cancel := ctrl.Subscribe()
	return ExploreModel{
		ctx:         ctx,
		ctrl:        ctrl,
		src:         src,
		updates:     updates,
		unsubscribe: cancel,
		snap:        ctrl.Snapshot(),
		loading:     true,
		height:      24,
	}
}

func (m ExploreModel) stop() { m.unsubscribe() }

func (m ExploreModel) Init() tea.Cmd {
	return tea.Batch(m.do(func(ctx context.Context) error {
		return m.ctrl.Load(ctx, m.src)
	}), m.waitForSnapshot())
}

// waitForSnapshot blocks until the controller publishes a model.
func (m ExploreModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return nil
		}
		return snapshotMsg{model: snap}
	}
}

// do runs a controller transition off the UI goroutine.
func (m ExploreModel) do(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{err: fn(m.ctx)}
	}
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.setSnapshot(msg.model)
		return m, m.waitForSnapshot()
	case actionMsg:
		m.loading = false
		m.err = msg.err
		m.setSnapshot(m.ctrl.Snapshot())
		return m, nil
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *ExploreModel) setSnapshot(snap *model.RenderModel) {
	if snap == nil {
		return
	}
	m.snap = snap
	m.entityCursor = clamp(m.entityCursor, len(snap.Entities))
	m.flowCursor = clamp(m.flowCursor, len(snap.Flows))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	return max(i, 0)
}

func (m ExploreModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.snap.Params
	ctrl := m.ctrl

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "v":
		next := cycle(viewNames(ctrl.Views()), p.View, 1)
		return m, m.do(func(ctx context.Context) error { return ctrl.SelectView(ctx, next) })
	case "shift+tab", "V":
		prev := cycle(viewNames(ctrl.Views()), p.View, -1)
		return m, m.do(func(ctx context.Context) error { return ctrl.SelectView(ctx, prev) })
	case "m":
		v := m.currentView()
		next := cycle(v.SupportedMetrics, p.Metric, 1)
		return m, m.do(func(ctx context.Context) error { return ctrl.SelectMetric(ctx, next) })
	case "f":
		v := m.currentView()
		next := cycle(v.SupportedFlowTypes, p.FlowType, 1)
		return m, m.do(func(ctx context.Context) error { return ctrl.SelectFlowType(ctx, next) })
	case "+", "=":
		t := min(p.Threshold+thresholdStep, 100)
		return m, m.do(func(ctx context.Context) error { return ctrl.SetThreshold(ctx, t) })
	case "-":
		t := max(p.Threshold-thresholdStep, 0)
		return m, m.do(func(ctx context.Context) error { return ctrl.SetThreshold(ctx, t) })
	case "left", "h":
		m.entityCursor = clamp(m.entityCursor-1, len(m.snap.Entities))
	case "right", "l":
		m.entityCursor = clamp(m.entityCursor+1, len(m.snap.Entities))
	case "up", "k":
		m.flowCursor = clamp(m.flowCursor-1, len(m.snap.Flows))
	case "down", "j":
		m.flowCursor = clamp(m.flowCursor+1, len(m.snap.Flows))
	case "enter":
		if len(m.snap.Entities) == 0 {
			return m, nil
		}
		id := m.snap.Entities[m.entityCursor].ID
		return m, m.do(func(ctx context.Context) error { return ctrl.SelectEntity(ctx, id) })
	case " ":
		if len(m.snap.Flows) == 0 {
			return m, nil
		}
		id := m.snap.Flows[m.flowCursor].ID
		return m, m.do(func(ctx context.Context) error { return ctrl.SelectFlow(ctx, id) })
	case "c":
		on := !p.CentreFlow
		return m, m.do(func(ctx context.Context) error { return ctrl.SetCentreFlow(ctx, on) })
	case "t":
		return m, m.do(ctrl.ToggleTheme)
	case "esc":
		return m, m.do(ctrl.ClearFocus)
	case "r":
		m.loading = true
		return m, m.do(func(ctx context.Context) error { return ctrl.Load(ctx, m.src) })
	}
	return m, nil
}

func (m ExploreModel) currentView() view.View {
	views := m.ctrl.Views()
	for _, v := range views {
		if v.Name == m.snap.Params.View {
			return v
		}
	}
	return views[0]
}

// cycle returns the element after (or before, for step -1) cur in values.
func cycle[T comparable](values []T, cur T, step int) T {
	if len(values) == 0 {
		return cur
	}
	i := slices.Index(values, cur)
	if i < 0 {
		return values[0]
	}
	return values[(i+step+len(values))%len(values)]
}

func viewNames(views []view.View) []string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return names
}

// =============================================================================
// Rendering
// =============================================================================

var (
	exploreHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	exploreCursorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	explorePanelStyle  = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

func (m ExploreModel) View() string {
	var b strings.Builder
	p := m.snap.Params

	b.WriteString(StyleTitle.Render(m.currentView().DisplayTitle()))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("metric %s · %s flows · threshold %.0f · %s theme",
		p.Metric, p.FlowType, p.Threshold, p.Theme)))
	if p.CentreFlow {
		b.WriteString(StyleHighlight.Render(" · centre"))
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("tab view  m metric  f flow type  +/- threshold  ←/→ ⏎ entity  ↑/↓ ␣ flow  c centre  t theme  esc clear  r reload  q quit"))
	b.WriteString("\n\n")

	switch {
	case m.loading && m.snap.Empty():
		b.WriteString(StyleDim.Render("Loading " + m.src.Name() + "…"))
	case m.snap.Empty():
		b.WriteString(StyleDim.Render("No entities to display"))
	default:
		rows := max(m.height-8, 5)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			explorePanelStyle.Render(m.entityPanel(rows)),
			explorePanelStyle.Render(m.flowPanel(rows))))
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(StyleError.Render(iconError + " " + errors.UserMessage(m.err)))
		b.WriteString("\n")
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("generation %d · %s", m.snap.Generation, m.src.Name())))
	return b.String()
}

func (m ExploreModel) entityPanel(rows int) string {
	var b strings.Builder
	b.WriteString(exploreHeaderStyle.Render(fmt.Sprintf("%-3s %-18s %10s %6s", "", "Entity", "Value", "Rank")))
	b.WriteString("\n")

	start, end := window(m.entityCursor, len(m.snap.Entities), rows)
	for i := start; i < end; i++ {
		e := m.snap.Entities[i]
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("●")
		line := fmt.Sprintf(" %-18s %10s %5.0f%%", truncate(e.Label, 18),
			pipeline.FormatValue(e.AbsoluteValue), e.PercentileRank)
		b.WriteString(cursorMark(i == m.entityCursor) + swatch + m.styleFor(e.Opacity, e.Focus, i == m.entityCursor).Render(line))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m ExploreModel) flowPanel(rows int) string {
	var b strings.Builder
	b.WriteString(exploreHeaderStyle.Render(fmt.Sprintf("%-3s %-24s %s", "", "Flow", "Segments")))
	b.WriteString("\n")

	if len(m.snap.Flows) == 0 {
		b.WriteString(StyleDim.Render("   no flows above threshold"))
		return b.String()
	}

	start, end := window(m.flowCursor, len(m.snap.Flows), rows)
	for i := start; i < end; i++ {
		f := m.snap.Flows[i]
		segs := m.snap.SegmentsOf(f.ID)
		labels := make([]string, 0, len(segs))
		opacity := 0.0
		for _, s := range segs {
			arrow := "→"
			if s.Marker == model.MarkerStart {
				arrow = "←"
			}
			labels = append(labels, lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(arrow+" "+strings.Join(s.Labels, " ")))
			opacity = max(opacity, s.Opacity)
		}
		name := fmt.Sprintf(" %-24s ", truncate(m.flowName(f), 24))
		focused := m.snap.Params.FocusFlow == f.ID
		b.WriteString(cursorMark(i == m.flowCursor) + m.styleFor(opacity, focused, i == m.flowCursor).Render(name) + strings.Join(labels, "  "))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m ExploreModel) flowName(f model.FlowRecord) string {
	label := func(id model.EntityID) string {
		if e, ok := m.snap.Entity(id); ok {
			return e.Label
		}
		return id.String()
	}
	return label(f.From) + " ↔ " + label(f.To)
}

func (m ExploreModel) styleFor(opacity float64, focused, current bool) lipgloss.Style {
	switch {
	case current:
		return exploreCursorStyle
	case focused:
		return StyleHighlight.Bold(true)
	case opacity < 0.5:
		return StyleDim
	}
	return StyleValue
}

func cursorMark(current bool) string {
	if current {
		return exploreCursorStyle.Render("▸ ")
	}
	return "  "
}

// window returns the visible [start, end) range keeping cursor in view.
func window(cursor, n, rows int) (int, int) {
	if n <= rows {
		return 0, n
	}
	start := max(cursor-rows/2, 0)
	end := start + rows
	if end > n {
		end = n
		start = n - rows
	}
	return start, end
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
