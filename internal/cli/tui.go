package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/roomforge/roomforge/pkg/cache"
	"github.com/roomforge/roomforge/pkg/codec"
	"github.com/roomforge/roomforge/pkg/generate"
)

var (
	tuiBarFilled = lipgloss.NewStyle().Foreground(colorCyan)
	tuiBarEmpty  = lipgloss.NewStyle().Foreground(colorDim)
)

// stepMsg reports one completed stepper chunk.
type stepMsg struct {
	done bool
	err  error
}

// generateModel is the bubbletea model that drives a generation
// Stepper one chunk per frame, so every corridor routed moves the bar.
type generateModel struct {
	ctx     context.Context
	cancel  context.CancelFunc
	stepper *generate.Stepper

	phase    generate.Phase
	progress float64
	done     bool
	err      error
}

func newGenerateModel(ctx context.Context, stepper *generate.Stepper) generateModel {
	stepCtx, cancel := context.WithCancel(ctx)
	return generateModel{
		ctx:     stepCtx,
		cancel:  cancel,
		stepper: stepper,
		phase:   stepper.Phase(),
	}
}

func (m generateModel) Init() tea.Cmd {
	return m.step
}

func (m generateModel) step() tea.Msg {
	done, err := m.stepper.Step(m.ctx)
	return stepMsg{done: done, err: err}
}

func (m generateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// The next Step observes the cancellation and discards
			// partial state.
			m.cancel()
		}
	case stepMsg:
		m.phase = m.stepper.Phase()
		m.progress = m.stepper.Progress()
		if msg.err != nil {
			m.err = msg.err
			m.done = true
			return m, tea.Quit
		}
		if msg.done {
			m.done = true
			return m, tea.Quit
		}
		return m, m.step
	}
	return m, nil
}

func (m generateModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Generating layout"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q to cancel"))
	b.WriteString("\n\n")

	const width = 40
	filled := int(m.progress * width)
	if filled > width {
		filled = width
	}
	b.WriteString("  ")
	b.WriteString(tuiBarFilled.Render(strings.Repeat("█", filled)))
	b.WriteString(tuiBarEmpty.Render(strings.Repeat("░", width-filled)))
	b.WriteString(fmt.Sprintf(" %3.0f%%", m.progress*100))
	b.WriteString("\n\n")
	b.WriteString("  " + StyleDim.Render("phase: ") + StyleValue.Render(string(m.phase)))
	b.WriteString("\n")
	return b.String()
}

// runGenerateTUI runs the pipeline under an interactive progress view.
// The cache read is skipped (the bar would be pointless for a hit) but
// the finished layout is still written back through the runner's cache.
func runGenerateTUI(ctx context.Context, runner *generate.Runner, opts generate.Options) (*generate.Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	stepper, err := generate.NewStepper(opts)
	if err != nil {
		return nil, err
	}

	model := newGenerateModel(ctx, stepper)
	defer model.cancel()
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	if fm, ok := final.(generateModel); ok && fm.err != nil {
		return nil, fm.err
	}

	l, converged, err := stepper.Result()
	if err != nil {
		return nil, err
	}
	result := &generate.Result{
		Layout:      l,
		RequestID:   uuid.NewString(),
		OptionsHash: opts.Hash(),
		Converged:   converged,
		Stats:       stepper.Stats(),
	}
	if data, err := codec.EncodeBinary(l); err == nil {
		_ = runner.Cache.Set(ctx, runner.Keyer.LayoutKey(result.OptionsHash), data, cache.TTLLayout)
	}
	return result, nil
}
