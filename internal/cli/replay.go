package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/engine"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/grid"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
)

// defaultReplayInterval is the autoplay delay between moves.
const defaultReplayInterval = 400 * time.Millisecond

// replayCommand creates the replay command, an interactive playback of a
// build plan.
func (c *CLI) replayCommand() *cobra.Command {
	var (
		reportPath string
		auto       bool
		interval   time.Duration
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "replay [LAYOUT]",
		Short: "Step through a build plan interactively",
		Long: `Step through the build plan for a layout, move by move.

With a LAYOUT argument the plan is computed first (and cached). With
--report the plan is taken from a previously saved run report instead.

Keys: right/left step, space toggles autoplay, r restarts, q quits.`,
		Example: `  towerblocks replay BYB/BBB
  towerblocks replay --report run.json --auto`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportPath == "" && len(args) == 0 {
				return fmt.Errorf("either a LAYOUT argument or --report is required")
			}
			layout := ""
			if len(args) == 1 {
				layout = args[0]
			}
			return c.runReplay(cmd.Context(), layout, reportPath, auto, interval, noCache)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "replay the plan from a saved run report")
	cmd.Flags().BoolVar(&auto, "auto", false, "start playing immediately")
	cmd.Flags().DurationVar(&interval, "interval", defaultReplayInterval, "autoplay delay between moves")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}

// runReplay resolves the plan and launches the playback program.
func (c *CLI) runReplay(ctx context.Context, layout, reportPath string, auto bool, interval time.Duration, noCache bool) error {
	var (
		rows, cols int
		plan       grid.Plan
	)

	if reportPath != "" {
		rep, err := report.ReadFile(reportPath)
		if err != nil {
			return err
		}
		if err := rep.Verify(); err != nil {
			return fmt.Errorf("report %s: %w", reportPath, err)
		}
		rows, cols, plan = rep.Rows, rep.Cols, rep.Plan
	} else {
		runner, err := c.newRunner(ctx, noCache)
		if err != nil {
			return fmt.Errorf("initialize runner: %w", err)
		}
		defer runner.Close()

		ev, err := runner.Evaluate(ctx, engine.Options{Layout: layout, Logger: c.Logger})
		if err != nil {
			return err
		}
		if !ev.Feasible {
			printBoard(ev.Config, ev.Rows, ev.Cols)
			printError("Not buildable: %s", ev.Reason)
			return nil
		}
		rows, cols, plan = ev.Rows, ev.Cols, ev.Plan
	}

	if len(plan) == 0 {
		printInfo("Nothing to build")
		return nil
	}

	m, err := newReplayModel(rows, cols, plan, auto, interval)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}

// tickMsg drives autoplay.
type tickMsg time.Time

// replayModel is the bubbletea model for plan playback. The board and the
// prev slice are shared across model copies; only one copy is ever live.
type replayModel struct {
	rows, cols int
	plan       grid.Plan
	board      *grid.Grid
	prev       []grid.Tier // tier each applied move overwrote, for rewinding
	step       int         // moves applied so far
	playing    bool
	interval   time.Duration
}

func newReplayModel(rows, cols int, plan grid.Plan, auto bool, interval time.Duration) (replayModel, error) {
	g, err := grid.New(rows, cols)
	if err != nil {
		return replayModel{}, err
	}
	if interval <= 0 {
		interval = defaultReplayInterval
	}
	return replayModel{
		rows:     rows,
		cols:     cols,
		plan:     plan,
		board:    g,
		prev:     make([]grid.Tier, len(plan)),
		playing:  auto,
		interval: interval,
	}, nil
}

func (m replayModel) Init() tea.Cmd {
	if m.playing {
		return m.tick()
	}
	return nil
}

func (m replayModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// forward applies the next move, remembering what it overwrote.
func (m *replayModel) forward() {
	if m.step >= len(m.plan) {
		return
	}
	mv := m.plan[m.step]
	m.prev[m.step] = m.board.Tier(mv.Row, mv.Col)
	m.board.SetTier(mv.Row, mv.Col, mv.Tier)
	m.step++
}

// back rewinds the last applied move.
func (m *replayModel) back() {
	if m.step == 0 {
		return
	}
	m.step--
	mv := m.plan[m.step]
	m.board.SetTier(mv.Row, mv.Col, m.prev[m.step])
}

func (m replayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l", "n":
			m.playing = false
			m.forward()
		case "left", "h", "p":
			m.playing = false
			m.back()
		case " ":
			m.playing = !m.playing
			if m.playing {
				return m, m.tick()
			}
		case "r":
			m.playing = false
			for m.step > 0 {
				m.back()
			}
		case "e":
			m.playing = false
			for m.step < len(m.plan) {
				m.forward()
			}
		}
	case tickMsg:
		if !m.playing {
			return m, nil
		}
		m.forward()
		if m.step == len(m.plan) {
			m.playing = false
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

func (m replayModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Build replay  %dx%d", m.rows, m.cols)))
	b.WriteString("\n")

	status := "⏸"
	if m.playing {
		status = "▶"
	}
	if m.step == len(m.plan) {
		status = StyleSuccess.Render(iconSuccess)
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("%s move %d/%d", status, m.step, len(m.plan))))
	b.WriteString("\n\n")

	b.WriteString(boardString(m.board.Config(), m.rows, m.cols))
	b.WriteString("\n\n")

	if m.step > 0 {
		b.WriteString(StyleHighlight.Render(fmt.Sprintf("last: %s", m.plan[m.step-1])))
	} else {
		b.WriteString(StyleDim.Render("empty board"))
	}
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render("←/→ step  space play  r restart  e end  q quit"))

	return b.String()
}
