package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/stackpm/pkg/pipeline"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// stageLabels holds the running and finished label of each stage.
var stageLabels = map[string][2]string{
	pipeline.StageResolve: {"Resolving", "Resolved"},
	pipeline.StageLink:    {"Linking", "Linked"},
}

const progressInterval = 80 * time.Millisecond

// newReporter picks the terminal progress display when w is an interactive
// terminal and debug output is off; otherwise stages are logged at debug.
func newReporter(w io.Writer, logger *log.Logger, verbose bool) pipeline.Reporter {
	if f, ok := w.(*os.File); ok && !verbose && isTerminal(f) {
		return &tuiReporter{out: f}
	}
	return logReporter{logger: logger}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// =============================================================================
// Log Reporter
// =============================================================================

type logReporter struct {
	logger *log.Logger
}

func (r logReporter) StageStarted(stage string, _ *pipeline.Counter) {
	r.logger.Debug("stage started", "stage", stage)
}

func (r logReporter) StageFinished(stage string, c *pipeline.Counter, err error) {
	if err != nil {
		r.logger.Debug("stage failed", "stage", stage, "done", c.Done(), "total", c.Total(), "err", err)
		return
	}
	r.logger.Debug("stage finished", "stage", stage, "done", c.Done(), "total", c.Total())
}

// =============================================================================
// Terminal Reporter
// =============================================================================

// tuiReporter runs one bubbletea program per stage. Stages are reported
// sequentially, so a single program is live at a time.
type tuiReporter struct {
	out      io.Writer
	program  *tea.Program
	finished chan struct{}
}

func (r *tuiReporter) StageStarted(stage string, c *pipeline.Counter) {
	// Input stays detached so the terminal is never put in raw mode and
	// Ctrl+C still reaches the command's signal context.
	r.program = tea.NewProgram(newProgressModel(stage, c),
		tea.WithOutput(r.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	r.finished = make(chan struct{})
	go func(p *tea.Program, done chan struct{}) {
		defer close(done)
		_, _ = p.Run()
	}(r.program, r.finished)
}

func (r *tuiReporter) StageFinished(_ string, _ *pipeline.Counter, err error) {
	if r.program == nil {
		return
	}
	r.program.Send(stageDoneMsg{err: err})
	<-r.finished
	r.program = nil
}

// =============================================================================
// Progress Model
// =============================================================================

type progressTickMsg time.Time

type stageDoneMsg struct {
	err error
}

// progressModel renders "⠋ Resolving 12/40" until the stage finishes, then
// a final ✓ or ✗ line.
type progressModel struct {
	label   string
	final   string
	counter *pipeline.Counter
	frame   int
	done    bool
	err     error
}

func newProgressModel(stage string, c *pipeline.Counter) progressModel {
	labels, ok := stageLabels[stage]
	if !ok {
		labels = [2]string{stage, stage}
	}
	return progressModel{label: labels[0], final: labels[1], counter: c}
}

func progressTick() tea.Cmd {
	return tea.Tick(progressInterval, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m progressModel) Init() tea.Cmd {
	return progressTick()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, progressTick()
	case stageDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	count := fmt.Sprintf("%d/%d", m.counter.Done(), m.counter.Total())
	switch {
	case m.done && m.err != nil:
		return styleIconError.Render(iconError) + " " + m.label + " " + StyleDim.Render(count) + "\n"
	case m.done:
		return styleIconSuccess.Render(iconSuccess) + " " + m.final + " " + StyleDim.Render(count) + "\n"
	}
	frame := spinnerFrames[m.frame%len(spinnerFrames)]
	return styleIconSpinner.Render(frame) + " " + m.label + " " + StyleDim.Render(count) + "\n"
}
