package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/dynvar/internal/assim"
)

type eventMsg assim.Event

type doneMsg struct{}

// TickMsg drives the spinner while the minimiser is busy.
type TickMsg time.Time

// ProgressModel follows an assim.Stream and draws the cost history.
type ProgressModel struct {
	events    <-chan assim.Event
	title     string
	maxIter   int
	costs     []float64
	gradNorms []float64
	last      *assim.Iteration
	analysis  *assim.Analysis
	err       error
	done      bool
	quit      bool
	frame     int
}

// NewProgressModel returns a model reading from events. maxIter sizes the
// progress bar.
func NewProgressModel(title string, events <-chan assim.Event, maxIter int) ProgressModel {
	if maxIter <= 0 {
		maxIter = 1
	}
	return ProgressModel{events: events, title: title, maxIter: maxIter}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tick())
}

func waitForEvent(events <-chan assim.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case eventMsg:
		if msg.Iteration != nil {
			it := *msg.Iteration
			m.last = &it
			m.costs = append(m.costs, it.Cost)
			m.gradNorms = append(m.gradNorms, it.GradNorm)
			return m, waitForEvent(m.events)
		}
		m.analysis = msg.Analysis
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case TickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(GradientTitle.Render(m.title))
	b.WriteString("  ")
	switch {
	case m.err != nil:
		b.WriteString(StatusFailed.Render("FAILED"))
	case m.done:
		b.WriteString(StatusRunning.Render("DONE"))
	default:
		spinner := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		b.WriteString(StatusRunning.Render(spinner[m.frame%len(spinner)] + " minimising"))
	}
	b.WriteString("\n\n")

	n := len(m.costs)
	b.WriteString(ProgressBar(float64(n)/float64(m.maxIter), 40))
	b.WriteString(Subtle.Render(fmt.Sprintf("  %d/%d", n, m.maxIter)))
	b.WriteString("\n\n")

	if m.last != nil {
		b.WriteString(MetricLabel.Render("cost"))
		b.WriteString(MetricValue.Render(Float(m.last.Cost)))
		b.WriteString("\n")
		b.WriteString(MetricLabel.Render("|grad|"))
		b.WriteString(MetricValue.Render(Float(m.last.GradNorm)))
		b.WriteString("  ")
		b.WriteString(SparklineChart(m.gradNorms, 30))
		b.WriteString("\n")
		b.WriteString(MetricLabel.Render("evaluations"))
		b.WriteString(MetricValue.Render(fmt.Sprint(m.last.Evals)))
		b.WriteString("\n\n")
	}

	b.WriteString(PlotCost(m.costs))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(StatusFailed.Render(m.err.Error()))
		b.WriteString("\n")
	} else if m.analysis != nil {
		b.WriteString(Subtle.Render("status: " + m.analysis.Status))
		b.WriteString("\n")
	}
	b.WriteString(KeyHint.Render("q: quit"))
	return GlassPanel.Render(b.String())
}

// Result returns the final analysis and error once the stream has finished.
func (m ProgressModel) Result() (*assim.Analysis, error) {
	return m.analysis, m.err
}

// Aborted reports whether the user quit before the stream finished.
func (m ProgressModel) Aborted() bool { return m.quit && !m.done }

// Costs returns the cost of every major iteration seen so far.
func (m ProgressModel) Costs() []float64 {
	return append([]float64(nil), m.costs...)
}
