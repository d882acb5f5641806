package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Tracker is the shared progress state written by the indexing pipeline and
// read by whichever renderer is active.
type Tracker struct {
	mu          sync.RWMutex
	total       int
	current     int
	currentFile string
	errors      int
	startTime   time.Time
	done        bool
}

// NewTracker creates a tracker.
func NewTracker(total int) *Tracker {
	return &Tracker{total: total, startTime: time.Now()}
}

// Update records progress on a file.
func (t *Tracker) Update(current int, file string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = current
	if file != "" {
		t.currentFile = file
	}
}

// AddError counts a per-file failure.
func (t *Tracker) AddError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors++
}

// Finish marks the run complete.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() (current, total, errors int, file string, done bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.total, t.errors, t.currentFile, t.done
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// tickMsg drives periodic TUI refresh.
type tickMsg time.Time

// progressModel is the bubbletea model for indexing progress.
type progressModel struct {
	tracker *Tracker
	bar     progress.Model
	spin    spinner.Model
	styles  Styles
}

// NewProgressProgram builds the bubbletea program rendering tracker.
func NewProgressProgram(tracker *Tracker) *tea.Program {
	bar := progress.New(progress.WithDefaultGradient())
	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	return tea.NewProgram(progressModel{
		tracker: tracker,
		bar:     bar,
		spin:    spin,
		styles:  DefaultStyles(),
	})
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		if _, _, _, _, done := m.tracker.Snapshot(); done {
			return m, tea.Quit
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m progressModel) View() string {
	current, total, errors, file, done := m.tracker.Snapshot()

	ratio := 0.0
	if total > 0 {
		ratio = float64(current) / float64(total)
	}

	header := m.styles.Header.Render("indexing")
	if done {
		header = m.styles.Success.Render("indexed")
	}

	line := fmt.Sprintf("%s %s %s %d/%d",
		m.spin.View(), header, m.bar.ViewAs(ratio), current, total)
	if errors > 0 {
		line += " " + m.styles.Error.Render(fmt.Sprintf("(%d errors)", errors))
	}
	if file != "" && !done {
		line += "\n  " + m.styles.Dim.Render(file)
	}
	return line + "\n"
}

// PlainReporter prints progress as log lines for non-TTY output.
type PlainReporter struct {
	w        io.Writer
	interval int
}

// NewPlainReporter creates a reporter emitting a line every interval files.
func NewPlainReporter(w io.Writer, interval int) *PlainReporter {
	if interval <= 0 {
		interval = 50
	}
	return &PlainReporter{w: w, interval: interval}
}

// Report prints a progress line at the configured cadence.
func (r *PlainReporter) Report(current, total int, file string) {
	if current%r.interval != 0 && current != total {
		return
	}
	fmt.Fprintf(r.w, "indexed %d/%d files (%s)\n", current, total, file)
}
