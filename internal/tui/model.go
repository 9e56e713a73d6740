package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohaanymo/gpmfx/internal/engine"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages
type (
	progressMsg engine.ProgressUpdate
	tickMsg     time.Time
	DoneMsg     struct{}
	ErrorMsg    struct{ Err error }
)

// States
type appState int

const (
	stateStarting appState = iota
	stateExtracting
	stateDone
	stateError
)

type jobProgress struct {
	name    string
	percent int
	bytes   int
	done    bool
	err     error
}

// Model shows the progress of a batch extraction.
type Model struct {
	state      appState
	width      int
	height     int
	frame      int
	codec      string
	outputDir  string
	progressCh <-chan engine.ProgressUpdate
	cancel     func()

	jobs      []*jobProgress
	finished  int
	failed    int
	extracted int64
	startTime time.Time
	err       error
}

// NewModel creates a model for the given input names, in job index order.
// cancel is called when the user quits before the batch ends.
func NewModel(names []string, codec, outputDir string, progressCh <-chan engine.ProgressUpdate, cancel func()) *Model {
	jobs := make([]*jobProgress, len(names))
	for i, n := range names {
		jobs[i] = &jobProgress{name: n}
	}
	if cancel == nil {
		cancel = func() {}
	}

	return &Model{
		codec:      codec,
		outputDir:  outputDir,
		progressCh: progressCh,
		cancel:     cancel,
		jobs:       jobs,
		startTime:  time.Now(),
		state:      stateStarting,
		width:      80,
		height:     24,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listenProgress(), tick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case progressMsg:
		m.handleProgress(engine.ProgressUpdate(msg))
		m.state = stateExtracting
		return m, m.listenProgress()

	case tickMsg:
		m.frame++
		return m, tick()

	case DoneMsg:
		m.state = stateDone
		return m, tea.Quit

	case ErrorMsg:
		m.state = stateError
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) View() string {
	w := clamp(m.width-4, 60, 100)

	var b strings.Builder
	b.WriteString(m.viewHeader(w))
	b.WriteString("\n\n")
	b.WriteString(m.viewContent(w))

	return b.String()
}

func (m *Model) viewHeader(w int) string {
	title := appTitle.Render("⚡ gpmfx")
	subtitle := muted.Render(" - metadata track extractor")

	codecLabel := fieldLabel.Render("codec:")
	codecValue := fieldValue.Render(m.codec)

	outLabel := fieldLabel.Render("out:")
	outValue := muted.Render(truncate(m.outputDir, w-30))

	line1 := title + subtitle
	line2 := fmt.Sprintf("%s %s  %s %s", codecLabel, codecValue, outLabel, outValue)

	return headerBox.Width(w).Render(line1 + "\n" + line2)
}

func (m *Model) viewContent(w int) string {
	var b strings.Builder

	b.WriteString(sectionTitle.Render("Files"))
	b.WriteString("\n\n")

	for _, j := range m.jobs {
		b.WriteString(m.renderJob(j))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(sectionTitle.Render("Progress"))
	b.WriteString("\n\n")
	b.WriteString(m.renderOverallProgress(w - 6))
	b.WriteString("\n\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return panelBox.Width(w).Render(b.String())
}

func (m *Model) renderJob(j *jobProgress) string {
	var b strings.Builder

	switch {
	case j.err != nil:
		b.WriteString(pill(colorRed, "FAIL"))
	case j.done:
		b.WriteString(pill(colorGreen, " OK "))
	default:
		b.WriteString(pill(colorAmber, "GPMF"))
	}
	b.WriteString(" ")
	b.WriteString(plainText.Render(fmt.Sprintf("%-24s", truncate(filepath.Base(j.name), 24))))
	b.WriteString(" ")

	b.WriteString(bar(float64(j.percent)/100, 30))
	b.WriteString(" ")
	b.WriteString(statValue.Render(fmt.Sprintf("%3d%%", j.percent)))

	switch {
	case j.err != nil:
		b.WriteString(" " + failText.Render(truncate(j.err.Error(), 40)))
	case j.done:
		b.WriteString(muted.Render(" " + formatBytes(int64(j.bytes))))
	}
	return b.String()
}

func (m *Model) renderOverallProgress(w int) string {
	pct := 0.0
	if len(m.jobs) > 0 {
		var sum int
		for _, j := range m.jobs {
			sum += j.percent
		}
		pct = float64(sum) / float64(100*len(m.jobs))
	}

	barWidth := clamp(w-20, 20, 80)
	return bar(pct, barWidth) + " " + statValue.Render(fmt.Sprintf("%.1f%%", pct*100))
}

func (m *Model) renderStats() string {
	stats := []struct {
		label string
		value string
	}{
		{"Files", fmt.Sprintf("%d/%d", m.finished, len(m.jobs))},
		{"Failed", fmt.Sprintf("%d", m.failed)},
		{"Extracted", formatBytes(m.extracted)},
		{"Elapsed", formatDuration(time.Since(m.startTime))},
	}

	var parts []string
	for _, s := range stats {
		part := statLabel.Render(s.label+": ") + statValue.Render(s.value)
		parts = append(parts, part)
	}

	return strings.Join(parts, "  ")
}

func (m *Model) renderStatus() string {
	switch m.state {
	case stateStarting:
		return spinnerMark.Render(spinner[m.frame%len(spinner)]) + muted.Render(" starting...")
	case stateExtracting:
		return spinnerMark.Render(spinner[m.frame%len(spinner)]) + muted.Render(" extracting metadata...")
	case stateDone:
		if m.failed > 0 {
			return warnText.Render(fmt.Sprintf("! %d of %d files failed", m.failed, len(m.jobs)))
		}
		return okText.Render("✓ extraction complete!")
	case stateError:
		return failText.Render(fmt.Sprintf("✗ error: %v", m.err))
	}
	return ""
}

func (m *Model) renderHelp() string {
	return helpText.Render(
		helpKey.Render("q") + " quit  " +
			helpKey.Render("ctrl+c") + " cancel",
	)
}

func (m *Model) handleProgress(p engine.ProgressUpdate) {
	if p.JobIndex < 0 || p.JobIndex >= len(m.jobs) {
		return
	}
	j := m.jobs[p.JobIndex]
	if j.done || j.err != nil {
		return
	}
	if p.Percent > j.percent {
		j.percent = min(p.Percent, 100)
	}

	switch {
	case p.Error != nil:
		j.err = p.Error
		m.failed++
		m.finished++
	case p.Completed:
		j.done = true
		j.percent = 100
		j.bytes = p.Bytes
		m.extracted += int64(p.Bytes)
		m.finished++
	}
}

func (m *Model) listenProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.progressCh
		if !ok {
			return DoneMsg{}
		}
		return progressMsg(p)
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Helpers

func bar(pct float64, width int) string {
	filled := clamp(int(pct*float64(width)), 0, width)
	return barFilled.Render(strings.Repeat("█", filled)) +
		barEmpty.Render(strings.Repeat("░", width-filled))
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
