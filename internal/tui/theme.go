package tui

import "github.com/charmbracelet/lipgloss"

// Colors. Amber is the telemetry accent; everything else stays neutral.
var (
	colorInk    = lipgloss.Color("#101418")
	colorFrame  = lipgloss.Color("#3b4252")
	colorFaint  = lipgloss.Color("#616e88")
	colorSoft   = lipgloss.Color("#8a93a6")
	colorText   = lipgloss.Color("#d8dee9")
	colorAmber  = lipgloss.Color("#f5a623")
	colorSky    = lipgloss.Color("#5fb3d9")
	colorGreen  = lipgloss.Color("#8fbf6a")
	colorViolet = lipgloss.Color("#b48ead")
	colorRed    = lipgloss.Color("#e06c75")
)

var (
	headerBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(0, 2)
	panelBox = headerBox.Padding(1, 2)

	appTitle     = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	sectionTitle = lipgloss.NewStyle().Foreground(colorSky).Bold(true)

	plainText  = lipgloss.NewStyle().Foreground(colorText)
	muted      = lipgloss.NewStyle().Foreground(colorFaint)
	fieldLabel = muted
	fieldValue = plainText
	statLabel  = lipgloss.NewStyle().Foreground(colorSoft)
	statValue  = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)

	pointerMark = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	okText      = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	failText    = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	warnText    = lipgloss.NewStyle().Foreground(colorAmber)

	helpText = muted
	helpKey  = statLabel

	spinnerMark = lipgloss.NewStyle().Foreground(colorAmber)
	barFilled   = lipgloss.NewStyle().Foreground(colorAmber)
	barEmpty    = muted
)

// pill renders a short label on a colored background.
func pill(bg lipgloss.Color, label string) string {
	return lipgloss.NewStyle().
		Foreground(colorInk).
		Background(bg).
		Padding(0, 1).
		Bold(true).
		Render(label)
}

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
