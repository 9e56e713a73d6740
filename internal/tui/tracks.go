package tui

import (
	"fmt"
	"strings"

	"github.com/mohaanymo/gpmfx/internal/engine"
	"github.com/mohaanymo/gpmfx/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

// TrackTable is a scrollable view of the tracks of one file. The track an
// extraction would read and its reference video are marked.
type TrackTable struct {
	source       string
	tracks       []*models.Track
	meta         *models.Track
	video        *models.Track
	cursor       int
	scrollOffset int
	visibleRows  int
	width        int
	height       int
}

// NewTrackTable creates a track table for the file named source.
func NewTrackTable(source string, tracks []*models.Track, codec string) *TrackTable {
	sel := engine.NewTrackSelector(tracks, codec)
	return &TrackTable{
		source:      source,
		tracks:      tracks,
		meta:        sel.Meta(),
		video:       sel.Video(),
		width:       80,
		height:      24,
		visibleRows: 15,
	}
}

func (tt *TrackTable) Init() tea.Cmd {
	return nil
}

func (tt *TrackTable) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc", "enter":
			return tt, tea.Quit

		case "up", "k":
			if tt.cursor > 0 {
				tt.cursor--
				tt.adjustScroll()
			}

		case "down", "j":
			if tt.cursor < len(tt.tracks)-1 {
				tt.cursor++
				tt.adjustScroll()
			}

		case "m":
			// Jump to the metadata track.
			for i, t := range tt.tracks {
				if t == tt.meta {
					tt.cursor = i
					tt.adjustScroll()
				}
			}
		}

	case tea.WindowSizeMsg:
		tt.width = msg.Width
		tt.height = msg.Height
		tt.visibleRows = clamp(msg.Height-14, 3, 40)
		tt.adjustScroll()
	}

	return tt, nil
}

func (tt *TrackTable) adjustScroll() {
	if tt.cursor < tt.scrollOffset {
		tt.scrollOffset = tt.cursor
	}
	if tt.cursor >= tt.scrollOffset+tt.visibleRows {
		tt.scrollOffset = tt.cursor - tt.visibleRows + 1
	}
}

func (tt *TrackTable) View() string {
	w := clamp(tt.width-4, 60, 100)

	var b strings.Builder

	title := appTitle.Render("⚡ gpmfx")
	subtitle := muted.Render(" - " + truncate(tt.source, w-20))
	b.WriteString(headerBox.Width(w).Render(title + subtitle))
	b.WriteString("\n\n")

	b.WriteString(sectionTitle.Render(fmt.Sprintf("Tracks (%d)", len(tt.tracks))))
	b.WriteString("\n\n")

	if tt.scrollOffset > 0 {
		b.WriteString(muted.Render("  ↑ more tracks above"))
		b.WriteString("\n")
	}
	end := min(tt.scrollOffset+tt.visibleRows, len(tt.tracks))
	for i := tt.scrollOffset; i < end; i++ {
		b.WriteString(tt.renderRow(tt.tracks[i], i == tt.cursor))
		b.WriteString("\n")
	}
	if end < len(tt.tracks) {
		b.WriteString(muted.Render("  ↓ more tracks below"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(tt.tracks) > 0 {
		b.WriteString(renderDetail(tt.tracks[tt.cursor]))
		b.WriteString("\n\n")
	}

	if tt.meta == nil {
		b.WriteString(warnText.Render("no metadata track in this file"))
	} else {
		b.WriteString(muted.Render(fmt.Sprintf("extracts track %d", tt.meta.ID)))
	}
	b.WriteString("\n\n")

	b.WriteString(helpText.Render(
		helpKey.Render("↑/↓") + " navigate  " +
			helpKey.Render("m") + " metadata track  " +
			helpKey.Render("q") + " quit",
	))

	return panelBox.Width(w).Render(b.String())
}

func (tt *TrackTable) renderRow(t *models.Track, cursor bool) string {
	var b strings.Builder

	if cursor {
		b.WriteString(pointerMark.Render("▸ "))
	} else {
		b.WriteString("  ")
	}
	b.WriteString(row(t, tt.mark(t)))
	return b.String()
}

func (tt *TrackTable) mark(t *models.Track) string {
	switch t {
	case tt.meta:
		return okText.Render("[extract]")
	case tt.video:
		return muted.Render("[timing]")
	}
	return ""
}

func row(t *models.Track, mark string) string {
	var b strings.Builder

	b.WriteString(badge(t))
	b.WriteString(" ")
	b.WriteString(fieldValue.Render(fmt.Sprintf("#%-3d", t.ID)))
	b.WriteString(plainText.Render(fmt.Sprintf("%-6s", t.Codec)))
	b.WriteString(fieldValue.Render(fmt.Sprintf("%-10s", t.Resolution())))
	b.WriteString(muted.Render(fmt.Sprintf("%7d samples", t.SampleCount)))
	if name := strings.TrimSpace(t.Name); name != "" {
		b.WriteString(muted.Render(" • "))
		b.WriteString(plainText.Render(truncate(name, 20)))
	}
	if mark != "" {
		b.WriteString(" ")
		b.WriteString(mark)
	}
	return b.String()
}

func renderDetail(t *models.Track) string {
	parts := []string{
		statLabel.Render("timescale: ") + statValue.Render(fmt.Sprintf("%d", t.Timescale)),
		statLabel.Render("duration: ") + statValue.Render(fmt.Sprintf("%.2fs", t.MovieSeconds())),
	}
	if !t.Created.IsZero() {
		parts = append(parts, statLabel.Render("created: ")+statValue.Render(t.Created.Format("2006-01-02 15:04:05")))
	}
	return strings.Join(parts, "  ")
}

func badge(t *models.Track) string {
	switch t.Type {
	case models.TrackVideo:
		return pill(colorSky, "VIDEO")
	case models.TrackAudio:
		return pill(colorViolet, "AUDIO")
	case models.TrackMetadata:
		return pill(colorAmber, " META")
	case models.TrackSubtitle:
		return pill(colorFaint, "  SUB")
	default:
		return pill(colorFaint, "  ???")
	}
}

// RenderTracks renders the track list without interaction.
func RenderTracks(tracks []*models.Track, codec string) string {
	tt := NewTrackTable("", tracks, codec)
	var b strings.Builder
	for _, t := range tracks {
		b.WriteString(row(t, tt.mark(t)))
		b.WriteString("\n")
	}
	return b.String()
}
