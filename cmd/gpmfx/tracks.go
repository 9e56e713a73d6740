package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mohaanymo/gpmfx/internal/tui"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks <file|url>",
	Short: "List the tracks of a recording",
	Long: `List the tracks of a recording and show which one would be extracted.

Only the container header is read.

Example:
  gpmfx tracks GX010001.MP4
  gpmfx tracks GX010001.MP4 --no-progress`,
	Args: cobra.ExactArgs(1),
	RunE: runTracks,
}

func init() {
	rootCmd.AddCommand(tracksCmd)
}

func runTracks(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.stop()

	tracks, err := a.engine.Inspect(cmd.Context(), inputFor(args[0]))
	if err != nil {
		return err
	}

	if a.cfg.NoProgress || !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderTracks(tracks, a.cfg.Codec))
		return nil
	}

	table := tui.NewTrackTable(args[0], tracks, a.cfg.Codec)
	if _, err := tea.NewProgram(table, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
