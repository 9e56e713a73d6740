package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mohaanymo/gpmfx/internal/config"
	"github.com/mohaanymo/gpmfx/internal/engine"
	"github.com/mohaanymo/gpmfx/internal/source"
	"github.com/mohaanymo/gpmfx/internal/tui"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file|url>...",
	Short: "Extract the telemetry track of one or more recordings",
	Long: `Extract the telemetry track of one or more recordings.

Inputs are local paths or http(s) URLs. Files are processed concurrently
(--threads) and written to the output directory as <name>.gpmf and
<name>.timing.json.

Example:
  gpmfx extract GX010001.MP4
  gpmfx extract /media/*.MP4 -o telemetry -n 8
  gpmfx extract https://example.com/GX010001.MP4 --max-bandwidth 4000000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&flags.OutputDir, "output", "o", ".", "output directory")
	extractCmd.Flags().IntVarP(&flags.Threads, "threads", "n", config.DefaultThreads, "files processed concurrently")
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	progressCh := make(chan engine.ProgressUpdate, 64)
	pool := engine.NewWorkerPool(a.cfg.Threads, a.engine, engine.NewFileWriter(a.cfg.OutputDir), progressCh)
	pool.Start(ctx)

	done := make(chan error, 1)
	go func() {
		for i, arg := range args {
			pool.Submit(&engine.Job{Index: i, Input: inputFor(arg), BasePath: baseNameFor(arg)})
		}
		err := pool.Wait()
		close(progressCh)
		done <- err
	}()

	if a.cfg.NoProgress || !isatty.IsTerminal(os.Stdout.Fd()) {
		printProgress(cmd.OutOrStdout(), args, progressCh)
	} else {
		model := tui.NewModel(args, a.cfg.Codec, a.cfg.OutputDir, progressCh, cancel)
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			cancel()
			<-done
			return fmt.Errorf("TUI error: %w", err)
		}
	}
	batchErr := <-done

	printResults(cmd.OutOrStdout(), args, pool.Results())
	return batchErr
}

// inputFor maps a command-line argument to an input.
func inputFor(arg string) source.Input {
	if isURL(arg) {
		return source.URL{Address: arg}
	}
	return source.Path{Name: arg}
}

func baseNameFor(arg string) string {
	if isURL(arg) {
		if u, err := url.Parse(arg); err == nil {
			return engine.BaseName(path.Base(u.Path))
		}
	}
	return engine.BaseName(arg)
}

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func printProgress(w io.Writer, names []string, ch <-chan engine.ProgressUpdate) {
	for u := range ch {
		if u.JobIndex < 0 || u.JobIndex >= len(names) {
			continue
		}
		switch {
		case u.Error != nil:
			fmt.Fprintf(w, "✗ %s: %v\n", names[u.JobIndex], u.Error)
		case u.Completed:
			fmt.Fprintf(w, "✓ %s (%d bytes)\n", names[u.JobIndex], u.Bytes)
		}
	}
}

func printResults(w io.Writer, names []string, results []engine.JobResult) {
	for _, r := range results {
		if r.Err != nil || r.Index >= len(names) {
			continue
		}
		for _, f := range r.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	if len(results) < len(names) {
		fmt.Fprintf(w, "%d of %d files not processed\n", len(names)-len(results), len(names))
	}
}
