package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/fileutil"
	"github.com/staffdesk/staffdesk/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [resource]",
	Short: "Open the interactive dashboard",
	Long: `Open the interactive terminal dashboard.

Each top-level resource has a tab. The table shows one page of the
collection, filtered by the search term.

Navigation:
  Tab/Shift+Tab   Switch resource
  ↑/k, ↓/j        Move up/down
  ←/→, PgUp/PgDn  Previous/next page
  Home/End        First/last page
  1-9             Jump to page
  Enter           Open related records, or the record detail
  Esc             Clear search / go back
  /               Search
  r               Reload
  d               Delete (asks first)
  ?               Help
  q               Quit

With -v, debug logs go to <home>/logs/tui.log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !stdoutIsTerminal() {
			return fmt.Errorf("the dashboard needs a terminal; use 'staffdesk list' in scripts")
		}

		start := cfg.UI.DefaultResource
		if len(args) == 1 {
			res, err := lookupResource(args[0])
			if err != nil {
				return err
			}
			if !res.TopLevel() {
				return fmt.Errorf("%s belong to a %s; open %s and press Enter on one", res.Name, res.Parent, res.Parent)
			}
			start = res.Name
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		identity, err := loadIdentity()
		if err != nil {
			return err
		}

		tuiLogger, closeLog, err := openTUILog()
		if err != nil {
			return err
		}
		defer closeLog()

		model := tui.New(tui.Options{
			Client:         client,
			Identity:       identity,
			Config:         cfg,
			Start:          start,
			Version:        Version,
			Logger:         tuiLogger,
			RequestTimeout: cfg.API.Timeout(),
			Context:        cmd.Context(),
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}

		return nil
	},
}

// openTUILog returns the dashboard's logger. The dashboard owns the
// terminal, so logs go to a file, and only with -v.
func openTUILog() (*slog.Logger, func(), error) {
	if !verbose {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	dir := cfg.LogsDir()
	if err := fileutil.MkdirAll(dir, fileutil.OwnerOnlyDir); err != nil {
		return nil, nil, fmt.Errorf("create logs dir: %w", err)
	}
	f, err := fileutil.OpenAppend(filepath.Join(dir, "tui.log"), fileutil.OwnerOnlyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open tui log: %w", err)
	}
	l := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return l, func() { _ = f.Close() }, nil
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
