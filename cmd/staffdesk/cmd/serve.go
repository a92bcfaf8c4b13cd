package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fixture API server",
	Long: `Run an in-memory copy of the platform's admin API for development and
demos. It serves every resource staffdesk knows with the same envelopes,
auth rules and validation errors as the real backend.

Data comes from the [server] fixtures file, or a built-in demo data set
when none is configured. Changes are kept in memory only.

The default demo data signs in token "dev-token" as staff member 1. To
point staffdesk at the server:
  [api]
  base_url = "http://127.0.0.1:8080"
  allow_insecure = true

Enabled [[snapshots]] schedules also run while the server is up, and can
be inspected or triggered under /admin/snapshots.

Use Ctrl+C to stop the server gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	fixtures := api.DefaultFixtures()
	source := "built-in demo data"
	if cfg.Server.Fixtures != "" {
		var err error
		fixtures, err = api.LoadFixtures(cfg.Server.Fixtures)
		if err != nil {
			return err
		}
		source = cfg.Server.Fixtures
	}
	store, err := api.NewStore(fixtures)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	// Snapshots are optional here: the server runs without them.
	var sched *scheduler.Scheduler
	var schedAPI api.SnapshotScheduler
	if len(cfg.ScheduledSnapshots()) > 0 {
		snap, err := newSnapshotter()
		if err != nil {
			return fmt.Errorf("snapshots are scheduled but cannot run: %w", err)
		}
		sched = scheduler.New(scheduledSnapshot(snap)).WithLogger(logger)
		_, errs := sched.AddFromConfig(cfg)
		for _, err := range errs {
			logger.Error("failed to schedule snapshot", "error", err)
		}
		schedAPI = sched
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if sched != nil {
		sched.Start()
	}

	apiServer := api.NewServer(cfg, store, schedAPI, logger)

	// Start API server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	bindAddr := cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "staffdesk fixture server started\n")
	fmt.Fprintf(out, "  API server: http://%s\n", net.JoinHostPort(bindAddr, strconv.Itoa(cfg.Server.APIPort)))
	fmt.Fprintf(out, "  Data: %s\n", source)
	counts := store.Counts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "    %-18s %d\n", name, counts[name])
	}
	if sched != nil {
		for _, status := range sched.Status() {
			fmt.Fprintf(out, "  Snapshot %s: next run at %s\n", status.Resource, status.NextRun.Local().Format("2006-01-02 15:04:05"))
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop.")

	// Wait for shutdown signal or server error
	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		runErr = fmt.Errorf("API server: %w", err)
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	if sched != nil {
		fmt.Fprintln(out, "Waiting for running snapshots to complete...")
		select {
		case <-sched.Stop().Done():
		case <-time.After(30 * time.Second):
			fmt.Fprintln(out, "Shutdown timed out after 30 seconds.")
		}
	}
	fmt.Fprintln(out, "Shutdown complete.")
	return runErr
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
