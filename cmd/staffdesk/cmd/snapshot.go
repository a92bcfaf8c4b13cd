package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/export"
	"github.com/staffdesk/staffdesk/internal/remote"
	"github.com/staffdesk/staffdesk/internal/scheduler"
)

var (
	snapshotOnce   bool
	snapshotFormat string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [resource...]",
	Short: "Export resources to timestamped files",
	Long: `Fetch resources from the platform API and write each one to
<home>/snapshots/<resource>-<timestamp>.<json|csv>.

With --once, the named resources (or every [[snapshots]] entry when none
are named) are exported concurrently and the command exits. Without
--once, the [[snapshots]] schedules run in the foreground until Ctrl+C.

Configure schedules in config.toml:
  [[snapshots]]
  resource = "invoices"
  schedule = "0 2 * * *"   # 2am daily (cron format)
  format = "csv"
  enabled = true

Examples:
  staffdesk snapshot --once
  staffdesk snapshot --once jobs invoices --format csv
  staffdesk snapshot`,
	RunE: runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	snap, err := newSnapshotter()
	if err != nil {
		return err
	}

	if snapshotOnce {
		jobs, err := snapshotJobs(args, cmd.Flags().Changed("format"))
		if err != nil {
			return err
		}
		stats := snap.SnapshotAll(cmd.Context(), jobs)
		fmt.Fprint(cmd.OutOrStdout(), export.FormatSnapshotResult(stats))
		for _, st := range stats {
			if st.Err != nil {
				return explain(fmt.Errorf("snapshot %s: %w", st.Resource, st.Err))
			}
		}
		return nil
	}

	if len(args) > 0 {
		return fmt.Errorf("resources can only be named with --once; scheduled runs use [[snapshots]] in %s", cfg.ConfigFilePath())
	}
	sched := scheduler.New(scheduledSnapshot(snap)).WithLogger(logger)
	count, errs := sched.AddFromConfig(cfg)
	for _, err := range errs {
		logger.Error("failed to schedule snapshot", "error", err)
	}
	if count == 0 {
		return fmt.Errorf("no snapshots scheduled\n\nAdd to %s:\n\n  [[snapshots]]\n  resource = \"invoices\"\n  schedule = \"0 2 * * *\"\n  enabled = true",
			cfg.ConfigFilePath())
	}

	sched.Start()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Writing snapshots to %s\n", snap.Dir())
	for _, status := range sched.Status() {
		fmt.Fprintf(out, "  %s: next run at %s\n", status.Resource, status.NextRun.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop.")

	<-cmd.Context().Done()

	fmt.Fprintln(out, "Waiting for running snapshots to complete...")
	select {
	case <-sched.Stop().Done():
	case <-time.After(30 * time.Second):
		fmt.Fprintln(out, "Shutdown timed out after 30 seconds.")
	}
	return nil
}

// snapshotJobs resolves the resources to export once.
func snapshotJobs(names []string, formatSet bool) ([]export.Job, error) {
	format, err := export.ParseFormat(snapshotFormat)
	if err != nil {
		return nil, err
	}

	var jobs []export.Job
	if len(names) == 0 {
		for _, s := range cfg.Snapshots {
			res, err := lookupResource(s.Resource)
			if err != nil {
				return nil, err
			}
			f := format
			if s.Format != "" && !formatSet {
				if f, err = export.ParseFormat(s.Format); err != nil {
					return nil, err
				}
			}
			jobs = append(jobs, export.Job{Resource: res, Format: f})
		}
		if len(jobs) == 0 {
			return nil, fmt.Errorf("nothing to snapshot: name resources or add [[snapshots]] to %s", cfg.ConfigFilePath())
		}
		return jobs, nil
	}

	for _, name := range names {
		res, err := lookupResource(name)
		if err != nil {
			return nil, err
		}
		if res.Scope == catalog.ScopeParent {
			return nil, fmt.Errorf("%s are listed per %s record and cannot be snapshotted on their own", res.Name, res.Parent)
		}
		jobs = append(jobs, export.Job{Resource: res, Format: format})
	}
	return jobs, nil
}

// newSnapshotter fetches through the configured API. The auth storage is
// re-read on every fetch so a long-running schedule sees new sessions.
func newSnapshotter() (*export.Snapshotter, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	fetch := export.FetcherFunc(func(ctx context.Context, res catalog.Resource) ([]catalog.Record, error) {
		identity, err := loadIdentity()
		if err != nil {
			return nil, err
		}
		return remote.NewCollection(client, res, identity, "").Fetch(ctx)
	})
	return export.NewSnapshotter(fetch, cfg.SnapshotsDir()).WithLogger(logger), nil
}

// scheduledSnapshot adapts a snapshotter to the scheduler callback.
func scheduledSnapshot(snap *export.Snapshotter) scheduler.SnapshotFunc {
	return func(ctx context.Context, job config.SnapshotSchedule) error {
		res, err := lookupResource(job.Resource)
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(job.Format)
		if err != nil {
			return err
		}
		return snap.Snapshot(ctx, res, format).Err
	}
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().BoolVar(&snapshotOnce, "once", false, "Export once and exit instead of running schedules")
	snapshotCmd.Flags().StringVarP(&snapshotFormat, "format", "f", "json", "Output format for --once: json or csv")
}
