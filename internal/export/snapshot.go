package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/fileutil"
)

// snapshotConcurrency bounds concurrent fetches in SnapshotAll.
const snapshotConcurrency = 4

// Fetcher fetches the full collection of a resource.
type Fetcher interface {
	Fetch(ctx context.Context, res catalog.Resource) ([]catalog.Record, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, res catalog.Resource) ([]catalog.Record, error)

// Fetch calls f(ctx, res).
func (f FetcherFunc) Fetch(ctx context.Context, res catalog.Resource) ([]catalog.Record, error) {
	return f(ctx, res)
}

// SnapshotStats describes one snapshot run.
type SnapshotStats struct {
	Resource string
	Path     string
	Count    int
	Duration time.Duration
	Err      error
}

// Job names a resource and the format to snapshot it in.
type Job struct {
	Resource catalog.Resource
	Format   Format
}

// Snapshotter writes timestamped snapshots of resources into a directory.
type Snapshotter struct {
	fetcher Fetcher
	dir     string
	now     func() time.Time
	logger  *slog.Logger
}

// NewSnapshotter creates a snapshotter writing into dir.
func NewSnapshotter(fetcher Fetcher, dir string) *Snapshotter {
	return &Snapshotter{
		fetcher: fetcher,
		dir:     dir,
		now:     time.Now,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger.
func (s *Snapshotter) WithLogger(logger *slog.Logger) *Snapshotter {
	s.logger = logger
	return s
}

// Dir returns the snapshot directory.
func (s *Snapshotter) Dir() string { return s.dir }

// FileName returns the snapshot file name for res taken at t.
func FileName(res catalog.Resource, format Format, t time.Time) string {
	return fmt.Sprintf("%s-%s.%s", res.Name, t.UTC().Format("20060102T150405Z"), format.Ext())
}

// Snapshot fetches res and writes it atomically. Nothing is written when
// the fetch fails.
func (s *Snapshotter) Snapshot(ctx context.Context, res catalog.Resource, format Format) SnapshotStats {
	start := s.now()
	stats := SnapshotStats{Resource: res.Name}

	recs, err := s.fetcher.Fetch(ctx, res)
	if err != nil {
		stats.Err = fmt.Errorf("fetch %s: %w", res.Name, err)
		stats.Duration = s.now().Sub(start)
		s.logger.Warn("snapshot failed", "resource", res.Name, "error", err)
		return stats
	}

	if err := fileutil.MkdirAll(s.dir, fileutil.OwnerOnlyDir); err != nil {
		stats.Err = fmt.Errorf("create snapshot dir: %w", err)
		return stats
	}

	path := filepath.Join(s.dir, FileName(res, format, start))
	err = fileutil.WriteAtomic(path, fileutil.OwnerOnlyFile, func(w io.Writer) error {
		return WriteCollection(w, res, recs, format)
	})
	stats.Duration = s.now().Sub(start)
	if err != nil {
		stats.Err = fmt.Errorf("write snapshot: %w", err)
		s.logger.Warn("snapshot failed", "resource", res.Name, "error", err)
		return stats
	}

	stats.Path = path
	stats.Count = len(recs)
	s.logger.Info("snapshot written", "resource", res.Name, "path", path, "records", stats.Count)
	return stats
}

// SnapshotAll runs jobs concurrently and returns their stats in job order.
// A failing job does not stop the others.
func (s *Snapshotter) SnapshotAll(ctx context.Context, jobs []Job) []SnapshotStats {
	results := make([]SnapshotStats, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = s.Snapshot(ctx, job.Resource, job.Format)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FormatSnapshotResult formats stats into a human-readable string for
// display.
func FormatSnapshotResult(stats []SnapshotStats) string {
	var sb strings.Builder
	failed := 0
	for _, st := range stats {
		if st.Err != nil {
			failed++
			fmt.Fprintf(&sb, "  %-18s FAILED  %v\n", st.Resource, st.Err)
			continue
		}
		fmt.Fprintf(&sb, "  %-18s %5d records  %s\n", st.Resource, st.Count, st.Path)
	}
	fmt.Fprintf(&sb, "%d snapshot(s), %d failed\n", len(stats), failed)
	return sb.String()
}
