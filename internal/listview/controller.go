// Package listview implements the filtered, paginated view over a remote
// collection that every staffdesk screen is built on.
//
// A Controller fetches the whole collection from a Source, filters it locally
// by a free-text search term, and exposes one page at a time. Renderers take
// State snapshots; they never touch the controller's slices directly.
package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultPageSize is used when Options.PageSize is not set.
const DefaultPageSize = 10

// loadKey is the singleflight key for collection loads. A controller only
// ever loads one collection, so a constant key de-duplicates concurrent loads.
const loadKey = "load"

// ErrNoDeleter is returned by DeleteRecord when the view has no Deleter.
var ErrNoDeleter = errors.New("delete is not supported for this view")

// Source fetches a complete collection.
type Source[T any] interface {
	Fetch(ctx context.Context) ([]T, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] func(ctx context.Context) ([]T, error)

// Fetch calls f(ctx).
func (f SourceFunc[T]) Fetch(ctx context.Context) ([]T, error) { return f(ctx) }

// Deleter removes a record on the remote side.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Options configures a Controller.
type Options[T any] struct {
	// PageSize is the number of records per page (DefaultPageSize if <= 0).
	PageSize int
	// Fields returns the searchable fields of a record.
	Fields FieldsFunc[T]
	// ID returns a record's identifier; needed for local removal after delete.
	ID func(T) string
	// Deleter enables DeleteRecord.
	Deleter Deleter
	// Notifier receives toasts for delete outcomes.
	Notifier Notifier
	// Refetch re-loads the collection after a successful delete instead of
	// removing the record locally.
	Refetch bool
	// Describe turns a load or delete error into a user-facing message.
	Describe func(error) string
	// Noun names one record in notifications ("client", "invoice").
	Noun string
	Logger *slog.Logger
}

// Query is the user-controlled part of a view.
type Query struct {
	SearchTerm string
	Page       int
	PageSize   int
}

// State is a consistent snapshot of a Controller.
type State[T any] struct {
	Records    []T
	Filtered   []T
	PageSlice  []T
	SearchTerm string
	Page       int
	PageSize   int
	TotalPages int
	Loading    bool
	// Loaded is true once any load has completed.
	Loaded bool
	// Err is the last load failure, nil after a successful load.
	Err error
	// Message is the user-facing form of Err.
	Message string
}

// Query returns the search term and position of the snapshot.
func (s State[T]) Query() Query {
	return Query{SearchTerm: s.SearchTerm, Page: s.Page, PageSize: s.PageSize}
}

// Empty reports whether a successful load produced nothing to show.
// This is an empty state, not an error.
func (s State[T]) Empty() bool {
	return s.Loaded && !s.Loading && s.Err == nil && len(s.Filtered) == 0
}

// HasPrevious reports whether PreviousPage would move.
func (s State[T]) HasPrevious() bool { return s.Page > 1 }

// HasNext reports whether NextPage would move.
func (s State[T]) HasNext() bool { return s.Page < s.TotalPages }

// Controller owns the fetched records and the derived filter/page state of
// one list screen. It is safe for concurrent use.
type Controller[T any] struct {
	source Source[T]
	opts   Options[T]
	logger *slog.Logger
	group  singleflight.Group

	mu         sync.Mutex
	seq        uint64 // token of the most recently issued load
	flight     *loadFlight
	records    []T
	filtered   []T
	term       string
	page       int
	totalPages int
	loading    bool
	loaded     bool
	err        error
	message    string
}

// loadFlight is the context shared fetches run under. It outlives any one
// caller and is cancelled when the last waiting Load returns.
type loadFlight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a controller over source. Nothing is fetched until Load.
func New[T any](source Source[T], opts Options[T]) *Controller[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Noun == "" {
		opts.Noun = "record"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller[T]{
		source: source,
		opts:   opts,
		logger: logger,
		page:   1,
	}
}

// Load fetches the full collection and replaces the records. Failures are
// recorded in the state, never returned: the view degrades to an empty list
// with a message. If a newer Load was issued while this one was in flight,
// this one's result is discarded.
func (c *Controller[T]) Load(ctx context.Context) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.loading = true
	c.mu.Unlock()

	res := singleflight.Result{Err: ctx.Err()}
	if res.Err == nil {
		res = c.awaitFetch(ctx)
	}
	err := res.Err

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.logger.Debug("discarding stale load", "seq", seq, "latest", c.seq)
		return
	}

	c.loading = false
	c.loaded = true
	if err != nil {
		c.records = nil
		c.err = err
		c.message = c.describe(err)
		c.logger.Warn("load failed", "noun", c.opts.Noun, "error", err)
	} else {
		fetched, _ := res.Val.([]T)
		// Shared results are handed to several callers; keep a private copy.
		c.records = append([]T(nil), fetched...)
		c.err = nil
		c.message = ""
		c.logger.Debug("load complete", "noun", c.opts.Noun, "records", len(c.records), "shared", res.Shared)
	}
	c.recomputeLocked()
}

// awaitFetch joins the shared fetch, starting one if none is running, and
// waits for it or for ctx. A caller that gives up does not cancel the fetch
// for callers still waiting.
func (c *Controller[T]) awaitFetch(ctx context.Context) singleflight.Result {
	c.mu.Lock()
	if c.flight == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c.flight = &loadFlight{ctx: fctx, cancel: cancel}
	}
	flight := c.flight
	flight.waiters++
	ch := c.group.DoChan(loadKey, func() (any, error) {
		return c.source.Fetch(flight.ctx)
	})
	c.mu.Unlock()
	defer c.leaveFlight(flight)

	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return singleflight.Result{Err: ctx.Err()}
	}
}

// leaveFlight drops one waiter. The last one out cancels the shared fetch
// and forgets it so the next Load starts a fresh one.
func (c *Controller[T]) leaveFlight(f *loadFlight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flight == f {
		c.flight = nil
		c.group.Forget(loadKey)
	}
}

// SetSearchTerm filters the records by term and returns to the first page.
func (c *Controller[T]) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = term
	c.page = 1
	c.recomputeLocked()
}

// GoToPage moves to page n. Pages outside [1, max(TotalPages,1)] are
// ignored; the return value reports whether the page changed.
func (c *Controller[T]) GoToPage(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToPageLocked(n)
}

// NextPage is GoToPage(page+1).
func (c *Controller[T]) NextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToPageLocked(c.page + 1)
}

// PreviousPage is GoToPage(page-1).
func (c *Controller[T]) PreviousPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToPageLocked(c.page - 1)
}

// FirstPage is GoToPage(1).
func (c *Controller[T]) FirstPage() bool {
	return c.GoToPage(1)
}

// LastPage is GoToPage(TotalPages).
func (c *Controller[T]) LastPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goToPageLocked(c.totalPages)
}

func (c *Controller[T]) goToPageLocked(n int) bool {
	if n < 1 || n > lastValidPage(c.totalPages) || n == c.page {
		return false
	}
	c.page = n
	return true
}

// DeleteRecord deletes the record with id on the remote side. Local records
// only change after the remote call succeeds: on failure an error
// notification is emitted and the records are left as they were.
func (c *Controller[T]) DeleteRecord(ctx context.Context, id string) error {
	if c.opts.Deleter == nil {
		return ErrNoDeleter
	}

	if err := c.opts.Deleter.Delete(ctx, id); err != nil {
		c.logger.Warn("delete failed", "noun", c.opts.Noun, "id", id, "error", err)
		c.opts.Notifier.Notify(Notification{
			Level:   LevelError,
			Message: fmt.Sprintf("Could not delete %s: %s", c.opts.Noun, c.describe(err)),
		})
		return fmt.Errorf("delete %s %s: %w", c.opts.Noun, id, err)
	}

	// A load that started before the delete may still return the record.
	c.group.Forget(loadKey)

	if c.opts.Refetch || c.opts.ID == nil {
		c.opts.Notifier.Notify(Notification{Level: LevelSuccess, Message: c.deletedMessage()})
		c.Load(ctx)
		return nil
	}

	c.mu.Lock()
	c.seq++
	c.loading = false
	kept := make([]T, 0, len(c.records))
	for _, r := range c.records {
		if c.opts.ID(r) != id {
			kept = append(kept, r)
		}
	}
	c.records = kept
	c.recomputeLocked()
	c.mu.Unlock()

	c.opts.Notifier.Notify(Notification{Level: LevelSuccess, Message: c.deletedMessage()})
	return nil
}

func (c *Controller[T]) deletedMessage() string {
	return fmt.Sprintf("Deleted %s", c.opts.Noun)
}

// State returns a snapshot of the view. Slices in the snapshot are copies.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State[T]{
		Records:    append([]T(nil), c.records...),
		Filtered:   append([]T(nil), c.filtered...),
		PageSlice:  append([]T(nil), PageSlice(c.filtered, c.page, c.opts.PageSize)...),
		SearchTerm: c.term,
		Page:       c.page,
		PageSize:   c.opts.PageSize,
		TotalPages: c.totalPages,
		Loading:    c.loading,
		Loaded:     c.loaded,
		Err:        c.err,
		Message:    c.message,
	}
}

// Buttons returns the pagination bar for the current page.
func (c *Controller[T]) Buttons() []PageButton {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PageButtons(c.page, c.totalPages)
}

// recomputeLocked rebuilds the derived state. Callers hold c.mu.
func (c *Controller[T]) recomputeLocked() {
	c.filtered = Filter(c.records, c.term, c.opts.Fields)
	c.totalPages = TotalPages(len(c.filtered), c.opts.PageSize)
	c.page = ClampPage(c.page, c.totalPages)
}

func (c *Controller[T]) describe(err error) string {
	if c.opts.Describe != nil {
		return c.opts.Describe(err)
	}
	return err.Error()
}
