package remote

import (
	"context"
	"errors"
	"log/slog"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/listview"
)

// ErrNoParent is returned for a parent-scoped collection opened without
// a parent record.
var ErrNoParent = errors.New("no parent record selected")

// Collection binds one resource, the signed-in identity and an optional
// parent id to a client. It is the listview Source and Deleter for a
// screen. Credentials are checked before any request is made.
type Collection struct {
	api      *Client
	res      catalog.Resource
	identity auth.Identity
	parentID string
}

// NewCollection returns the collection of res as seen by identity. The
// bearer token is only sent for resources that require one.
func NewCollection(c *Client, res catalog.Resource, identity auth.Identity, parentID string) *Collection {
	api := c.WithTokenSource(nil)
	if res.RequiresToken {
		api = c.WithTokenSource(identity.TokenSource())
	}
	return &Collection{api: api, res: res, identity: identity, parentID: parentID}
}

// Resource returns the collection's resource.
func (c *Collection) Resource() catalog.Resource { return c.res }

// ParentID returns the parent record id, if any.
func (c *Collection) ParentID() string { return c.parentID }

// ScopeID returns the id appended to the collection path.
func (c *Collection) ScopeID() string {
	switch c.res.Scope {
	case catalog.ScopeUser:
		return c.identity.UserID
	case catalog.ScopeParent:
		return c.parentID
	default:
		return ""
	}
}

// Check reports what is missing before the collection can be requested.
// A nil result means requests will be attempted.
func (c *Collection) Check() error {
	if err := c.identity.Require(c.res.RequiresToken, c.res.UsesUser()); err != nil {
		return err
	}
	if c.res.Scope == catalog.ScopeParent && c.parentID == "" {
		return ErrNoParent
	}
	return nil
}

// Fetch implements listview.Source.
func (c *Collection) Fetch(ctx context.Context) ([]catalog.Record, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c.api.FetchCollection(ctx, c.res, c.ScopeID())
}

// Delete implements listview.Deleter.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if err := c.Check(); err != nil {
		return err
	}
	return c.api.Delete(ctx, c.res, id)
}

// Create validates values locally, then posts them.
func (c *Collection) Create(ctx context.Context, values map[string]string) (catalog.Record, error) {
	if err := c.identity.Require(c.res.RequiresToken, false); err != nil {
		return catalog.Record{}, err
	}
	values = c.withScope(values)
	if fe := c.res.Validate(values, false); fe != nil {
		return catalog.Record{}, &ValidationError{Fields: fe}
	}
	return c.api.Create(ctx, c.res, values)
}

// Update validates the given fields locally, then sends them.
func (c *Collection) Update(ctx context.Context, id string, values map[string]string) (catalog.Record, error) {
	if err := c.identity.Require(c.res.RequiresToken, false); err != nil {
		return catalog.Record{}, err
	}
	if fe := c.res.Validate(values, true); fe != nil {
		return catalog.Record{}, &ValidationError{Fields: fe}
	}
	return c.api.Update(ctx, c.res, id, values)
}

// withScope fills the parent field of a parent-scoped create from the
// collection's parent id when the caller left it out.
func (c *Collection) withScope(values map[string]string) map[string]string {
	if c.res.Scope != catalog.ScopeParent || c.parentID == "" {
		return values
	}
	if _, ok := values[c.res.ScopeField]; ok {
		return values
	}
	out := make(map[string]string, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out[c.res.ScopeField] = c.parentID
	return out
}

// Options returns the controller options for this collection. pageSize
// overrides the resource default when positive.
func (c *Collection) Options(pageSize int, notifier listview.Notifier, logger *slog.Logger) listview.Options[catalog.Record] {
	if pageSize <= 0 {
		pageSize = c.res.PageSize
	}
	opts := listview.Options[catalog.Record]{
		PageSize: pageSize,
		Fields:   c.res.Fields,
		ID:       c.res.ID,
		Notifier: notifier,
		Describe: Describe,
		Noun:     c.res.Noun,
		Logger:   logger,
	}
	if c.res.Deletable {
		opts.Deleter = c
	}
	return opts
}

// NewController builds the list controller for this collection.
func (c *Collection) NewController(pageSize int, notifier listview.Notifier, logger *slog.Logger) *listview.Controller[catalog.Record] {
	return listview.New[catalog.Record](c, c.Options(pageSize, notifier, logger))
}
