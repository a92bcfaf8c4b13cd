package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

var (
	// ErrNotFound is returned for unknown resources and records.
	ErrNotFound = errors.New("not found")
	// ErrDeleteRejected is returned when a collection is seeded to fail deletes.
	ErrDeleteRejected = errors.New("delete rejected")
)

type collection struct {
	res         catalog.Resource
	envelope    Envelope
	failDeletes bool
	records     []catalog.Record
}

// Store is the in-memory backing store of the fixture server. It is safe
// for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	sessions    map[string]string
	now         func() time.Time
}

// NewStore seeds a store from f. Every catalog resource gets a
// collection, empty when f does not mention it.
func NewStore(f *Fixtures) (*Store, error) {
	if f == nil {
		f = &Fixtures{}
	}
	s := &Store{
		collections: make(map[string]*collection),
		sessions:    make(map[string]string, len(f.Sessions)),
		now:         time.Now,
	}
	for tok, user := range f.Sessions {
		s.sessions[tok] = user
	}
	for name, fr := range f.Resources {
		if _, ok := catalog.Lookup(name); !ok {
			return nil, fmt.Errorf("fixtures: unknown resource %q", name)
		}
		if !fr.Envelope.valid() {
			return nil, fmt.Errorf("fixtures: %s: unknown envelope %q", name, fr.Envelope)
		}
	}
	for _, res := range catalog.All() {
		fr := f.Resources[res.Name]
		c := &collection{res: res, envelope: fr.Envelope, failDeletes: fr.FailDeletes}
		if c.envelope == "" {
			c.envelope = EnvelopeData
		}
		for i, raw := range fr.Records {
			rec := catalog.NewRecord(raw)
			if !rec.IsObject() {
				return nil, fmt.Errorf("fixtures: %s record %d is not an object", res.Name, i)
			}
			c.records = append(c.records, rec)
		}
		s.collections[res.Name] = c
	}
	return s, nil
}

// SessionUser returns the user id signed in by token.
func (s *Store) SessionUser(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.sessions[token]
	return user, ok
}

// HasSessions reports whether any bearer tokens were seeded.
func (s *Store) HasSessions() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions) > 0
}

// Envelope returns the payload shape for a collection.
func (s *Store) Envelope(name string) Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return c.envelope
	}
	return EnvelopeData
}

// List returns the records of a collection. For scoped resources only
// records whose scope field equals scopeID are returned.
func (s *Store) List(name, scopeID string) ([]catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]catalog.Record, 0, len(c.records))
	for _, rec := range c.records {
		if c.res.Scope != catalog.ScopeNone && rec.Get(c.res.ScopeField) != scopeID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns one record.
func (s *Store) Get(name, id string) (catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return catalog.Record{}, ErrNotFound
	}
	if i := c.index(id); i >= 0 {
		return c.records[i], nil
	}
	return catalog.Record{}, ErrNotFound
}

// Delete removes one record.
func (s *Store) Delete(name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return ErrNotFound
	}
	i := c.index(id)
	if i < 0 {
		return ErrNotFound
	}
	if c.failDeletes {
		return ErrDeleteRejected
	}
	c.records = append(c.records[:i:i], c.records[i+1:]...)
	return nil
}

// Create adds a record built from fields, assigning an id and created_at.
func (s *Store) Create(name string, fields map[string]any) (catalog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return catalog.Record{}, ErrNotFound
	}
	obj := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		obj[k] = v
	}
	obj[idField(c.res)] = uuid.NewString()
	obj["created_at"] = s.now().UTC().Format(time.RFC3339)

	rec, err := encodeRecord(obj)
	if err != nil {
		return catalog.Record{}, err
	}
	c.records = append(c.records, rec)
	return rec, nil
}

// Update merges fields into an existing record. The id cannot change.
func (s *Store) Update(name, id string, fields map[string]any) (catalog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return catalog.Record{}, ErrNotFound
	}
	i := c.index(id)
	if i < 0 {
		return catalog.Record{}, ErrNotFound
	}

	obj, err := decodeObject(c.records[i].Raw())
	if err != nil {
		return catalog.Record{}, err
	}
	for k, v := range fields {
		if k == idField(c.res) {
			continue
		}
		obj[k] = v
	}
	obj["updated_at"] = s.now().UTC().Format(time.RFC3339)

	rec, err := encodeRecord(obj)
	if err != nil {
		return catalog.Record{}, err
	}
	c.records[i] = rec
	return rec, nil
}

// Counts returns the number of records per collection, by name.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.collections))
	for name, c := range s.collections {
		out[name] = len(c.records)
	}
	return out
}

// Names returns the collection names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *collection) index(id string) int {
	for i, rec := range c.records {
		if c.res.ID(rec) == id {
			return i
		}
	}
	return -1
}

func idField(res catalog.Resource) string {
	if res.IDField == "" {
		return "id"
	}
	return res.IDField
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return obj, nil
}

func encodeRecord(obj map[string]any) (catalog.Record, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("encode record: %w", err)
	}
	return catalog.NewRecord(raw), nil
}
