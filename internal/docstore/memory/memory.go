// Package memory is an in-process docstore backend.
//
// Documents round-trip through JSON on every write so values read back have
// the same shapes a networked document store would return (numbers become
// float64, nested maps become map[string]any).
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"budgeting/internal/docstore"
)

type collection struct {
	order []string
	docs  map[string]docstore.Fields
}

type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
}

var _ docstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{collections: map[string]*collection{}}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: map[string]docstore.Fields{}}
		s.collections[name] = c
	}
	return c
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return docstore.Document{}, false, nil
	}
	f, ok := c.docs[id]
	if !ok {
		return docstore.Document{}, false, nil
	}
	return docstore.Document{ID: id, Fields: clone(f)}, true, nil
}

func (s *Store) Put(_ context.Context, collection, id string, fields docstore.Fields) (string, error) {
	norm, err := normalize(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = norm
	return id, nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Query scans the collection in insertion order.
func (s *Store) Query(_ context.Context, collection string, filters []docstore.Filter, limit int) ([]docstore.Document, error) {
	want := make([]any, len(filters))
	for i, f := range filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		want[i] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	var out []docstore.Document
	for _, id := range c.order {
		f := c.docs[id]
		if !matches(f, filters, want) {
			continue
		}
		out = append(out, docstore.Document{ID: id, Fields: clone(f)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.docs)
	}
	return 0
}

func matches(f docstore.Fields, filters []docstore.Filter, want []any) bool {
	for i, flt := range filters {
		got := f[flt.Field] // missing reads as nil
		if !reflect.DeepEqual(got, want[i]) {
			return false
		}
	}
	return true
}

func normalize(fields docstore.Fields) (docstore.Fields, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := docstore.Fields{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func clone(f docstore.Fields) docstore.Fields {
	// Values are JSON-shaped so a re-normalize is a deep copy.
	out, err := normalize(f)
	if err != nil {
		return docstore.Fields{}
	}
	return out
}
