// Package docstore defines the document store contract the budgeting core
// reads and writes through.
//
// A store holds loosely typed documents grouped in collections. Queries are
// equality filters only: no transactions, no ordering, no aggregation.
package docstore

import (
	"context"
	"errors"
)

// ErrUnavailable marks a failure of the backing store. Adapters wrap driver
// errors with it so callers can tell "no data" from "could not read data".
var ErrUnavailable = errors.New("document store unavailable")

type (
	// Fields is the raw payload of a document.
	Fields map[string]any

	// Document is a stored payload with its id.
	Document struct {
		ID     string
		Fields Fields
	}

	// Filter matches documents whose Field equals Value. A nil Value matches
	// documents where the field is null or absent.
	Filter struct {
		Field string
		Value any
	}

	// Store is implemented by every backend.
	Store interface {
		// Get returns the document and true, or false when it does not exist.
		Get(ctx context.Context, collection, id string) (Document, bool, error)
		// Put writes fields under id, generating one when id is empty.
		// It returns the id used.
		Put(ctx context.Context, collection, id string, fields Fields) (string, error)
		// Delete removes the document. Deleting a missing document is not an error.
		Delete(ctx context.Context, collection, id string) error
		// Query returns documents matching every filter. limit <= 0 means no limit.
		Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error)
	}
)

// Where builds a filter list from alternating field/value pairs.
//
//	docstore.Where("owner_id", owner, "month", "2024-06")
func Where(pairs ...any) []Filter {
	out := make([]Filter, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		field, _ := pairs[i].(string)
		out = append(out, Filter{Field: field, Value: pairs[i+1]})
	}
	return out
}

// Get returns the field value and whether it is present.
func (d Document) Get(field string) (any, bool) {
	v, ok := d.Fields[field]
	return v, ok
}
