// Package docstoretest holds behaviour checks shared by every docstore backend.
package docstoretest

import (
	"context"
	"testing"

	"budgeting/internal/docstore"
)

// Run exercises the docstore.Store contract against s. The store must be empty.
func Run(t *testing.T, s docstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "things", "nope")
		if err != nil || ok {
			t.Fatalf("Get missing = ok=%v err=%v", ok, err)
		}
	})

	t.Run("put generates id", func(t *testing.T) {
		id, err := s.Put(ctx, "generated", "", docstore.Fields{"name": "a"})
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if id == "" {
			t.Fatal("expected generated id")
		}
		doc, ok, err := s.Get(ctx, "generated", id)
		if err != nil || !ok {
			t.Fatalf("Get = ok=%v err=%v", ok, err)
		}
		if doc.ID != id || doc.Fields["name"] != "a" {
			t.Fatalf("unexpected document %+v", doc)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		if _, err := s.Put(ctx, "over", "x", docstore.Fields{"v": "1", "old": true}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Put(ctx, "over", "x", docstore.Fields{"v": "2"}); err != nil {
			t.Fatal(err)
		}
		doc, _, err := s.Get(ctx, "over", "x")
		if err != nil {
			t.Fatal(err)
		}
		if doc.Fields["v"] != "2" {
			t.Fatalf("v = %v, want 2", doc.Fields["v"])
		}
		if _, ok := doc.Fields["old"]; ok {
			t.Fatal("expected put to replace the whole document")
		}
	})

	seed := []struct {
		id     string
		fields docstore.Fields
	}{
		{"t1", docstore.Fields{"owner_id": "u1", "month": "2024-06", "year": 2024, "active": true}},
		{"t2", docstore.Fields{"owner_id": "u1", "month": "2024-07", "year": 2024, "active": false, "category_id": "c1"}},
		{"t3", docstore.Fields{"owner_id": "u2", "month": "2024-06", "year": 2023, "active": true, "category_id": nil}},
		{"t4", docstore.Fields{"owner_id": "u1", "month": "2024-06", "year": 2024, "active": true, "category_id": "c2"}},
	}
	for _, d := range seed {
		if _, err := s.Put(ctx, "tx", d.id, d.fields); err != nil {
			t.Fatalf("seed %s: %v", d.id, err)
		}
	}

	tests := []struct {
		name    string
		filters []docstore.Filter
		limit   int
		want    []string
	}{
		{"all", nil, 0, []string{"t1", "t2", "t3", "t4"}},
		{"string", docstore.Where("owner_id", "u1"), 0, []string{"t1", "t2", "t4"}},
		{"compound", docstore.Where("owner_id", "u1", "month", "2024-06"), 0, []string{"t1", "t4"}},
		{"number", docstore.Where("year", 2023), 0, []string{"t3"}},
		{"bool", docstore.Where("active", false), 0, []string{"t2"}},
		{"null matches missing", docstore.Where("category_id", nil), 0, []string{"t1", "t3"}},
		{"limit", docstore.Where("owner_id", "u1"), 2, []string{"t1", "t2"}},
		{"no match", docstore.Where("owner_id", "u9"), 0, nil},
	}
	for _, tt := range tests {
		t.Run("query "+tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, "tx", tt.filters, tt.limit)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(docs) != len(tt.want) {
				t.Fatalf("got %d docs, want %d (%v)", len(docs), len(tt.want), ids(docs))
			}
			for i, d := range docs {
				if d.ID != tt.want[i] {
					t.Errorf("doc %d = %s, want %s", i, d.ID, tt.want[i])
				}
			}
		})
	}

	t.Run("numbers read back as float64", func(t *testing.T) {
		doc, _, err := s.Get(ctx, "tx", "t1")
		if err != nil {
			t.Fatal(err)
		}
		if y, ok := doc.Fields["year"].(float64); !ok || y != 2024 {
			t.Fatalf("year = %#v", doc.Fields["year"])
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "tx", "t2"); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "tx", "t2"); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "tx", "t2"); ok {
			t.Fatal("expected t2 to be gone")
		}
		docs, err := s.Query(ctx, "tx", docstore.Where("owner_id", "u1"), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 2 {
			t.Fatalf("got %v after delete", ids(docs))
		}
	})
}

func ids(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
