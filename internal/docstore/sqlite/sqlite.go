// Package sqlite is a docstore backend keeping JSON documents in a single
// SQLite table. Equality filters are evaluated with json_extract.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"budgeting/internal/docstore"
)

type Store struct {
	db *sql.DB
}

var _ docstore.Store = (*Store)(nil)

// Open creates the database file if needed, runs migrations and returns a
// ready store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, false, nil
	}
	if err != nil {
		return docstore.Document{}, false, unavailable("get document", err)
	}
	f, err := decode(data)
	if err != nil {
		return docstore.Document{}, false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Fields: f}, true, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, fields docstore.Fields) (string, error) {
	if fields == nil {
		fields = docstore.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(b), now, now)
	if err != nil {
		return "", unavailable("put document", err)
	}

	slog.DebugContext(ctx, "Document saved to SQLite", "collection", collection, "id", id)
	return id, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return unavailable("delete document", err)
	}
	slog.DebugContext(ctx, "Document deleted from SQLite", "collection", collection, "id", id)
	return nil
}

// Query returns matching documents in insertion order.
func (s *Store) Query(ctx context.Context, collection string, filters []docstore.Filter, limit int) ([]docstore.Document, error) {
	var (
		sb   strings.Builder
		args = []any{collection}
	)
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	for _, f := range filters {
		path := jsonPath(f.Field)
		v, err := sqlValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		if v == nil {
			sb.WriteString(` AND json_extract(data, ?) IS NULL`)
			args = append(args, path)
			continue
		}
		sb.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, path, v)
	}
	sb.WriteString(` ORDER BY rowid LIMIT ?`)
	if limit <= 0 {
		args = append(args, -1)
	} else {
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, unavailable("query documents", err)
	}
	defer rows.Close()

	var out []docstore.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, unavailable("scan document", err)
		}
		f, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, docstore.Document{ID: id, Fields: f})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate documents", err)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", docstore.ErrUnavailable, op, err)
}

func decode(data string) (docstore.Fields, error) {
	f := docstore.Fields{}
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, err
	}
	return f, nil
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// sqlValue maps a filter value onto what json_extract yields for the same
// JSON value: booleans become 0/1, numbers stay numeric.
func sqlValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string, int, int32, int64, float32, float64:
		return x, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	switch generic.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("unsupported filter value %T", v)
	}
	return sqlValue(generic)
}
