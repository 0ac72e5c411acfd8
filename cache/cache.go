package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siegeai/jsonkit/jsonschema"
	_ "modernc.org/sqlite"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS file_schemas (
	path TEXT NOT NULL,
	options TEXT NOT NULL,
	size INTEGER NOT NULL,
	mod_time INTEGER NOT NULL,
	documents INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	body BLOB NOT NULL,
	PRIMARY KEY (path, options)
)`

	selectSchema = `SELECT size, mod_time, documents, body FROM file_schemas WHERE path = ? AND options = ?`

	upsertSchema = `INSERT INTO file_schemas (path, options, size, mod_time, documents, fingerprint, body) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, options) DO UPDATE SET size = excluded.size, mod_time = excluded.mod_time, documents = excluded.documents, fingerprint = excluded.fingerprint, body = excluded.body`
)

// Key identifies one version of an input file read under one set of
// inference options.
type Key struct {
	Path    string
	Size    int64
	ModTime time.Time
	// Options names every setting that changes the schema inferred from the
	// same bytes. Entries are kept per Path and Options.
	Options string
}

// Entry is the cached result of inferring one file.
type Entry struct {
	Schema    *jsonschema.Schema
	Documents int
}

// Cache stores one inferred schema per input file and option set. A stored
// schema is only returned while the file's size and modification time are
// unchanged.
type Cache struct {
	db *sql.DB
}

// Open opens, creating it if needed, the SQLite database at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open cache %s: %w", path, err)
	}
	// one writer at a time, concurrent callers queue in database/sql
	db.SetMaxOpenConns(1)

	c, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// New uses an already opened database and creates the table if missing.
func New(ctx context.Context, db *sql.DB) (*Cache, error) {
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, fmt.Errorf("could not create cache table: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the stored entry for k. ok is false on a miss or when the
// stored entry was made for a different size or modification time.
func (c *Cache) Get(ctx context.Context, k Key) (e Entry, ok bool, err error) {
	var (
		size    int64
		modTime int64
		docs    int
		body    []byte
	)
	err = c.db.QueryRowContext(ctx, selectSchema, k.Path, k.Options).Scan(&size, &modTime, &docs, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	} else if err != nil {
		return Entry{}, false, fmt.Errorf("could not read cache entry %s: %w", k.Path, err)
	}

	if size != k.Size || modTime != k.ModTime.UnixNano() {
		return Entry{}, false, nil
	}

	s, err := unmarshalSchema(body)
	if err != nil {
		return Entry{}, false, fmt.Errorf("could not decode cache entry %s: %w", k.Path, err)
	}
	return Entry{Schema: s, Documents: docs}, true, nil
}

func (c *Cache) Put(ctx context.Context, k Key, e Entry) error {
	body, err := marshalSchema(e.Schema)
	if err != nil {
		return fmt.Errorf("could not encode cache entry %s: %w", k.Path, err)
	}

	_, err = c.db.ExecContext(ctx, upsertSchema,
		k.Path, k.Options, k.Size, k.ModTime.UnixNano(), e.Documents, jsonschema.Fingerprint(e.Schema), body)
	if err != nil {
		return fmt.Errorf("could not write cache entry %s: %w", k.Path, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
