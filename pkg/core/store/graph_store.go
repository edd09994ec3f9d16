package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"finstatements/pkg/core/graph"
	"finstatements/pkg/core/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrGraphNotFound is returned when no graph is stored under a key.
var ErrGraphNotFound = errors.New("graph not found")

const schemaDDL = `
CREATE TABLE IF NOT EXISTS graph_definitions (
	key          TEXT PRIMARY KEY,
	definition   JSONB NOT NULL,
	node_count   INTEGER NOT NULL DEFAULT 0,
	period_count INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// GraphStore persists graph definitions.
// Supports a hybrid layout: DB (primary) + file system (fallback/local copy).
type GraphStore struct {
	pool     *pgxpool.Pool
	ownsPool bool
	fileDir  string
}

// fileEnvelope is the on-disk layout of one stored graph.
type fileEnvelope struct {
	Key        string            `json:"key"`
	SavedAt    time.Time         `json:"saved_at"`
	Definition *graph.Definition `json:"definition"`
}

// NewGraphStore creates a store over pool and/or dir. With neither, graphs
// go to .cache/graphs.
func NewGraphStore(pool *pgxpool.Pool, dir string) *GraphStore {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "graphs")
	}
	return &GraphStore{pool: pool, fileDir: dir}
}

// Open connects to dsn when it is set and otherwise stores files under dir.
// The pool opened here is owned by the store and released by Close.
func Open(ctx context.Context, dsn, dir string) (*GraphStore, error) {
	if dsn == "" {
		return NewGraphStore(nil, dir), nil
	}

	pool, err := connect(ctx, dsn)
	if err != nil {
		return nil, err
	}

	s := NewGraphStore(pool, dir)
	s.ownsPool = true
	return s, nil
}

// EnsureSchema creates the graph_definitions table. A file-only store has
// nothing to create.
func (s *GraphStore) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create graph_definitions table: %w", err)
	}
	return nil
}

// Save stores def under key, replacing any previous version.
func (s *GraphStore) Save(ctx context.Context, key string, def *graph.Definition) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("graph key cannot be empty")
	}
	if def == nil {
		return fmt.Errorf("graph definition cannot be nil")
	}

	// 1. Save to DB
	if s.pool != nil {
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("failed to marshal graph definition: %w", err)
		}
		query := `
			INSERT INTO graph_definitions (key, definition, node_count, period_count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key)
			DO UPDATE SET
				definition = EXCLUDED.definition,
				node_count = EXCLUDED.node_count,
				period_count = EXCLUDED.period_count,
				updated_at = NOW()
		`
		if _, err := s.pool.Exec(ctx, query, key, data, len(def.Nodes), len(def.Periods)); err != nil {
			return fmt.Errorf("failed to save graph %q to db: %w", key, err)
		}
	}

	// 2. Save to file (always when a directory is configured)
	if s.fileDir != "" {
		if err := os.MkdirAll(s.fileDir, 0755); err != nil {
			return fmt.Errorf("failed to create graph store dir: %w", err)
		}
		data, err := json.MarshalIndent(fileEnvelope{Key: key, SavedAt: time.Now().UTC(), Definition: def}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal graph definition: %w", err)
		}
		if err := os.WriteFile(s.path(key), data, 0644); err != nil {
			return fmt.Errorf("failed to write graph file: %w", err)
		}
	}

	logging.Named("store").Info("saved graph",
		zap.String("key", key), zap.Int("nodes", len(def.Nodes)), zap.Bool("db", s.pool != nil))
	return nil
}

// Load returns the definition stored under key. When a pool is configured
// the database is authoritative.
func (s *GraphStore) Load(ctx context.Context, key string) (*graph.Definition, error) {
	if s.pool != nil {
		var data []byte
		err := s.pool.QueryRow(ctx, `SELECT definition FROM graph_definitions WHERE key = $1`, key).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load graph %q from db: %w", key, err)
		}
		var def graph.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal db graph definition: %w", err)
		}
		return &def, nil
	}

	env, err := s.loadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return env.Definition, nil
}

// Delete removes key from every backend. Deleting a missing key fails with
// ErrGraphNotFound.
func (s *GraphStore) Delete(ctx context.Context, key string) error {
	found := false

	if s.pool != nil {
		tag, err := s.pool.Exec(ctx, `DELETE FROM graph_definitions WHERE key = $1`, key)
		if err != nil {
			return fmt.Errorf("failed to delete graph %q from db: %w", key, err)
		}
		found = tag.RowsAffected() > 0
	}

	if s.fileDir != "" {
		err := os.Remove(s.path(key))
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("failed to delete graph file: %w", err)
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrGraphNotFound, key)
	}
	return nil
}

// List returns the stored keys, sorted.
func (s *GraphStore) List(ctx context.Context) ([]string, error) {
	if s.pool != nil {
		rows, err := s.pool.Query(ctx, `SELECT key FROM graph_definitions ORDER BY key`)
		if err != nil {
			return nil, fmt.Errorf("failed to list graphs: %w", err)
		}
		keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, fmt.Errorf("failed to list graphs: %w", err)
		}
		return keys, nil
	}

	files, err := filepath.Glob(filepath.Join(s.fileDir, "*.json"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		env, err := s.loadFile(f)
		if err != nil {
			logging.Named("store").Warn("skipping unreadable graph file", zap.String("file", f), zap.Error(err))
			continue
		}
		keys = append(keys, env.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the pool opened by Open. Pools passed to NewGraphStore
// belong to the caller and stay open.
func (s *GraphStore) Close() {
	if s.ownsPool && s.pool != nil {
		s.pool.Close()
	}
}

// UsesDB reports whether a database pool backs the store.
func (s *GraphStore) UsesDB() bool { return s.pool != nil }

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *GraphStore) path(key string) string {
	name := unsafeKeyChars.ReplaceAllString(key, "_")
	return filepath.Join(s.fileDir, name+".json")
}

func (s *GraphStore) loadFile(path string) (*fileEnvelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph file %s: %w", path, err)
	}
	if env.Definition == nil {
		return nil, fmt.Errorf("graph file %s has no definition", path)
	}
	return &env, nil
}
