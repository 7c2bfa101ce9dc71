// Package store implements the persistence layer (C3): a single process-local
// sqlite database co-located with the data root, plus the legacy-JSON
// bootstrap import described in the data model. Writers to a given state_dir
// are serialised through a per-state_dir mutex (lockFor); reads are concurrent.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	jerrors "jeeves/internal/errors"
	"jeeves/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// workflowCacheSize bounds the in-memory cache of parsed workflow content
// rows; jeeves registers at most a handful of workflows in practice, so
// this is sized generously rather than tuned.
const workflowCacheSize = 64

// workflowContentEntry is ReadWorkflowContent's cached result.
type workflowContentEntry struct {
	yamlDoc    string
	parsedJSON string
}

// Store wraps the sqlite connection and per-state_dir write serialisation.
type Store struct {
	db     *sql.DB
	logger logging.Logger

	mu         sync.Mutex
	stateLocks map[string]*sync.Mutex

	workflowCache *lru.Cache[string, workflowContentEntry]
}

// Open opens or creates the sqlite database at dbPath, enabling WAL mode and
// foreign keys, and applying the schema. A table missing from an older
// database is created by re-running the (additive, IF NOT EXISTS) schema;
// a column missing from an existing table is not added. It never deletes
// data.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.Open", err)
	}
	db.SetMaxOpenConns(1) // sqlite: single-writer connection avoids SQLITE_BUSY under WAL

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, jerrors.Wrap(jerrors.KindIO, "store.Open", fmt.Errorf("%s: %w", pragma, err))
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, jerrors.Wrap(jerrors.KindInternal, "store.Open", fmt.Errorf("apply schema: %w", err))
	}
	workflowCache, err := lru.New[string, workflowContentEntry](workflowCacheSize)
	if err != nil {
		db.Close()
		return nil, jerrors.Wrap(jerrors.KindInternal, "store.Open", err)
	}
	return &Store{
		db:            db,
		logger:        logging.NewComponentLogger("store"),
		stateLocks:    make(map[string]*sync.Mutex),
		workflowCache: workflowCache,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for components that need raw access
// (diagnostics, reconciliation scans).
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction, rolling back on error or panic and
// committing otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.WithTx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.WithTx", err)
	}
	return nil
}

// lockFor returns the per-state_dir mutex used to serialise WriteIssue and
// WriteTasks calls against the same key, per the single-writer contract.
func (s *Store) lockFor(stateDir string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.stateLocks[stateDir]
	if !ok {
		l = &sync.Mutex{}
		s.stateLocks[stateDir] = l
	}
	return l
}
