// Package sqlite implements the SQLite persistence backend for tabtree.
//
// JSONL files in DataDir are the source of truth. Attach rebuilds a fresh
// SQLite database from them; while attached, every Save replaces the state
// in SQLite inside one transaction and writes the JSONL files back according
// to the configured sync strategy.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/tabtree/internal/logging"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

const dbFile = "tabtree.db"

// maxSnapshots bounds the save history kept in snapshots.jsonl.
const maxSnapshots = 100

// Backend implements types.Backend on SQLite and JSONL files.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger
	revision string

	syncStrategy  string
	batchSize     int
	batchInterval time.Duration
	pending       int // saves not yet written to JSONL; guarded by mu
	batchTimer    *time.Timer
	batchMu       sync.Mutex // protects batchTimer
}

// NewBackend creates a detached backend. Call Attach before use.
func NewBackend(logger *zap.Logger) *Backend {
	return &Backend{logger: logging.OrNop(logger)}
}

// Attach creates DataDir if needed, builds a fresh database from the JSONL
// files and starts the batch timer for the batch strategy.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of the JSONL files; start from scratch.
	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.config.DataDir = dataDir
	b.syncStrategy = config.SyncStrategy
	b.batchSize = config.BatchSize
	b.batchInterval = time.Duration(config.BatchInterval) * time.Second
	b.pending = 0
	b.revision = b.latestRevision()
	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}

	b.logger.Debug("sqlite backend attached",
		zap.String("data_dir", dataDir),
		zap.String("sync", b.effectiveStrategy()),
		zap.String("revision", b.revision))
	return nil
}

// Detach writes pending saves to JSONL and closes the database. Detach is
// idempotent.
func (b *Backend) Detach() error {
	b.stopBatchTimer()

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.flushLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	return nil
}

// Revision returns the id of the last saved snapshot, or "" if nothing has
// been saved.
func (b *Backend) Revision() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

func (b *Backend) effectiveStrategy() string {
	if b.syncStrategy == "" {
		return types.SyncImmediate
	}
	return b.syncStrategy
}

// persistLocked applies the sync strategy after a save. The caller must
// hold b.mu.
func (b *Backend) persistLocked() error {
	b.pending++
	switch b.effectiveStrategy() {
	case types.SyncImmediate:
		return b.flushLocked()
	case types.SyncBatch:
		if b.batchSize > 0 && b.pending >= b.batchSize {
			return b.flushLocked()
		}
	}
	return nil
}

// flushLocked rewrites the JSONL files from the database if any save is
// pending. A failed flush keeps the saves pending so the next flush retries.
// The caller must hold b.mu.
func (b *Backend) flushLocked() error {
	if b.pending == 0 {
		return nil
	}
	if err := b.dumpJSONL(); err != nil {
		return err
	}
	b.logger.Debug("jsonl flushed", zap.Int("saves", b.pending))
	b.pending = 0
	return nil
}

func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}
	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		if b.attached {
			if err := b.flushLocked(); err != nil {
				b.logger.Warn("batch flush failed", zap.Error(err))
			}
		}
		b.mu.Unlock()

		b.batchMu.Lock()
		defer b.batchMu.Unlock()
		if b.batchTimer != nil {
			b.batchTimer.Reset(b.batchInterval)
		}
	})
}

func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}

// newRevision returns a time-ordered snapshot id.
func newRevision() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
