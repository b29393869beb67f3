package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// Snapshot describes one save.
type Snapshot struct {
	Revision string    `json:"revision"`
	SavedAt  time.Time `json:"saved_at"`
	Windows  int       `json:"windows"`
	Tabs     int       `json:"tabs"`
}

// savedAtLayout is fixed width so saved_at sorts as text.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z"

// querier is the subset of *sql.DB and *sql.Tx the read helpers need.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const (
	selectWindows = `SELECT window_id, COALESCE(closed, 0) FROM windows ORDER BY window_id`

	selectTabs = `SELECT window_id, tab_id, COALESCE(url, ''), COALESCE(title, ''),
    COALESCE(favicon_url, ''), parent_tab_id, COALESCE(child_tab_ids, '[]'),
    position, COALESCE(is_collapsed, 0), COALESCE(active, 0)
FROM tabs ORDER BY window_id, position, tab_id`

	selectSnapshots = `SELECT revision, saved_at, windows, tabs FROM snapshots
ORDER BY saved_at DESC, revision DESC LIMIT ?`

	insertWindow = `INSERT INTO windows (window_id, closed) VALUES (?, ?)`

	insertTab = `INSERT INTO tabs (window_id, tab_id, url, title, favicon_url,
    parent_tab_id, child_tab_ids, position, is_collapsed, active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertSnapshot = `INSERT INTO snapshots (revision, saved_at, windows, tabs) VALUES (?, ?, ?, ?)`

	trimSnapshots = `DELETE FROM snapshots WHERE revision NOT IN (
    SELECT revision FROM snapshots ORDER BY saved_at DESC, revision DESC LIMIT ?)`
)

// Load reads the whole state from the database.
func (b *Backend) Load(ctx context.Context) (*types.StateStore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	windows, err := queryWindows(ctx, b.db)
	if err != nil {
		return nil, err
	}
	tabs, err := queryTabs(ctx, b.db)
	if err != nil {
		return nil, err
	}

	s := types.NewStateStore()
	for _, rec := range windows {
		s.Ensure(types.WindowID(rec.WindowID)).Closed = rec.Closed
	}
	for _, rec := range tabs {
		w := s.Ensure(types.WindowID(rec.WindowID))
		n := rec.node()
		w.Tabs[n.ID] = n
	}
	return s, nil
}

// Save replaces the stored state with s in one transaction and records a
// snapshot row. The JSONL files are written according to the sync strategy.
func (b *Backend) Save(ctx context.Context, s *types.StateStore) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceState(ctx, tx, s); err != nil {
		return err
	}

	revision := newRevision()
	savedAt := time.Now().UTC().Format(savedAtLayout)
	if _, err := tx.ExecContext(ctx, insertSnapshot, revision, savedAt, len(s.Windows), s.TabCount()); err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, trimSnapshots, maxSnapshots); err != nil {
		return fmt.Errorf("trimming snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save transaction: %w", err)
	}

	b.revision = revision
	return b.persistLocked()
}

// History returns up to limit snapshots, newest first.
func (b *Backend) History(ctx context.Context, limit int) ([]Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	recs, err := querySnapshots(ctx, b.db, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(recs))
	for _, rec := range recs {
		savedAt, err := time.Parse(savedAtLayout, rec.SavedAt)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", rec.Revision, err)
		}
		out = append(out, Snapshot{
			Revision: rec.Revision,
			SavedAt:  savedAt,
			Windows:  rec.Windows,
			Tabs:     rec.Tabs,
		})
	}
	return out, nil
}

func replaceState(ctx context.Context, tx *sql.Tx, s *types.StateStore) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM tabs"); err != nil {
		return fmt.Errorf("clearing tabs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM windows"); err != nil {
		return fmt.Errorf("clearing windows: %w", err)
	}

	winStmt, err := tx.PrepareContext(ctx, insertWindow)
	if err != nil {
		return err
	}
	defer winStmt.Close()
	tabStmt, err := tx.PrepareContext(ctx, insertTab)
	if err != nil {
		return err
	}
	defer tabStmt.Close()

	for _, windowID := range s.WindowIDs() {
		w := s.Windows[windowID]
		if _, err := winStmt.ExecContext(ctx, int(windowID), boolInt(w.Closed)); err != nil {
			return fmt.Errorf("saving window %d: %w", windowID, err)
		}
		for _, id := range w.IDs() {
			rec := newTabJSON(windowID, w.Tabs[id])
			children, err := json.Marshal(rec.ChildTabIDs)
			if err != nil {
				return err
			}
			var parent any
			if rec.ParentTabID != nil {
				parent = *rec.ParentTabID
			}
			if _, err := tabStmt.ExecContext(ctx,
				rec.WindowID, rec.TabID, rec.URL, rec.Title, rec.FaviconURL,
				parent, string(children), rec.Position,
				boolInt(rec.IsCollapsed), boolInt(rec.Active),
			); err != nil {
				return fmt.Errorf("saving tab %d in window %d: %w", id, windowID, err)
			}
		}
	}
	return nil
}

// dumpJSONL rewrites every JSONL file from the database.
func (b *Backend) dumpJSONL() error {
	ctx := context.Background()
	dataDir := b.config.DataDir

	windows, err := queryWindows(ctx, b.db)
	if err != nil {
		return err
	}
	tabs, err := queryTabs(ctx, b.db)
	if err != nil {
		return err
	}
	snapshots, err := querySnapshots(ctx, b.db, maxSnapshots)
	if err != nil {
		return err
	}
	// Oldest first, so the file reads as an append log.
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}

	if err := writeRecords(filepath.Join(dataDir, windowsJSONL), windows); err != nil {
		return err
	}
	if err := writeRecords(filepath.Join(dataDir, tabsJSONL), tabs); err != nil {
		return err
	}
	return writeRecords(filepath.Join(dataDir, snapshotsJSONL), snapshots)
}

func writeRecords[T any](path string, values []T) error {
	records, err := marshalJSONL(values)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return writeJSONL(path, records)
}

func (b *Backend) latestRevision() string {
	recs, err := querySnapshots(context.Background(), b.db, 1)
	if err != nil || len(recs) == 0 {
		return ""
	}
	return recs[0].Revision
}

func queryWindows(ctx context.Context, q querier) ([]windowJSON, error) {
	rows, err := q.QueryContext(ctx, selectWindows)
	if err != nil {
		return nil, fmt.Errorf("querying windows: %w", err)
	}
	defer rows.Close()

	var out []windowJSON
	for rows.Next() {
		var rec windowJSON
		var closed int64
		if err := rows.Scan(&rec.WindowID, &closed); err != nil {
			return nil, fmt.Errorf("scanning window: %w", err)
		}
		rec.Closed = closed != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func queryTabs(ctx context.Context, q querier) ([]tabJSON, error) {
	rows, err := q.QueryContext(ctx, selectTabs)
	if err != nil {
		return nil, fmt.Errorf("querying tabs: %w", err)
	}
	defer rows.Close()

	var out []tabJSON
	for rows.Next() {
		var (
			rec       tabJSON
			parent    sql.NullInt64
			children  string
			collapsed int64
			active    int64
		)
		if err := rows.Scan(
			&rec.WindowID, &rec.TabID, &rec.URL, &rec.Title, &rec.FaviconURL,
			&parent, &children, &rec.Position, &collapsed, &active,
		); err != nil {
			return nil, fmt.Errorf("scanning tab: %w", err)
		}
		if parent.Valid {
			p := int(parent.Int64)
			rec.ParentTabID = &p
		}
		if err := json.Unmarshal([]byte(children), &rec.ChildTabIDs); err != nil {
			return nil, fmt.Errorf("tab %d child_tab_ids: %w", rec.TabID, err)
		}
		if rec.ChildTabIDs == nil {
			rec.ChildTabIDs = []int{}
		}
		rec.IsCollapsed = collapsed != 0
		rec.Active = active != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func querySnapshots(ctx context.Context, q querier, limit int) ([]snapshotJSON, error) {
	rows, err := q.QueryContext(ctx, selectSnapshots, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []snapshotJSON
	for rows.Next() {
		var rec snapshotJSON
		if err := rows.Scan(&rec.Revision, &rec.SavedAt, &rec.Windows, &rec.Tabs); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
