package sqlite

// Schema DDL. Tabs reference their window; parent and child links stay as
// plain ids because they point into the same window and may be dangling in
// hand-edited files. Optional tab columns are nullable so records missing a
// field still load; queries read them through COALESCE.
const (
	createWindows = `CREATE TABLE windows (
    window_id INTEGER PRIMARY KEY,
    closed INTEGER
);`

	createTabs = `CREATE TABLE tabs (
    window_id INTEGER NOT NULL,
    tab_id INTEGER NOT NULL,
    url TEXT,
    title TEXT,
    favicon_url TEXT,
    parent_tab_id INTEGER,
    child_tab_ids TEXT,
    position INTEGER NOT NULL,
    is_collapsed INTEGER,
    active INTEGER,
    PRIMARY KEY (window_id, tab_id),
    FOREIGN KEY (window_id) REFERENCES windows(window_id) ON DELETE CASCADE
);`

	createSnapshots = `CREATE TABLE snapshots (
    revision TEXT PRIMARY KEY,
    saved_at TEXT NOT NULL,
    windows INTEGER NOT NULL,
    tabs INTEGER NOT NULL
);`
)

// Index DDL.
const (
	idxTabsPosition   = `CREATE INDEX idx_tabs_position ON tabs(window_id, position);`
	idxTabsURL        = `CREATE INDEX idx_tabs_url ON tabs(url);`
	idxSnapshotsSaved = `CREATE INDEX idx_snapshots_saved ON snapshots(saved_at);`
)

// schemaDDL lists the CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createWindows,
	createTabs,
	createSnapshots,
}

var indexDDL = []string{
	idxTabsPosition,
	idxTabsURL,
	idxSnapshotsSaved,
}
