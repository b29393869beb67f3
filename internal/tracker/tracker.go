// Package tracker owns the tab StateStore for a browser session. It applies
// normalized host events through the tree mutator, restores hierarchy onto
// windows that come back after a restart, and saves the whole store after
// every change.
//
// All methods are safe for concurrent use; events are applied one at a time
// under a single lock, so each handler sees the effects of the previous one.
package tracker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabtree/internal/monitoring"
	"github.com/mesh-intelligence/tabtree/internal/tree"
	"github.com/mesh-intelligence/tabtree/pkg/types"
)

// ErrClosed is returned by mutating calls after Close.
var ErrClosed = errors.New("tracker is closed")

// AfterFunc schedules f to run after d and returns a function that cancels
// it. The returned function reports whether the call was stopped before f
// ran, like (*time.Timer).Stop.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timerAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. The default uses unregistered
// collectors.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(t *Tracker) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithRestoreRetries sets how many times a window open retries restoration
// and how long it waits between attempts.
func WithRestoreRetries(retries int, delay time.Duration) Option {
	return func(t *Tracker) {
		t.retries = max(retries, 0)
		t.retryDelay = delay
	}
}

// WithTreeOptions sets the mutation options.
func WithTreeOptions(o tree.Options) Option {
	return func(t *Tracker) {
		t.treeOpts = o
	}
}

// WithConfig applies the tracker parameters held in cfg.
func WithConfig(cfg types.Config) Option {
	return func(t *Tracker) {
		WithRestoreRetries(cfg.RestoreRetries, cfg.RestoreRetryDelay)(t)
		t.treeOpts.CompactSubtreeRemoval = cfg.CompactSubtreeRemoval
	}
}

// WithAfterFunc replaces the timer used for restoration retries.
func WithAfterFunc(f AfterFunc) Option {
	return func(t *Tracker) {
		if f != nil {
			t.afterFunc = f
		}
	}
}

// WindowSummary describes one window held in the store.
type WindowSummary struct {
	ID     types.WindowID `json:"id"`
	Tabs   int            `json:"tabs"`
	Closed bool           `json:"closed"`
}

// Tracker applies host events to a StateStore and persists it.
type Tracker struct {
	mu        sync.Mutex
	store     *types.StateStore
	persister types.Persister
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	treeOpts   tree.Options
	retries    int
	retryDelay time.Duration
	afterFunc  AfterFunc

	restores map[types.WindowID]*restoreAttempt
	closed   bool
}

// restoreAttempt is the pending retry for one window. A retry only runs if
// it is still the window's current attempt when its timer fires.
type restoreAttempt struct {
	attempt int
	stop    func() bool
}

// New loads the persisted state and returns a tracker over it. Every loaded
// window is marked closed: it belongs to a previous session until a host
// event or a restoration claims it.
func New(ctx context.Context, p types.Persister, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		persister:  p,
		logger:     zap.NewNop(),
		metrics:    monitoring.NewMetrics(nil),
		treeOpts:   tree.DefaultOptions(),
		retries:    types.DefaultRestoreRetries,
		retryDelay: types.DefaultRestoreRetryDelay,
		afterFunc:  timerAfterFunc,
		restores:   make(map[types.WindowID]*restoreAttempt),
	}
	for _, opt := range opts {
		opt(t)
	}

	state, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if state == nil || state.Windows == nil {
		state = types.NewStateStore()
	}
	for _, w := range state.Windows {
		w.Closed = true
		if err := w.Validate(); err != nil {
			t.logger.Warn("repairing loaded window",
				zap.Int("window", int(w.WindowID)), zap.Error(err))
			tree.Repair(w)
		}
	}
	t.store = state
	t.metrics.ObserveStore(len(state.Windows), state.TabCount())
	t.logger.Info("state loaded",
		zap.Int("windows", len(state.Windows)),
		zap.Int("tabs", state.TabCount()))
	return t, nil
}

// Handle applies one event. Events that change nothing are not persisted.
func (t *Tracker) Handle(ctx context.Context, ev types.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	t.metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case types.EventTabCreated:
		tab := *ev.Tab
		if tab.WindowID == 0 {
			tab.WindowID = ev.WindowID
		}
		return t.Insert(ctx, tab)
	case types.EventTabUpdated:
		return t.Update(ctx, ev.WindowID, ev.TabID, ev.Change)
	case types.EventTabRemoved:
		if ev.IsWindowClosing {
			return t.CloseWindow(ctx, ev.WindowID)
		}
		return t.Remove(ctx, ev.WindowID, ev.TabID, ev.WithChildren)
	case types.EventWindowOpened:
		return t.WindowOpened(ctx, ev.WindowID)
	case types.EventWindowRemoved:
		return t.CloseWindow(ctx, ev.WindowID)
	}
	return nil
}

// Run handles events from the channel until it is closed or ctx is done.
// Handler errors are logged and do not stop the loop.
func (t *Tracker) Run(ctx context.Context, events <-chan types.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := t.Handle(ctx, ev); err != nil {
				t.logger.Warn("event failed",
					zap.String("type", string(ev.Kind)),
					zap.Int("window", int(ev.WindowID)),
					zap.Int("tab", int(ev.TabID)),
					zap.Error(err))
			}
		}
	}
}

// Insert adds a newly created tab to its window, creating the window tree on
// first use.
func (t *Tracker) Insert(ctx context.Context, tab types.TabCreated) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	w := t.openWindowLocked(tab.WindowID)
	if !tree.Insert(w, tab) {
		t.metrics.SkippedSaves.Inc()
		return nil
	}
	t.logger.Debug("tab inserted",
		zap.Int("window", int(tab.WindowID)),
		zap.Int("tab", int(tab.ID)),
		zap.Int("parent", int(w.Tabs[tab.ID].ParentTabID)))
	return t.saveLocked(ctx)
}

// Remove deletes a tab. With withChildren the whole subtree goes; otherwise
// the children are reparented to the tab's parent.
func (t *Tracker) Remove(ctx context.Context, windowID types.WindowID, tabID types.TabID, withChildren bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	w, ok := t.store.Window(windowID)
	if !ok || w.Closed || !tree.Remove(w, tabID, withChildren, t.treeOpts) {
		t.metrics.SkippedSaves.Inc()
		return nil
	}
	t.logger.Debug("tab removed",
		zap.Int("window", int(windowID)),
		zap.Int("tab", int(tabID)),
		zap.Bool("with_children", withChildren))
	return t.saveLocked(ctx)
}

// Update applies a partial change to a tab. Nothing is saved unless a field
// actually changed.
func (t *Tracker) Update(ctx context.Context, windowID types.WindowID, tabID types.TabID, change types.ChangeInfo) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	w, ok := t.store.Window(windowID)
	if !ok || w.Closed {
		t.metrics.SkippedSaves.Inc()
		return nil
	}
	changed := tree.Update(w, tabID, change)
	if len(changed) == 0 {
		t.metrics.SkippedSaves.Inc()
		return nil
	}
	t.logger.Debug("tab updated",
		zap.Int("window", int(windowID)),
		zap.Int("tab", int(tabID)),
		zap.Any("fields", changed))
	return t.saveLocked(ctx)
}

// CloseWindow retains the window's tree as a restoration candidate. Its tabs
// are kept as they were when the window closed.
func (t *Tracker) CloseWindow(ctx context.Context, windowID types.WindowID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	t.cancelRestoreLocked(windowID)
	w, ok := t.store.Window(windowID)
	if !ok || w.Closed {
		t.metrics.SkippedSaves.Inc()
		return nil
	}
	w.Closed = true
	t.logger.Info("window retained",
		zap.Int("window", int(windowID)),
		zap.Int("tabs", w.Len()))
	return t.saveLocked(ctx)
}

// WindowOpened registers a new window and tries to restore its hierarchy
// from a retained window with the same URLs. When nothing matches yet, the
// attempt is retried after the configured delay, since a restored window's
// tabs usually arrive after the window itself. A window that already has
// parent links keeps them.
func (t *Tracker) WindowOpened(ctx context.Context, windowID types.WindowID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	prev, existed := t.store.Window(windowID)
	wasOpen := existed && !prev.Closed
	t.openWindowLocked(windowID)
	t.cancelRestoreLocked(windowID)

	restored, err := t.tryRestoreLocked(ctx, windowID, 0)
	if restored || err != nil {
		return err
	}
	if wasOpen {
		t.metrics.SkippedSaves.Inc()
		return nil
	}
	return t.saveLocked(ctx)
}

// Seed bulk-loads the tabs of already open windows, as reported by the host
// at startup, and persists once. Openers are linked regardless of the order
// the tabs arrive in. Each seeded window without opener links is then
// matched against the retained windows.
func (t *Tracker) Seed(ctx context.Context, tabs []types.TabCreated) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	byWindow := make(map[types.WindowID][]types.TabCreated)
	for _, tab := range tabs {
		byWindow[tab.WindowID] = append(byWindow[tab.WindowID], tab)
	}

	windowIDs := slices.Sorted(maps.Keys(byWindow))
	for _, windowID := range windowIDs {
		group := byWindow[windowID]
		slices.SortStableFunc(group, func(a, b types.TabCreated) int {
			return cmp.Compare(a.Index, b.Index)
		})
		w := t.openWindowLocked(windowID)
		for _, tab := range group {
			tree.Insert(w, tab)
		}
		for _, tab := range group {
			if tab.OpenerTabID.Set {
				tree.Attach(w, tab.ID, tab.OpenerTabID.Value)
			}
		}
	}

	for _, windowID := range windowIDs {
		if w, _ := t.store.Window(windowID); w.HasLinks() {
			continue
		}
		if oldID, ok := tree.Match(t.store, windowID); ok {
			t.metrics.RestoresTotal.WithLabelValues(monitoring.RestoreMatched).Inc()
			t.logger.Info("window restored",
				zap.Int("window", int(windowID)),
				zap.Int("from", int(oldID)))
		}
	}

	t.logger.Info("seeded",
		zap.Int("windows", len(windowIDs)),
		zap.Int("tabs", len(tabs)))
	return t.saveLocked(ctx)
}

// Snapshot returns a deep copy of the whole store.
func (t *Tracker) Snapshot() *types.StateStore {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Clone()
}

// Window returns a deep copy of one window's tree.
func (t *Tracker) Window(windowID types.WindowID) (*types.WindowTree, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.store.Window(windowID)
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

// View returns the visible forest of one window.
func (t *Tracker) View(windowID types.WindowID) ([]types.TreeView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.store.Window(windowID)
	if !ok {
		return nil, false
	}
	return w.View(), true
}

// Windows lists every window in the store in ascending id order.
func (t *Tracker) Windows() []WindowSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]WindowSummary, 0, len(t.store.Windows))
	for _, id := range t.store.WindowIDs() {
		w := t.store.Windows[id]
		out = append(out, WindowSummary{ID: id, Tabs: w.Len(), Closed: w.Closed})
	}
	return out
}

// Close cancels pending restoration retries. Later mutations return
// ErrClosed; reads keep working.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for id := range t.restores {
		t.cancelRestoreLocked(id)
	}
	return nil
}

// openWindowLocked returns the open tree for windowID. A retained tree under
// the same id belongs to an earlier session whose id the host reused; it is
// moved aside so it stays a restoration candidate.
func (t *Tracker) openWindowLocked(windowID types.WindowID) *types.WindowTree {
	if w, ok := t.store.Window(windowID); ok {
		if !w.Closed {
			return w
		}
		t.retireLocked(w)
	}
	return t.store.Ensure(windowID)
}

// retireLocked re-keys a retained tree under an unused negative id.
func (t *Tracker) retireLocked(w *types.WindowTree) {
	next := types.WindowID(-1)
	if ids := t.store.WindowIDs(); len(ids) > 0 && ids[0] <= next {
		next = ids[0] - 1
	}
	delete(t.store.Windows, w.WindowID)
	t.logger.Debug("retained window moved aside",
		zap.Int("window", int(w.WindowID)),
		zap.Int("as", int(next)))
	w.WindowID = next
	t.store.Windows[next] = w
}

// tryRestoreLocked runs one restoration attempt for windowID. On a match it
// saves and reports true. Otherwise it schedules the next attempt, or gives
// up once the retries are spent. A window that already has a hierarchy is
// left alone.
func (t *Tracker) tryRestoreLocked(ctx context.Context, windowID types.WindowID, attempt int) (bool, error) {
	if w, ok := t.store.Window(windowID); ok && w.HasLinks() {
		delete(t.restores, windowID)
		t.logger.Debug("window has a hierarchy, not restoring",
			zap.Int("window", int(windowID)))
		return false, nil
	}
	oldID, ok := tree.Match(t.store, windowID)
	if ok {
		delete(t.restores, windowID)
		t.metrics.RestoresTotal.WithLabelValues(monitoring.RestoreMatched).Inc()
		t.logger.Info("window restored",
			zap.Int("window", int(windowID)),
			zap.Int("from", int(oldID)),
			zap.Int("attempt", attempt))
		return true, t.saveLocked(ctx)
	}

	if attempt >= t.retries {
		delete(t.restores, windowID)
		t.metrics.RestoresTotal.WithLabelValues(monitoring.RestoreAbandoned).Inc()
		t.logger.Debug("no retained window matched",
			zap.Int("window", int(windowID)),
			zap.Int("attempts", attempt+1))
		return false, nil
	}

	t.metrics.RestoresTotal.WithLabelValues(monitoring.RestoreRetried).Inc()
	r := &restoreAttempt{attempt: attempt + 1}
	r.stop = t.afterFunc(t.retryDelay, func() { t.retryRestore(windowID, r) })
	t.restores[windowID] = r
	return false, nil
}

func (t *Tracker) retryRestore(windowID types.WindowID, r *restoreAttempt) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.restores[windowID] != r {
		return
	}
	if w, ok := t.store.Window(windowID); !ok || w.Closed {
		delete(t.restores, windowID)
		return
	}
	if _, err := t.tryRestoreLocked(context.Background(), windowID, r.attempt); err != nil {
		t.logger.Warn("restore retry failed",
			zap.Int("window", int(windowID)),
			zap.Error(err))
	}
}

func (t *Tracker) cancelRestoreLocked(windowID types.WindowID) {
	if r, ok := t.restores[windowID]; ok {
		if r.stop != nil {
			r.stop()
		}
		delete(t.restores, windowID)
	}
}

// saveLocked persists the whole store. A failed save leaves the in-memory
// state as it is; the error wraps types.ErrPersist.
func (t *Tracker) saveLocked(ctx context.Context) error {
	start := time.Now()
	err := t.persister.Save(ctx, t.store)
	t.metrics.SaveDuration.Observe(time.Since(start).Seconds())
	t.metrics.ObserveStore(len(t.store.Windows), t.store.TabCount())
	if err != nil {
		t.metrics.SaveErrors.Inc()
		t.logger.Error("save state failed", zap.Error(err))
		return fmt.Errorf("%w: %w", types.ErrPersist, err)
	}
	t.metrics.SavesTotal.Inc()
	return nil
}
