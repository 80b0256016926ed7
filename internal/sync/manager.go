package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/logger"
	"catalog-sync-service/internal/notify"
	"catalog-sync-service/internal/remote"
	"catalog-sync-service/internal/store"
)

// Dependencies are the collaborators a Manager reconciles between.
type Dependencies struct {
	Products     ProductStore
	Users        UserStore
	ProductTable remote.Table
	UserTable    remote.Table
	Store        store.Store
	Notifier     notify.Notifier
}

// Manager runs the reconciliation routine and owns its triggers: the cron
// scheduler, the realtime change feed and on-demand requests. At most one run
// executes at a time; concurrent callers share its result.
type Manager struct {
	cfg          *config.Config
	products     ProductStore
	users        UserStore
	productTable remote.Table
	userTable    remote.Table
	store        store.Store
	notifier     notify.Notifier
	conflicts    *ConflictManager

	group   singleflight.Group
	callers atomic.Int32 // inside RunOnce, including the one executing
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	status    string
	lastRun   *notify.Summary
	started   bool
	scheduler *Scheduler
	listener  *BinlogListener
	feed      *ChangeFeed
}

func NewManager(cfg *config.Config, deps Dependencies) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	return &Manager{
		cfg:          cfg,
		products:     deps.Products,
		users:        deps.Users,
		productTable: deps.ProductTable,
		userTable:    deps.UserTable,
		store:        deps.Store,
		notifier:     notifier,
		conflicts:    NewConflictManager(deps.Store, cfg.Sync.ConflictResolution),
		ctx:          ctx,
		cancel:       cancel,
		status:       StatusIdle,
	}
}

// Start launches the configured background triggers.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("sync manager already started")
	}

	logger.Log.Info("Starting sync manager",
		zap.Bool("runOnStart", m.cfg.Sync.RunOnStart),
		zap.Bool("realtime", m.cfg.Sync.Realtime),
		zap.Bool("scheduler", m.cfg.Scheduler.Enabled),
	)

	if m.cfg.Sync.Realtime {
		listener, err := NewBinlogListener(m.cfg.Database, []string{TableProducts, TableUsers})
		if err != nil {
			return err
		}
		feed := NewChangeFeed(listener.Events(), m.cfg.Sync.BatchSize, m.cfg.Sync.GetFlushInterval(), m.onChanges)
		feed.Start()
		if err := listener.Start(); err != nil {
			feed.Stop()
			return err
		}
		m.listener = listener
		m.feed = feed
	}

	m.scheduler = NewScheduler(m.cfg.Scheduler, m)
	m.scheduler.Start()

	if m.cfg.Sync.RunOnStart {
		m.runInBackground()
	}

	m.started = true
	return nil
}

// Stop cancels any in-flight run between items and stops every trigger.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		m.cancel()
		m.wg.Wait()
		return
	}
	m.started = false
	scheduler, listener, feed := m.scheduler, m.listener, m.feed
	m.mu.Unlock()

	logger.Log.Info("Stopping sync manager")

	if scheduler != nil {
		scheduler.Stop()
	}
	m.cancel()
	if feed != nil {
		feed.Stop()
	}
	if listener != nil {
		listener.Stop()
	}

	m.wg.Wait()
}

// Trigger starts a run in the background unless one is already executing.
func (m *Manager) Trigger() error {
	if m.GetStatus() == StatusRunning {
		return ErrAlreadyRunning
	}
	m.runInBackground()
	return nil
}

func (m *Manager) runInBackground() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.RunOnce(m.ctx); err != nil {
			logger.Log.Error("Sync run failed", zap.Error(err))
		}
	}()
}

func (m *Manager) onChanges(ctx context.Context, tables []string) {
	if m.ctx.Err() != nil {
		logger.Log.Debug("Sync manager stopping, ignoring local changes", zap.Strings("tables", tables))
		return
	}
	logger.Log.Info("Local changes detected, syncing", zap.Strings("tables", tables))
	if _, err := m.RunOnce(m.ctx); err != nil {
		logger.Log.Error("Realtime sync failed", zap.Error(err))
	}
}

func (m *Manager) GetStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastRun returns the summary of the most recent finished run, if any.
func (m *Manager) LastRun() *notify.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRun == nil {
		return nil
	}
	s := *m.lastRun
	return &s
}

func (m *Manager) SyncStates(ctx context.Context) ([]*store.SyncState, error) {
	return m.store.ListSyncStates(ctx)
}

func (m *Manager) History(ctx context.Context, limit, offset int) ([]*store.SyncHistory, error) {
	return m.store.GetSyncHistory(ctx, limit, offset)
}

func (m *Manager) Conflicts(ctx context.Context, resolved bool, limit, offset int) ([]*store.Conflict, error) {
	return m.store.ListConflicts(ctx, resolved, limit, offset)
}

func (m *Manager) setStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// RunOnce executes the full routine. A caller arriving while a run is in
// progress waits for it and receives the same summary.
func (m *Manager) RunOnce(ctx context.Context) (notify.Summary, error) {
	m.callers.Add(1)
	defer m.callers.Add(-1)

	v, err, shared := m.group.Do("sync", func() (interface{}, error) {
		return m.run(ctx)
	})
	summary := v.(notify.Summary)
	if shared {
		logger.Log.Debug("Sync result shared with concurrent caller", zap.String("runID", summary.RunID))
	}
	return summary, err
}

func (m *Manager) run(ctx context.Context) (notify.Summary, error) {
	m.setStatus(StatusRunning)
	defer m.setStatus(StatusIdle)

	summary := notify.Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	runID := summary.RunID
	log := logger.Log.With(zap.String("runID", runID))
	// Bookkeeping still lands when the run itself is cancelled.
	bookCtx := context.WithoutCancel(ctx)
	log.Info("Sync started")

	history := &store.SyncHistory{
		ID:           runID,
		StartedAt:    summary.StartedAt,
		Direction:    DirectionBidirectional,
		TablesSynced: strings.Join([]string{TableProducts, TableUsers}, ","),
		Status:       store.StatusRunning,
	}
	if err := m.store.CreateSyncHistory(bookCtx, history); err != nil {
		log.Error("Failed to record sync history", zap.Error(err))
	}

	if err := m.ping(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			summary.Status = store.StatusFailed
			m.finish(bookCtx, history, &summary, ctxErr.Error())
			return summary, fmt.Errorf("sync run %s interrupted: %w", runID, ctxErr)
		}
		log.Warn("Remote unreachable, sync postponed", zap.Error(err))
		summary.Status = store.StatusSkipped
		m.finish(bookCtx, history, &summary, err.Error())
		return summary, nil
	}

	deleted := m.deletePending(ctx, runID)
	pushed := m.pushProducts(ctx, runID)
	pulled := m.pullProducts(ctx, runID)
	m.updateState(bookCtx, TableProducts, summary.StartedAt, deleted, pushed, pulled)

	usersPushed := m.pushUsers(ctx, runID)
	usersPulled := m.pullUsers(ctx, runID)
	m.updateState(bookCtx, TableUsers, summary.StartedAt, usersPushed, usersPulled)

	phases := []phaseResult{deleted, pushed, pulled, usersPushed, usersPulled}
	summary.ProductsDeleted = deleted.ok
	summary.ProductsPushed = pushed.ok
	summary.ProductsPulled = pulled.ok
	summary.UsersPushed = usersPushed.ok
	summary.UsersPulled = usersPulled.ok

	var errs []string
	for _, p := range phases {
		summary.Failures += p.failed
		summary.Conflicts += p.conflicts
		if p.err != nil {
			summary.Failures++
			errs = append(errs, p.err.Error())
		}
	}

	if err := ctx.Err(); err != nil {
		summary.Status = store.StatusFailed
		m.finish(bookCtx, history, &summary, err.Error())
		return summary, fmt.Errorf("sync run %s interrupted: %w", runID, err)
	}

	summary.Status = store.StatusCompleted
	if summary.Failures > 0 {
		summary.Status = store.StatusPartial
	}

	count, err := m.products.Count(ctx)
	if err != nil {
		log.Error("Failed to count local products", zap.Error(err))
	}
	summary.LocalProducts = count

	m.finish(bookCtx, history, &summary, strings.Join(errs, "; "))

	if err := m.notifier.Notify(ctx, notify.NewNotification(summary)); err != nil {
		log.Error("Failed to notify", zap.Error(err))
	}
	return summary, nil
}

func (m *Manager) ping(ctx context.Context) error {
	if err := m.productTable.Ping(ctx); err != nil {
		return err
	}
	return m.userTable.Ping(ctx)
}

func (m *Manager) finish(ctx context.Context, history *store.SyncHistory, summary *notify.Summary, errMsg string) {
	summary.CompletedAt = time.Now().UTC()

	history.CompletedAt = &summary.CompletedAt
	history.Status = summary.Status
	history.TotalRows = int64(summary.ProductsDeleted + summary.ProductsPushed + summary.ProductsPulled +
		summary.UsersPushed + summary.UsersPulled)
	history.ConflictsDetected = summary.Conflicts
	history.ErrorMessage = errMsg
	if err := m.store.UpdateSyncHistory(ctx, history); err != nil {
		logger.Log.Error("Failed to update sync history", zap.String("runID", summary.RunID), zap.Error(err))
	}

	m.mu.Lock()
	last := *summary
	m.lastRun = &last
	m.mu.Unlock()

	logger.Log.Info("Sync finished",
		zap.String("runID", summary.RunID),
		zap.String("status", summary.Status),
		zap.Duration("took", summary.CompletedAt.Sub(summary.StartedAt)),
		zap.Int("failures", summary.Failures),
	)
}

func (m *Manager) updateState(ctx context.Context, table string, startedAt time.Time, phases ...phaseResult) {
	state := &store.SyncState{
		TableName:     table,
		LastSyncTime:  &startedAt,
		SyncDirection: DirectionBidirectional,
		Status:        store.StatusCompleted,
	}

	var errs []string
	for _, p := range phases {
		state.RowsSynced += int64(p.ok)
		if p.failed > 0 {
			state.Status = store.StatusPartial
			errs = append(errs, fmt.Sprintf("%d rows failed", p.failed))
		}
		if p.err != nil {
			state.Status = store.StatusPartial
			errs = append(errs, p.err.Error())
		}
	}
	state.ErrorMessage = strings.Join(errs, "; ")

	if err := m.store.UpdateSyncState(ctx, state); err != nil {
		logger.Log.Error("Failed to update sync state", zap.String("table", table), zap.Error(err))
	}
}
