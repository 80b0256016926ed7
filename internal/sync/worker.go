package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"catalog-sync-service/internal/logger"
)

// ChangeFeed batches change events and invokes onFlush with the tables they
// touched, either when the batch is full or on every flush interval tick.
type ChangeFeed struct {
	events        <-chan ChangeEvent
	batchSize     int
	flushInterval time.Duration
	onFlush       func(ctx context.Context, tables []string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	batch  []ChangeEvent
}

func NewChangeFeed(events <-chan ChangeEvent, batchSize int, flushInterval time.Duration, onFlush func(ctx context.Context, tables []string)) *ChangeFeed {
	ctx, cancel := context.WithCancel(context.Background())
	if batchSize <= 0 {
		batchSize = 1
	}

	return &ChangeFeed{
		events:        events,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		onFlush:       onFlush,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (f *ChangeFeed) Start() {
	logger.Log.Info("Starting change feed", zap.Int("batchSize", f.batchSize), zap.Duration("flushInterval", f.flushInterval))
	f.wg.Add(1)
	go f.run()
}

func (f *ChangeFeed) Stop() {
	f.cancel()
	f.wg.Wait()
	logger.Log.Info("Stopped change feed")
}

func (f *ChangeFeed) run() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-f.events:
			if !ok {
				if f.ctx.Err() == nil {
					f.flush() // Flush remaining
				}
				return
			}
			f.batch = append(f.batch, event)
			if len(f.batch) >= f.batchSize {
				f.flush()
			}

		case <-ticker.C:
			if len(f.batch) > 0 {
				f.flush()
			}

		case <-f.ctx.Done():
			// The sync manager is shutting down; a pending batch is picked up
			// by the next run after restart.
			return
		}
	}
}

func (f *ChangeFeed) flush() {
	if len(f.batch) == 0 {
		return
	}

	seen := make(map[string]struct{})
	for _, e := range f.batch {
		seen[e.Table] = struct{}{}
	}
	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	logger.Log.Debug("Flushing change batch", zap.Int("events", len(f.batch)), zap.Strings("tables", tables))

	f.batch = f.batch[:0]
	f.onFlush(f.ctx, tables)
}
