package sync

import (
	"context"
	"fmt"

	"github.com/go-mysql-org/go-mysql/canal"
	"go.uber.org/zap"

	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/logger"
)

// BinlogListener follows the local MySQL binlog and emits a ChangeEvent for
// every row change on the catalog tables.
type BinlogListener struct {
	cfg       config.DatabaseConnection
	canal     *canal.Canal
	eventChan chan ChangeEvent
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	tables    map[string]bool // Whitelist of tables
}

func NewBinlogListener(cfg config.DatabaseConnection, tables []string) (*BinlogListener, error) {
	tableMap := make(map[string]bool)
	var tableRegex []string
	for _, t := range tables {
		tableMap[t] = true
		tableRegex = append(tableRegex, fmt.Sprintf("^%s\\.%s$", cfg.Database, t))
	}

	c, err := canal.NewCanal(&canal.Config{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		User:     cfg.ReplicationUser,
		Password: cfg.ReplicationPassword,
		Flavor:   "mysql",
		ServerID: 100, // Should be unique
		Dump: canal.DumpConfig{
			ExecutionPath: "", // No initial dump; the first sync run reads the tables
		},
		IncludeTableRegex: tableRegex,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create canal: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	l := &BinlogListener{
		cfg:       cfg,
		canal:     c,
		eventChan: make(chan ChangeEvent, 1024),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		tables:    tableMap,
	}

	c.SetEventHandler(&eventHandler{listener: l})

	return l, nil
}

func (l *BinlogListener) Start() error {
	logger.Log.Info("Starting binlog listener", zap.String("host", l.cfg.Host))

	go func() {
		defer close(l.done)
		if err := l.canal.Run(); err != nil && l.ctx.Err() == nil {
			logger.Log.Error("Canal run error", zap.Error(err))
		}
	}()

	return nil
}

// Stop closes the canal and then the event channel, once no handler can send.
func (l *BinlogListener) Stop() {
	l.cancel()
	l.canal.Close()
	<-l.done
	close(l.eventChan)
	logger.Log.Info("Stopped binlog listener")
}

func (l *BinlogListener) Events() <-chan ChangeEvent {
	return l.eventChan
}

type eventHandler struct {
	canal.DummyEventHandler
	listener *BinlogListener
}

func (h *eventHandler) OnRow(e *canal.RowsEvent) error {
	if !h.listener.tables[e.Table.Name] {
		return nil
	}

	event, ok := toChangeEvent(e.Action, e.Table.Schema, e.Table.Name, len(e.Rows))
	if !ok {
		return nil
	}

	pos := h.listener.canal.SyncedPosition()
	event.BinlogFile = pos.Name
	event.BinlogPos = pos.Pos
	if e.Header != nil {
		event.Timestamp = e.Header.Timestamp
	}

	// Block when the feed is behind rather than drop changes.
	select {
	case h.listener.eventChan <- event:
	case <-h.listener.ctx.Done():
		return h.listener.ctx.Err()
	}

	return nil
}

func (h *eventHandler) String() string {
	return "CatalogBinlogEventHandler"
}

func toChangeEvent(action, schema, table string, rows int) (ChangeEvent, bool) {
	var eventType EventType
	switch action {
	case canal.InsertAction:
		eventType = Insert
	case canal.UpdateAction:
		eventType = Update
	case canal.DeleteAction:
		eventType = Delete
	default:
		return ChangeEvent{}, false
	}

	return ChangeEvent{
		Type:   eventType,
		Schema: schema,
		Table:  table,
		Rows:   rows,
	}, true
}
