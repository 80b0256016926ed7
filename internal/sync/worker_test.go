package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func collectFlushes(buffer int) (chan []string, func(ctx context.Context, tables []string)) {
	flushes := make(chan []string, buffer)
	return flushes, func(ctx context.Context, tables []string) {
		flushes <- tables
	}
}

func TestChangeFeed_FlushesFullBatch(t *testing.T) {
	events := make(chan ChangeEvent)
	flushes, onFlush := collectFlushes(4)

	feed := NewChangeFeed(events, 3, time.Hour, onFlush)
	feed.Start()
	defer feed.Stop()

	events <- ChangeEvent{Type: Insert, Table: TableUsers}
	events <- ChangeEvent{Type: Update, Table: TableProducts}
	events <- ChangeEvent{Type: Delete, Table: TableProducts}

	select {
	case tables := <-flushes:
		assert.Equal(t, []string{TableProducts, TableUsers}, tables)
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not flushed")
	}
}

func TestChangeFeed_FlushesOnTick(t *testing.T) {
	events := make(chan ChangeEvent)
	flushes, onFlush := collectFlushes(4)

	feed := NewChangeFeed(events, 100, 20*time.Millisecond, onFlush)
	feed.Start()
	defer feed.Stop()

	events <- ChangeEvent{Type: Insert, Table: TableProducts}

	select {
	case tables := <-flushes:
		assert.Equal(t, []string{TableProducts}, tables)
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not flush the pending batch")
	}
}

func TestChangeFeed_ClosedChannelFlushesRemainder(t *testing.T) {
	events := make(chan ChangeEvent, 2)
	flushes, onFlush := collectFlushes(4)

	events <- ChangeEvent{Type: Insert, Table: TableUsers}
	close(events)

	feed := NewChangeFeed(events, 10, time.Hour, onFlush)
	feed.Start()
	defer feed.Stop()

	select {
	case tables := <-flushes:
		assert.Equal(t, []string{TableUsers}, tables)
	case <-time.After(2 * time.Second):
		t.Fatal("remainder was not flushed")
	}
	feed.wg.Wait()
	assert.Empty(t, flushes)
}

func TestChangeFeed_StoppedFeedDropsPendingBatch(t *testing.T) {
	events := make(chan ChangeEvent, 1)
	flushes, onFlush := collectFlushes(1)

	events <- ChangeEvent{Type: Insert, Table: TableProducts}
	close(events)

	feed := NewChangeFeed(events, 10, time.Hour, onFlush)
	feed.cancel()
	feed.Start()
	feed.Stop()

	assert.Empty(t, flushes)
}

func TestToChangeEvent(t *testing.T) {
	tests := []struct {
		action string
		want   EventType
		ok     bool
	}{
		{"insert", Insert, true},
		{"update", Update, true},
		{"delete", Delete, true},
		{"truncate", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			ev, ok := toChangeEvent(tt.action, "catalog", TableProducts, 2)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.want, ev.Type)
			assert.Equal(t, "catalog", ev.Schema)
			assert.Equal(t, TableProducts, ev.Table)
			assert.Equal(t, 2, ev.Rows)
		})
	}
}
