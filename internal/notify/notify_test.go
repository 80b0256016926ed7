package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"catalog-sync-service/internal/logger"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestNewNotification(t *testing.T) {
	n := NewNotification(Summary{RunID: "r1", LocalProducts: 6})
	assert.Equal(t, "Sync completed", n.Title)
	assert.Equal(t, "6 products synchronized", n.Message)
}

func TestLogNotifier(t *testing.T) {
	logs := observeLogs(t)

	require.NoError(t, LogNotifier{}.Notify(context.Background(), NewNotification(Summary{RunID: "r1", LocalProducts: 2})))

	entries := logs.FilterMessage("Sync completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "2 products synchronized", entries[0].ContextMap()["message"])
}

func TestRedisNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotification(Summary{RunID: "r2", LocalProducts: 3})

	require.NoError(t, NewRedisNotifier(pub, "catalog-sync").Notify(context.Background(), n))
	assert.Equal(t, "catalog-sync", pub.channel)

	var decoded Notification
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, "r2", decoded.Summary.RunID)
	assert.Equal(t, 3, decoded.Summary.LocalProducts)
}

func TestMulti_SwallowsSinkErrors(t *testing.T) {
	logs := observeLogs(t)
	failing := NewRedisNotifier(&fakePublisher{err: errors.New("connection refused")}, "c")
	ok := &fakePublisher{}

	err := Multi{failing, NewRedisNotifier(ok, "c")}.Notify(context.Background(), NewNotification(Summary{RunID: "r3"}))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("Failed to deliver notification").Len())
	assert.NotEmpty(t, ok.payload)
}
