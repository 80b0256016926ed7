// Package notify delivers the end-of-run sync summary to its sinks.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"catalog-sync-service/internal/logger"
)

// Summary describes one finished sync run.
type Summary struct {
	RunID           string    `json:"run_id"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	ProductsDeleted int       `json:"products_deleted"`
	ProductsPushed  int       `json:"products_pushed"`
	ProductsPulled  int       `json:"products_pulled"`
	UsersPushed     int       `json:"users_pushed"`
	UsersPulled     int       `json:"users_pulled"`
	Failures        int       `json:"failures"`
	Conflicts       int       `json:"conflicts"`
	LocalProducts   int       `json:"local_products"`
}

type Notification struct {
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Summary Summary `json:"summary"`
}

func NewNotification(s Summary) Notification {
	return Notification{
		Title:   "Sync completed",
		Message: fmt.Sprintf("%d products synchronized", s.LocalProducts),
		Summary: s,
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger.Log.Info(n.Title,
		zap.String("message", n.Message),
		zap.String("runID", n.Summary.RunID),
		zap.String("status", n.Summary.Status),
		zap.Int("localProducts", n.Summary.LocalProducts),
		zap.Int("failures", n.Summary.Failures),
	)
	return nil
}

// Publisher is the part of a Redis client used for pub/sub delivery.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisNotifier struct {
	client  Publisher
	channel string
}

func NewRedisNotifier(client Publisher, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notification marshal error: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Multi fans a notification out to every sink. Sink errors are logged and
// never returned.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			logger.Log.Error("Failed to deliver notification",
				zap.String("runID", n.Summary.RunID),
				zap.Error(err),
			)
		}
	}
	return nil
}
