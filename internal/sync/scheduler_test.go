package sync

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"catalog-sync-service/internal/config"
)

type countingTriggerer struct {
	calls atomic.Int32
	err   error
}

func (c *countingTriggerer) Trigger() error {
	c.calls.Add(1)
	return c.err
}

func TestScheduler_Disabled(t *testing.T) {
	trig := &countingTriggerer{}
	s := NewScheduler(config.SchedulerConfig{Enabled: false, Interval: "@every 1s"}, trig)
	s.Start()
	defer s.Stop()

	assert.Empty(t, s.cron.Entries())
}

func TestScheduler_RegistersInterval(t *testing.T) {
	trig := &countingTriggerer{}
	s := NewScheduler(config.SchedulerConfig{Enabled: true, Interval: "@every 15m"}, trig)
	s.Start()
	assert.Len(t, s.cron.Entries(), 1)

	s.Stop()
	assert.Empty(t, s.cron.Entries())
	assert.Zero(t, trig.calls.Load())
}

func TestScheduler_InvalidInterval(t *testing.T) {
	s := NewScheduler(config.SchedulerConfig{Enabled: true, Interval: "whenever"}, &countingTriggerer{})
	s.Start()
	defer s.Stop()

	assert.Empty(t, s.cron.Entries())
}

func TestScheduler_TriggerSync(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"started", nil},
		{"already running", ErrAlreadyRunning},
		{"failure", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trig := &countingTriggerer{err: tt.err}
			s := NewScheduler(config.SchedulerConfig{Enabled: true}, trig)

			s.triggerSync()
			assert.Equal(t, int32(1), trig.calls.Load())
		})
	}
}
