package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summaree/summareebot/internal/bot/tasks"
	"github.com/summaree/summareebot/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRunsEnabledTasks(t *testing.T) {
	t.Parallel()

	var ran, failed, disabled atomic.Int32
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(ctx context.Context) error {
			ran.Add(1)
			return nil
		},
		"broken": func(ctx context.Context) error {
			failed.Add(1)
			return errors.New("boom")
		},
		"off": func(ctx context.Context) error {
			disabled.Add(1)
			return nil
		},
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick":    {Enabled: true, Schedule: "* * * * * *"},
		"broken":  {Enabled: true, Schedule: "* * * * * *"},
		"off":     {Enabled: false, Schedule: "* * * * * *"},
		"missing": {Enabled: true, Schedule: "* * * * * *"},
		"empty":   {Enabled: true},
	}}

	s, err := NewScheduler(discardLogger(), cfg, taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start")
	assert.Len(t, s.scheduler.Jobs(), 2)

	require.Eventually(t, func() bool {
		return ran.Load() > 0 && failed.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.Zero(t, disabled.Load())
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	t.Parallel()

	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick": {Enabled: true, Schedule: "not a cron"},
	}}
	s, err := NewScheduler(discardLogger(), cfg, map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error { return nil },
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	assert.Empty(t, s.scheduler.Jobs())
}

func TestSchedulerStopCancelsTasks(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)
	cancelled := make(chan struct{})
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"slow": {Enabled: true, Schedule: "* * * * * *"},
	}}
	s, err := NewScheduler(discardLogger(), cfg, map[string]tasks.ScheduledTaskFunc{
		"slow": func(ctx context.Context) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-ctx.Done()
			select {
			case <-cancelled:
			default:
				close(cancelled)
			}
			return ctx.Err()
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not start")
	}
	require.NoError(t, s.Stop())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("task context was not cancelled")
	}
}
