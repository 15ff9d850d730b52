package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geo-heat-overlay/internal/pipeline"
)

func TestSchedule_RunsImmediatelyAndOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	task := pipeline.Schedule(ctx, clock, time.Minute, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	defer task.Stop()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, task.Runs())
}

func TestSchedule_Trigger(t *testing.T) {
	var calls atomic.Int64
	task := pipeline.Schedule(context.Background(), clockwork.NewFakeClock(), time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	defer task.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	task.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSchedule_NoIntervalRunsOnlyOnDemand(t *testing.T) {
	var calls atomic.Int64
	task := pipeline.Schedule(context.Background(), clockwork.NewFakeClock(), 0, func(context.Context) error {
		calls.Add(1)
		return errors.New("nope")
	})
	defer task.Stop()

	require.Eventually(t, func() bool { return task.Runs() == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualError(t, task.LastError(), "nope")
	task.Trigger()
	require.Eventually(t, func() bool { return task.Runs() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSchedule_StopAndDone(t *testing.T) {
	task := pipeline.Schedule(context.Background(), clockwork.NewFakeClock(), time.Second, func(context.Context) error { return nil })

	task.Stop()

	select {
	case <-task.Done():
	default:
		t.Fatal("task not done after Stop")
	}
	// Stopping twice is safe.
	task.Stop()
}

func TestSchedule_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := pipeline.Schedule(ctx, clockwork.NewFakeClock(), time.Second, func(context.Context) error { return nil })

	cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not exit after context cancel")
	}
}
