package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	runs atomic.Int32
	err  error
}

func (s *countingSweeper) Run(context.Context) (int, error) {
	s.runs.Add(1)
	return 1, s.err
}

type countingDispatcher struct {
	runs atomic.Int32
}

func (d *countingDispatcher) DispatchBatch(context.Context) (int, error) {
	d.runs.Add(1)
	return 0, errors.New("smtp down")
}

func TestReservationExpirationJob(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewReservationExpirationJob(sweeper, 10*time.Millisecond)

	job.Start(context.Background())
	assert.Eventually(t, func() bool { return sweeper.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	job.Stop()

	stopped := sweeper.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, sweeper.runs.Load(), "no runs after Stop")
}

func TestReservationExpirationJob_RunsImmediately(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	job := NewReservationExpirationJob(sweeper, time.Hour)

	job.Start(context.Background())
	assert.Eventually(t, func() bool { return sweeper.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	job.Stop()
}

func TestMailDispatchJob_KeepsRunningAfterErrors(t *testing.T) {
	dispatcher := &countingDispatcher{}
	job := NewMailDispatchJob(dispatcher, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx)
	assert.Eventually(t, func() bool { return dispatcher.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	job.Stop()
}

func TestEventRelayJob_KeepsRunningAfterErrors(t *testing.T) {
	relayer := &countingSweeper{err: errors.New("nats down")}
	job := NewEventRelayJob(relayer, 10*time.Millisecond)

	job.Start(context.Background())
	assert.Eventually(t, func() bool { return relayer.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	job.Stop()
}

func TestDefaultIntervals(t *testing.T) {
	assert.Equal(t, DefaultSweepInterval, NewReservationExpirationJob(&countingSweeper{}, 0).p.interval)
	assert.Equal(t, DefaultMailDispatchInterval, NewMailDispatchJob(&countingDispatcher{}, -1).p.interval)
	assert.Equal(t, DefaultRelayInterval, NewEventRelayJob(&countingSweeper{}, 0).p.interval)
}
