package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestStartupJobRunsOnce(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(quietLogger(), Job{
		Name:         "warm",
		Interval:     time.Hour,
		RunAtStartup: true,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	assert.Equal(t, int32(1), runs.Load())
}

func TestJobRunsEveryInterval(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(quietLogger(), Job{
		Name:     "purge",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("keeps going after failures")
		},
	})
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestDisabledJobsAreIgnored(t *testing.T) {
	s := NewScheduler(quietLogger(),
		Job{Name: "no interval", Run: func(context.Context) error { return nil }},
		Job{Name: "no func", Interval: time.Second},
	)
	assert.Empty(t, s.jobs)

	s.Start()
	s.Stop()
}

func TestStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	s := NewScheduler(quietLogger(), Job{
		Name:         "slow",
		Interval:     time.Hour,
		RunAtStartup: true,
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})
	s.Start()
	<-started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	s.Stop()
}

type fakeFetcher struct {
	lists map[string][]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, city string) ([]string, error) {
	list, ok := f.lists[city]
	if !ok {
		return nil, errors.New("not found")
	}
	return list, nil
}

type fakeCache struct {
	mu     sync.Mutex
	stored map[string][]string
	err    error
}

func (c *fakeCache) GetDistricts(city string, maxAge time.Duration) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.stored[city]
	return list, ok, nil
}

func (c *fakeCache) PutDistricts(city string, districts []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.stored == nil {
		c.stored = make(map[string][]string)
	}
	c.stored[city] = districts
	return nil
}

func TestWarmDistricts(t *testing.T) {
	fetcher := &fakeFetcher{lists: map[string][]string{
		"Bogor": {"Cibinong", "Parung"},
		"Depok": nil,
	}}
	cache := &fakeCache{}

	run := WarmDistricts(fetcher, cache, []string{"Bogor", "Depok", "Surabaya"}, quietLogger())
	require.NoError(t, run(context.Background()))

	assert.Equal(t, []string{"Cibinong", "Parung"}, cache.stored["Bogor"])
	assert.Equal(t, []string{}, cache.stored["Depok"])
	assert.NotContains(t, cache.stored, "Surabaya")
}

func TestWarmDistrictsErrors(t *testing.T) {
	fetcher := &fakeFetcher{lists: map[string][]string{"Bogor": {"Cibinong"}}}

	t.Run("every city failed", func(t *testing.T) {
		run := WarmDistricts(fetcher, &fakeCache{}, []string{"Surabaya", "Medan"}, quietLogger())
		assert.Error(t, run(context.Background()))
	})

	t.Run("cache write failed", func(t *testing.T) {
		run := WarmDistricts(fetcher, &fakeCache{err: errors.New("disk full")}, []string{"Bogor"}, quietLogger())
		assert.ErrorContains(t, run(context.Background()), "disk full")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		run := WarmDistricts(fetcher, &fakeCache{}, []string{"Bogor"}, quietLogger())
		assert.ErrorIs(t, run(ctx), context.Canceled)
	})
}

type fakePurger struct {
	maxAge time.Duration
	purged int64
	err    error
}

func (p *fakePurger) PurgeDistricts(maxAge time.Duration) (int64, error) {
	p.maxAge = maxAge
	return p.purged, p.err
}

func TestPurgeDistricts(t *testing.T) {
	purger := &fakePurger{purged: 2}
	require.NoError(t, PurgeDistricts(purger, 24*time.Hour, quietLogger())(context.Background()))
	assert.Equal(t, 24*time.Hour, purger.maxAge)

	purger.err = errors.New("locked")
	assert.Error(t, PurgeDistricts(purger, time.Hour, quietLogger())(context.Background()))
}
