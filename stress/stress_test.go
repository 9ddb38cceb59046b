package stress

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type grantCounter struct {
	reads, writes atomic.Int64
}

func (g *grantCounter) Waiting(rwlock.Caller, rwlock.Mode)         {}
func (g *grantCounter) Cancelled(rwlock.Caller, rwlock.Mode, bool) {}
func (g *grantCounter) Released(rwlock.Caller, rwlock.Mode)        {}
func (g *grantCounter) Violation(error)                            {}

func (g *grantCounter) Granted(_ rwlock.Caller, m rwlock.Mode, _ bool) {
	if m == rwlock.ModeRead {
		g.reads.Add(1)
	} else {
		g.writes.Add(1)
	}
}

type result struct {
	rep Report
	err error
}

// runFake runs cfg on a fake clock and stops it after at least minReads read
// and minWrites write acquisitions were granted.
func runFake(t *testing.T, cfg Config, minReads, minWrites int64) (Report, *rwlock.RWLock) {
	t.Helper()

	grants := &grantCounter{}
	l := rwlock.New(rwlock.WithObserver(grants))
	clock := clockwork.NewFakeClock()

	done := make(chan result, 1)
	go func() {
		rep, err := Run(context.Background(), l, cfg, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
		done <- result{rep: rep, err: err}
	}()

	require.Eventually(t, func() bool {
		return grants.reads.Load() >= minReads && grants.writes.Load() >= minWrites
	}, 10*time.Second, time.Millisecond)

	// The deadline timer is set up before any worker starts.
	deadline := time.After(10 * time.Second)
	for {
		clock.Advance(cfg.Duration)
		select {
		case res := <-done:
			require.NoError(t, res.err)
			require.Equal(t, rwlock.Free, l.Snapshot().State())
			return res.rep, l
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("stress run did not stop")
			return Report{}, nil
		}
	}
}

func TestRun_Mixed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckInterval = 0

	rep, _ := runFake(t, cfg, 1000, 1)
	require.Positive(t, rep.Reads)
	require.Positive(t, rep.Writes)
	require.Positive(t, rep.Reentries)
}

func TestRun_UpgradeAlone(t *testing.T) {
	cfg := Config{
		Readers:        1,
		Duration:       time.Minute,
		MaxReentry:     2,
		UpgradeRatio:   1,
		UpgradeTimeout: time.Second,
	}

	rep, _ := runFake(t, cfg, 100, 1)
	require.Positive(t, rep.Upgrades)
	require.Zero(t, rep.UpgradeTimeouts)
	// Every read is upgraded, except maybe the one interrupted by the deadline.
	require.InDelta(t, rep.Reads, rep.Upgrades, 1)
}

func TestRun_DowngradeAlone(t *testing.T) {
	cfg := Config{
		Writers:        1,
		Duration:       time.Minute,
		MaxReentry:     3,
		DowngradeRatio: 1,
	}

	rep, _ := runFake(t, cfg, 0, 100)
	require.Positive(t, rep.Downgrades)
	require.InDelta(t, rep.Writes, rep.Downgrades, 1)
}

func TestRun_RealClock(t *testing.T) {
	cfg := Config{
		Readers:        4,
		Writers:        2,
		Duration:       200 * time.Millisecond,
		MaxReentry:     3,
		UpgradeRatio:   0.3,
		DowngradeRatio: 0.3,
		UpgradeTimeout: 2 * time.Millisecond,
		Pause:          time.Millisecond,
		CheckInterval:  10 * time.Millisecond,
		Seed:           42,
	}

	l := rwlock.New()
	rep, err := Run(context.Background(), l, cfg)
	require.NoError(t, err)
	require.Positive(t, rep.Reads)
	require.Positive(t, rep.Writes)
	require.Positive(t, rep.Upgrades+rep.UpgradeTimeouts)
	require.Positive(t, rep.Checks)
	require.Equal(t, rwlock.Free, l.Snapshot().State())
}

func TestRun_ContextCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Duration = 0

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	l := rwlock.New()
	_, err := Run(ctx, l, cfg)
	require.NoError(t, err)
	require.Equal(t, rwlock.Free, l.Snapshot().State())
}

// noLock lets everybody in.
type noLock struct{}

func (noLock) LockRead(context.Context, rwlock.Caller) error  { return nil }
func (noLock) UnlockRead(rwlock.Caller) error                 { return nil }
func (noLock) LockWrite(context.Context, rwlock.Caller) error { return nil }
func (noLock) UnlockWrite(rwlock.Caller) error                { return nil }

func TestRun_DetectsViolation(t *testing.T) {
	cfg := Config{
		Readers:    4,
		Writers:    4,
		MaxReentry: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := Run(ctx, noLock{}, cfg)
	require.ErrorIs(t, err, ErrExclusionViolated)
}

// onlyWriters never lets a reader in.
type onlyWriters struct {
	*rwlock.RWLock
}

func (onlyWriters) LockRead(ctx context.Context, _ rwlock.Caller) error {
	<-ctx.Done()
	return fmt.Errorf("%w: %w", rwlock.ErrCancelled, ctx.Err())
}

func TestRun_ReadersStarved(t *testing.T) {
	cfg := Config{
		Readers:    2,
		Writers:    1,
		Duration:   50 * time.Millisecond,
		MaxReentry: 1,
	}

	_, err := Run(context.Background(), onlyWriters{rwlock.New()}, cfg)
	require.ErrorIs(t, err, ErrReadersStarved)
}

func TestRun_ReadersProgressWithBusyWriters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Writers = 4
	cfg.Duration = 200 * time.Millisecond

	rep, err := Run(context.Background(), rwlock.New(), cfg)
	require.NoError(t, err)
	require.Positive(t, rep.Reads)
	require.Positive(t, rep.Writes)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for _, tc := range []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no workers", mutate: func(c *Config) { c.Readers, c.Writers = 0, 0 }},
		{name: "negative readers", mutate: func(c *Config) { c.Readers = -1 }},
		{name: "negative duration", mutate: func(c *Config) { c.Duration = -time.Second }},
		{name: "zero reentry", mutate: func(c *Config) { c.MaxReentry = 0 }},
		{name: "upgrade ratio", mutate: func(c *Config) { c.UpgradeRatio = 1.5 }},
		{name: "downgrade ratio", mutate: func(c *Config) { c.DowngradeRatio = -0.1 }},
		{name: "upgrade timeout", mutate: func(c *Config) { c.UpgradeTimeout = 0 }},
		{name: "negative hold", mutate: func(c *Config) { c.Hold = -time.Millisecond }},
		{name: "negative pause", mutate: func(c *Config) { c.Pause = -time.Millisecond }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	_, err := Run(context.Background(), rwlock.New(), Config{})
	require.Error(t, err)
}
