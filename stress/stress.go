// Package stress drives a reader/writer lock with randomized reentrant,
// upgrading and downgrading workers and checks that mutual exclusion holds.
package stress

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

// ErrExclusionViolated is returned when a reader and a writer, or two
// writers, were observed inside the critical section at the same time.
var ErrExclusionViolated = errors.New("stress: mutual exclusion violated")

// ErrReadersStarved is returned when reader workers ran but none of them
// ever acquired the lock.
var ErrReadersStarved = errors.New("stress: readers never acquired the lock")

// Locker is the lock under test.
type Locker interface {
	LockRead(ctx context.Context, c rwlock.Caller) error
	UnlockRead(c rwlock.Caller) error
	LockWrite(ctx context.Context, c rwlock.Caller) error
	UnlockWrite(c rwlock.Caller) error
}

type snapshotter interface {
	Snapshot() rwlock.Snapshot
}

// Report counts what the workers did.
type Report struct {
	Reads           int64 `json:"reads" yaml:"reads"`
	Writes          int64 `json:"writes" yaml:"writes"`
	Reentries       int64 `json:"reentries" yaml:"reentries"`
	Upgrades        int64 `json:"upgrades" yaml:"upgrades"`
	UpgradeTimeouts int64 `json:"upgrade_timeouts" yaml:"upgrade_timeouts"`
	Downgrades      int64 `json:"downgrades" yaml:"downgrades"`
	Checks          int64 `json:"checks" yaml:"checks"`
}

// Option configures Run.
type Option func(*runner)

// WithClock sets the clock measuring Duration, CheckInterval and Pause.
func WithClock(clock clockwork.Clock) Option {
	return func(r *runner) { r.clock = clock }
}

// WithLogger sets the logger of the run. Nothing is logged by default.
func WithLogger(log *zap.Logger) Option {
	return func(r *runner) { r.log = log }
}

// A reader adds 1 to activity, a writer adds writerWeight.
const writerWeight = 10000

type runner struct {
	lock  Locker
	cfg   Config
	clock clockwork.Clock
	log   *zap.Logger

	activity atomic.Int64

	reads, writes, reentries  atomic.Int64
	upgrades, upgradeTimeouts atomic.Int64
	downgrades, checks        atomic.Int64
}

// Run starts cfg.Readers reader and cfg.Writers writer workers on lock and
// waits until cfg.Duration elapses on the clock, ctx is done or a worker
// fails. Cancellation of ctx is not an error, but a run in which no reader
// ever got the lock fails with ErrReadersStarved.
func Run(ctx context.Context, lock Locker, cfg Config, opts ...Option) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, fmt.Errorf("stress: invalid config: %w", err)
	}

	r := &runner{
		lock:  lock,
		cfg:   cfg,
		clock: clockwork.NewRealClock(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Duration > 0 {
		deadline := r.clock.After(cfg.Duration)
		g.Go(func() error {
			select {
			case <-deadline:
				cancel()
			case <-gctx.Done():
			}
			return nil
		})
	}
	if cfg.CheckInterval > 0 {
		if s, ok := lock.(snapshotter); ok {
			g.Go(func() error { return r.checker(gctx, s) })
		}
	}

	r.log.Info("stress run started",
		zap.Int("readers", cfg.Readers),
		zap.Int("writers", cfg.Writers),
		zap.Duration("duration", cfg.Duration),
	)

	for i := 0; i < cfg.Readers; i++ {
		rnd := rand.New(rand.NewSource(cfg.Seed + int64(i)))
		g.Go(func() error { return r.loop(gctx, rnd, r.readStep) })
	}
	for i := 0; i < cfg.Writers; i++ {
		rnd := rand.New(rand.NewSource(cfg.Seed + int64(cfg.Readers+i)))
		g.Go(func() error { return r.loop(gctx, rnd, r.writer) })
	}

	err := g.Wait()
	if err == nil {
		if s, ok := lock.(snapshotter); ok {
			err = s.Snapshot().Check()
		}
	}

	rep := r.report()
	if err == nil && cfg.Readers > 0 && rep.Reads == 0 {
		err = ErrReadersStarved
	}
	if err != nil {
		r.log.Error("stress run failed", zap.Error(err), zap.Any("report", rep))
		return rep, err
	}
	r.log.Info("stress run finished", zap.Any("report", rep))
	return rep, nil
}

func (r *runner) report() Report {
	return Report{
		Reads:           r.reads.Load(),
		Writes:          r.writes.Load(),
		Reentries:       r.reentries.Load(),
		Upgrades:        r.upgrades.Load(),
		UpgradeTimeouts: r.upgradeTimeouts.Load(),
		Downgrades:      r.downgrades.Load(),
		Checks:          r.checks.Load(),
	}
}

func (r *runner) checker(ctx context.Context, s snapshotter) error {
	ticker := r.clock.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := s.Snapshot().Check(); err != nil {
				return fmt.Errorf("stress: lock invariant broken: %w", err)
			}
			r.checks.Add(1)
		}
	}
}

type step func(ctx context.Context, c rwlock.Caller, rnd *rand.Rand) error

func (r *runner) loop(ctx context.Context, rnd *rand.Rand, f step) error {
	c := rwlock.NewCaller()
	for ctx.Err() == nil {
		if err := f(ctx, c, rnd); err != nil {
			if ctx.Err() != nil && errors.Is(err, rwlock.ErrCancelled) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (r *runner) violated(c rwlock.Caller, format string, args ...any) error {
	err := fmt.Errorf("%w: %s: %s", ErrExclusionViolated, c, fmt.Sprintf(format, args...))
	r.log.Error("mutual exclusion violated", zap.Error(err))
	return err
}

// pause waits cfg.Pause on the clock or until ctx is done.
func (r *runner) pause(ctx context.Context) {
	if r.cfg.Pause <= 0 {
		return
	}
	select {
	case <-r.clock.After(r.cfg.Pause):
	case <-ctx.Done():
	}
}

func (r *runner) hold() {
	if r.cfg.Hold > 0 {
		time.Sleep(r.cfg.Hold)
	} else {
		runtime.Gosched()
	}
}

func (r *runner) depth(rnd *rand.Rand) int {
	return 1 + rnd.Intn(r.cfg.MaxReentry)
}

// release undoes reads read and writes write acquisitions of c.
func (r *runner) release(c rwlock.Caller, reads, writes int) error {
	var errs []error
	for i := 0; i < writes; i++ {
		errs = append(errs, r.lock.UnlockWrite(c))
	}
	for i := 0; i < reads; i++ {
		errs = append(errs, r.lock.UnlockRead(c))
	}
	return errors.Join(errs...)
}

func (r *runner) readStep(ctx context.Context, c rwlock.Caller, rnd *rand.Rand) error {
	depth := r.depth(rnd)
	for i := 0; i < depth; i++ {
		if err := r.lock.LockRead(ctx, c); err != nil {
			return errors.Join(err, r.release(c, i, 0))
		}
	}

	if n := r.activity.Add(1); n < 1 || n >= writerWeight {
		r.activity.Add(-1)
		return errors.Join(r.violated(c, "reader entered with activity %d", n), r.release(c, depth, 0))
	}
	r.reads.Add(1)
	r.reentries.Add(int64(depth - 1))
	r.hold()

	var err error
	if rnd.Float64() < r.cfg.UpgradeRatio {
		err = r.upgrade(ctx, c)
	}

	r.activity.Add(-1)
	return errors.Join(err, r.release(c, depth, 0))
}

// upgrade is called by a reader counted once in activity.
func (r *runner) upgrade(ctx context.Context, c rwlock.Caller) error {
	uctx, cancel := context.WithTimeout(ctx, r.cfg.UpgradeTimeout)
	defer cancel()

	if err := r.lock.LockWrite(uctx, c); err != nil {
		if errors.Is(err, rwlock.ErrCancelled) && ctx.Err() == nil {
			r.upgradeTimeouts.Add(1)
			return nil
		}
		return err
	}

	// The only reader turned writer: nobody else may be inside.
	if n := r.activity.Add(writerWeight - 1); n != writerWeight {
		r.activity.Add(1 - writerWeight)
		return errors.Join(r.violated(c, "upgraded with activity %d", n), r.release(c, 0, 1))
	}
	r.upgrades.Add(1)
	r.hold()
	r.activity.Add(1 - writerWeight)

	return r.lock.UnlockWrite(c)
}

func (r *runner) writer(ctx context.Context, c rwlock.Caller, rnd *rand.Rand) error {
	if err := r.writeStep(ctx, c, rnd); err != nil {
		return err
	}
	r.pause(ctx)
	return nil
}

func (r *runner) writeStep(ctx context.Context, c rwlock.Caller, rnd *rand.Rand) error {
	depth := r.depth(rnd)
	for i := 0; i < depth; i++ {
		if err := r.lock.LockWrite(ctx, c); err != nil {
			return errors.Join(err, r.release(c, 0, i))
		}
	}

	if n := r.activity.Add(writerWeight); n != writerWeight {
		r.activity.Add(-writerWeight)
		return errors.Join(r.violated(c, "writer entered with activity %d", n), r.release(c, 0, depth))
	}
	r.writes.Add(1)
	r.reentries.Add(int64(depth - 1))
	r.hold()

	if rnd.Float64() >= r.cfg.DowngradeRatio {
		r.activity.Add(-writerWeight)
		return r.release(c, 0, depth)
	}

	if err := r.lock.LockRead(ctx, c); err != nil {
		r.activity.Add(-writerWeight)
		return errors.Join(err, r.release(c, 0, depth))
	}
	r.activity.Add(1 - writerWeight)
	if err := r.release(c, 0, depth); err != nil {
		r.activity.Add(-1)
		return errors.Join(err, r.release(c, 1, 0))
	}
	r.downgrades.Add(1)

	// Other readers may join now, writers may not.
	r.hold()
	n := r.activity.Add(-1)
	if n < 0 || n >= writerWeight {
		return errors.Join(r.violated(c, "downgraded reader left with activity %d", n), r.release(c, 1, 0))
	}
	return r.release(c, 1, 0)
}
