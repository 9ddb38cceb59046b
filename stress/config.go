package stress

import (
	"errors"
	"fmt"
	"time"
)

// Config describes a stress run.
type Config struct {
	Readers int `yaml:"readers"`
	Writers int `yaml:"writers"`
	// Zero means run until the context is done.
	Duration time.Duration `yaml:"duration"`
	// Upper bound of reentrant acquisitions taken per step.
	MaxReentry int `yaml:"max_reentry"`
	// Probability that a reader tries to upgrade to a write lock.
	UpgradeRatio float64 `yaml:"upgrade_ratio"`
	// Probability that a writer downgrades to a read lock.
	DowngradeRatio float64 `yaml:"downgrade_ratio"`
	// Upgrades of two readers block each other; each attempt gives up after
	// this timeout.
	UpgradeTimeout time.Duration `yaml:"upgrade_timeout"`
	// Time spent inside the critical section. Zero yields the processor.
	Hold time.Duration `yaml:"hold"`
	// Time a writer spends outside the lock between steps. Without it
	// pending writers keep new readers out for the whole run.
	Pause time.Duration `yaml:"pause"`
	// Period of lock invariant checks. Zero disables them.
	CheckInterval time.Duration `yaml:"check_interval"`
	Seed          int64         `yaml:"seed"`
}

// DefaultConfig returns a short mixed run with every feature enabled.
func DefaultConfig() Config {
	return Config{
		Readers:        8,
		Writers:        2,
		Duration:       5 * time.Second,
		MaxReentry:     3,
		UpgradeRatio:   0.1,
		DowngradeRatio: 0.2,
		UpgradeTimeout: 10 * time.Millisecond,
		Pause:          time.Millisecond,
		CheckInterval:  100 * time.Millisecond,
		Seed:           1,
	}
}

// Validate reports every problem of c at once.
func (c Config) Validate() error {
	var errs []error
	if c.Readers < 0 || c.Writers < 0 {
		errs = append(errs, fmt.Errorf("negative worker count: readers=%d writers=%d", c.Readers, c.Writers))
	}
	if c.Readers+c.Writers == 0 {
		errs = append(errs, errors.New("no workers"))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("negative duration %s", c.Duration))
	}
	if c.MaxReentry < 1 {
		errs = append(errs, fmt.Errorf("max_reentry must be positive, got %d", c.MaxReentry))
	}
	if c.UpgradeRatio < 0 || c.UpgradeRatio > 1 {
		errs = append(errs, fmt.Errorf("upgrade_ratio %v is out of [0, 1]", c.UpgradeRatio))
	}
	if c.DowngradeRatio < 0 || c.DowngradeRatio > 1 {
		errs = append(errs, fmt.Errorf("downgrade_ratio %v is out of [0, 1]", c.DowngradeRatio))
	}
	if c.UpgradeRatio > 0 && c.UpgradeTimeout <= 0 {
		errs = append(errs, errors.New("upgrade_timeout must be positive when upgrades are enabled"))
	}
	if c.Hold < 0 || c.Pause < 0 || c.CheckInterval < 0 {
		errs = append(errs, fmt.Errorf("negative hold=%s, pause=%s or check_interval=%s", c.Hold, c.Pause, c.CheckInterval))
	}
	return errors.Join(errs...)
}
