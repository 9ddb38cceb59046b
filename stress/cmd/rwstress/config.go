package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"gitlab.com/slon/reentrant-rwlock/stress"
)

// serveDefaults are the defaults of the serve command, which stresses the
// lock until interrupted.
func serveDefaults() stress.Config {
	cfg := stress.DefaultConfig()
	cfg.Duration = 0
	return cfg
}

// loadConfig reads a stress config from a YAML file on top of base.
// An empty path or an empty file yields base.
func loadConfig(path string, base stress.Config) (stress.Config, error) {
	cfg := base
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// addStressFlags registers the stress flags with defaults taken from base.
func addStressFlags(fs *pflag.FlagSet, base stress.Config) *stress.Config {
	cfg := base
	fs.IntVar(&cfg.Readers, "readers", cfg.Readers, "number of reader workers")
	fs.IntVar(&cfg.Writers, "writers", cfg.Writers, "number of writer workers")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "run time, 0 runs until interrupted")
	fs.IntVar(&cfg.MaxReentry, "max-reentry", cfg.MaxReentry, "max reentrant acquisitions per step")
	fs.Float64Var(&cfg.UpgradeRatio, "upgrade-ratio", cfg.UpgradeRatio, "probability of a read to write upgrade")
	fs.Float64Var(&cfg.DowngradeRatio, "downgrade-ratio", cfg.DowngradeRatio, "probability of a write to read downgrade")
	fs.DurationVar(&cfg.UpgradeTimeout, "upgrade-timeout", cfg.UpgradeTimeout, "give up an upgrade attempt after")
	fs.DurationVar(&cfg.Hold, "hold", cfg.Hold, "time spent holding the lock")
	fs.DurationVar(&cfg.Pause, "pause", cfg.Pause, "writer think time between steps")
	fs.DurationVar(&cfg.CheckInterval, "check-interval", cfg.CheckInterval, "lock invariant check period, 0 disables")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	return &cfg
}

// resolveConfig loads the file at path on top of base and overrides it with
// the flags set on the command line.
func resolveConfig(fs *pflag.FlagSet, flags *stress.Config, path string, base stress.Config) (stress.Config, error) {
	cfg, err := loadConfig(path, base)
	if err != nil {
		return cfg, err
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "readers":
			cfg.Readers = flags.Readers
		case "writers":
			cfg.Writers = flags.Writers
		case "duration":
			cfg.Duration = flags.Duration
		case "max-reentry":
			cfg.MaxReentry = flags.MaxReentry
		case "upgrade-ratio":
			cfg.UpgradeRatio = flags.UpgradeRatio
		case "downgrade-ratio":
			cfg.DowngradeRatio = flags.DowngradeRatio
		case "upgrade-timeout":
			cfg.UpgradeTimeout = flags.UpgradeTimeout
		case "hold":
			cfg.Hold = flags.Hold
		case "pause":
			cfg.Pause = flags.Pause
		case "check-interval":
			cfg.CheckInterval = flags.CheckInterval
		case "seed":
			cfg.Seed = flags.Seed
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
