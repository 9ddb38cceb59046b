// Command rwstress exercises the reentrant reader/writer lock.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"gitlab.com/slon/reentrant-rwlock/counter"
	"gitlab.com/slon/reentrant-rwlock/lockdebug"
	"gitlab.com/slon/reentrant-rwlock/locklog"
	"gitlab.com/slon/reentrant-rwlock/lockmetrics"
	"gitlab.com/slon/reentrant-rwlock/rwlock"
	"gitlab.com/slon/reentrant-rwlock/stress"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	verbose bool
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rwstress",
		Short:         "Stress and inspect a reentrant reader/writer lock",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(a.verbose)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every lock event")

	root.AddCommand(a.runCmd(), a.demoCmd(), a.serveCmd())
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// interrupted returns a context cancelled on SIGINT or SIGTERM.
func interrupted(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
			log.Info("interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (a *app) newLock(name string, extra ...rwlock.Observer) *rwlock.RWLock {
	obs := append([]rwlock.Observer{locklog.New(a.log, name)}, extra...)
	return rwlock.New(rwlock.WithObserver(rwlock.Observers(obs...)))
}

func (a *app) runCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a stress test and print the report",
		Args:  cobra.NoArgs,
	}
	flags := addStressFlags(cmd.Flags(), stress.DefaultConfig())
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd.Flags(), flags, configPath, stress.DefaultConfig())
		if err != nil {
			return err
		}

		ctx, cancel := interrupted(a.log)
		defer cancel()

		rep, runErr := stress.Run(ctx, a.newLock("stress"), cfg, stress.WithLogger(a.log))

		out, err := yaml.Marshal(rep)
		if err != nil {
			return err
		}
		_, _ = cmd.OutOrStdout().Write(out)

		if runErr != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "stress run failed:", runErr)
		}
		return runErr
	}
	return cmd
}

func (a *app) demoCmd() *cobra.Command {
	var (
		duration time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Increment a shared counter in one goroutine and read it in another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interrupted(a.log)
			defer cancel()
			ctx, stop := context.WithTimeout(ctx, duration)
			defer stop()

			return runDemo(ctx, clockwork.NewRealClock(), counter.New(a.newLock("counter")), interval, a.log)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "demo length")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "period of writes and reads")
	return cmd
}

func runDemo(ctx context.Context, clock clockwork.Clock, shared *counter.Shared, interval time.Duration, log *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	writer, reader := rwlock.NewCaller(), rwlock.NewCaller()

	tick := func(f func() error) error {
		ticker := clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.Chan():
				if err := f(); err != nil {
					if ctx.Err() != nil && errors.Is(err, rwlock.ErrCancelled) {
						return nil
					}
					return err
				}
			}
		}
	}

	g.Go(func() error {
		return tick(func() error {
			v, err := shared.Add(ctx, writer, 1)
			if err == nil {
				log.Info("counter incremented", zap.Int64("value", v))
			}
			return err
		})
	})
	g.Go(func() error {
		return tick(func() error {
			v, err := shared.Get(ctx, reader)
			if err == nil {
				log.Info("counter read", zap.Int64("value", v))
			}
			return err
		})
	})
	return g.Wait()
}

func (a *app) serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stress a lock continuously and serve its state over HTTP",
		Args:  cobra.NoArgs,
	}
	flags := addStressFlags(cmd.Flags(), serveDefaults())
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config")
	cmd.Flags().StringVar(&listen, "listen", ":8080", "debug server address")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd.Flags(), flags, configPath, serveDefaults())
		if err != nil {
			return err
		}
		return a.serve(cfg, listen)
	}
	return cmd
}

func (a *app) serve(cfg stress.Config, listen string) error {
	reg := prometheus.NewRegistry()
	metrics := lockmetrics.New("stress")
	reg.MustRegister(
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	lock := a.newLock("stress", metrics)
	debug := lockdebug.NewServer(a.log, reg)
	debug.Register("stress", lock)

	srv := &http.Server{
		Addr:         listen,
		Handler:      debug.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := interrupted(a.log)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rep, err := stress.Run(ctx, lock, cfg, stress.WithLogger(a.log))
		a.log.Info("stress stopped", zap.Any("report", rep))
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		a.log.Info("starting server", zap.String("addr", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		a.log.Error("serve failed", zap.Error(err))
	} else {
		a.log.Info("server stopped")
	}
	return err
}
