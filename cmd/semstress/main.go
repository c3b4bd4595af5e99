// Command semstress hammers a BinarySemaphore or CountingSemaphore from many
// goroutines and checks that the occupancy of the guarded section never
// exceeds the number of permits.
//
// Usage:
//
//	semstress --kind counting --permits 4 --goroutines 64 --duration 10s
//
// It exits with status 1 if a violation is observed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/atomsem"
)

type config struct {
	kind       string
	waiter     string
	goroutines int
	permits    uint32
	duration   time.Duration
	timeout    time.Duration
	spin       time.Duration
	verbose    bool
}

func parseFlags(args []string) (config, error) {
	var c config
	fs := flag.NewFlagSet("semstress", flag.ContinueOnError)
	fs.StringVar(&c.kind, "kind", "binary", "semaphore kind: binary or counting")
	fs.StringVar(&c.waiter, "waiter", "default", "parking strategy: default, kernel, table or spin")
	fs.IntVarP(&c.goroutines, "goroutines", "g", 16, "number of worker goroutines")
	fs.Uint32VarP(&c.permits, "permits", "p", 1, "initial count of a counting semaphore")
	fs.DurationVarP(&c.duration, "duration", "d", 5*time.Second, "how long to run")
	fs.DurationVar(&c.timeout, "timeout", 0, "use TryAcquireFor with this bound when positive")
	fs.DurationVar(&c.spin, "spin-threshold", 0, "backoff before parking (0 selects the default)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log per-worker results")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.goroutines <= 0 {
		return c, fmt.Errorf("--goroutines must be positive, got %d", c.goroutines)
	}
	if c.spin < 0 {
		return c, fmt.Errorf("--spin-threshold must not be negative, got %v", c.spin)
	}
	switch c.kind {
	case "binary":
		c.permits = 1
	case "counting":
		if c.permits == 0 || c.permits > atomsem.CountingSemaphoreMax {
			return c, fmt.Errorf("--permits must be in [1, %d], got %d", atomsem.CountingSemaphoreMax, c.permits)
		}
	default:
		return c, fmt.Errorf("unknown --kind %q", c.kind)
	}
	return c, nil
}

func waiterByName(name string) (atomsem.Waiter, error) {
	switch name {
	case "default":
		return atomsem.DefaultWaiter(), nil
	case "kernel":
		return atomsem.KernelAssistedWaiter{}, nil
	case "table":
		return atomsem.TableWaiter{}, nil
	case "spin":
		return atomsem.SpinOnlyWaiter{}, nil
	default:
		return nil, fmt.Errorf("unknown --waiter %q", name)
	}
}

// sem is the common surface of the two semaphore kinds.
type sem interface {
	Acquire()
	TryAcquireFor(d time.Duration) bool
	Release()
}

type countingSem struct {
	*atomsem.CountingSemaphore
}

func (s countingSem) Release() {
	s.CountingSemaphore.Release(1, atomsem.NotifyOne)
}

type stats struct {
	acquired   atomic.Int64
	timeouts   atomic.Int64
	violations atomic.Int64
	maxInside  atomic.Int32
}

func run(ctx context.Context, c config, log *slog.Logger) (*stats, error) {
	w, err := waiterByName(c.waiter)
	if err != nil {
		return nil, err
	}
	opts := []func(*atomsem.Config){atomsem.WithWaiter(w)}
	if c.spin > 0 {
		opts = append(opts, atomsem.WithSpinThreshold(c.spin))
	}
	var s sem
	if c.kind == "counting" {
		s = countingSem{atomsem.NewCountingSemaphore(c.permits, opts...)}
	} else {
		s = atomsem.NewBinarySemaphore(true, opts...)
	}

	var (
		st     stats
		inside atomic.Int32
	)
	ctx, cancel := context.WithTimeout(ctx, c.duration)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	for id := range c.goroutines {
		g.Go(func() error {
			var n int64
			for ctx.Err() == nil {
				if c.timeout > 0 {
					if !s.TryAcquireFor(c.timeout) {
						st.timeouts.Add(1)
						continue
					}
				} else {
					s.Acquire()
				}
				k := inside.Add(1)
				if k > int32(c.permits) {
					st.violations.Add(1)
				}
				for {
					m := st.maxInside.Load()
					if k <= m || st.maxInside.CompareAndSwap(m, k) {
						break
					}
				}
				inside.Add(-1)
				s.Release()
				n++
			}
			st.acquired.Add(n)
			if c.verbose {
				log.Debug("worker done", "worker", id, "acquired", n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

func main() {
	c, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	log.Info("starting",
		"kind", c.kind,
		"waiter", c.waiter,
		"goroutines", c.goroutines,
		"permits", c.permits,
		"duration", c.duration,
		"timeout", c.timeout)

	start := time.Now()
	st, err := run(context.Background(), c, log)
	if err != nil {
		log.Error("run failed", "err", err)
		os.Exit(2)
	}
	elapsed := time.Since(start)

	acquired := st.acquired.Load()
	log.Info("finished",
		"elapsed", elapsed,
		"acquired", acquired,
		"ops_per_sec", float64(acquired)/elapsed.Seconds(),
		"timeouts", st.timeouts.Load(),
		"max_inside", st.maxInside.Load(),
		"violations", st.violations.Load())
	if st.violations.Load() != 0 {
		os.Exit(1)
	}
}
