package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/activechart"
	"github.com/comalice/activechart/config"
	"github.com/comalice/activechart/internal/core"
	"github.com/comalice/activechart/internal/extensibility"
	"github.com/comalice/activechart/internal/production"
	"github.com/comalice/activechart/kernel"
)

type runOptions struct {
	duration time.Duration
	tick     time.Duration
	button   time.Duration
	quiet    bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <board.yaml>",
		Short: "Run the active objects of a board",
		Long: `The run command builds the kernel and processor a board describes,
registers its active objects and runs the dispatcher until interrupted or
until --duration elapses. Every object declaring TICK receives it from a
timer interrupt; every object declaring BUTTON receives simulated presses
as mutable messages.

Environment variables prefixed with ACTIVECHART_ override the board file.

Example:
  aodemo run boards/demo.yaml --duration 5s
  ACTIVECHART_LOG_LEVEL=debug aodemo run boards/demo.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := config.Load(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}
			return runBoard(ctx, board, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.tick, "tick", 500*time.Millisecond, "Timer interrupt period")
	cmd.Flags().DurationVar(&opts.button, "button", 1300*time.Millisecond, "Simulated button press period")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print transitions")
	return cmd
}

// object is one configured active object and the engine behind it.
type object struct {
	ao      *activechart.ActiveObject
	machine *core.Machine
	tick    activechart.Msg // nil when the topology has no TICK
	button  activechart.Signal
}

func runBoard(ctx context.Context, board *config.Board, opts runOptions, out, errOut io.Writer) error {
	level, err := config.SlogLevel(board.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	k := kernel.New(board.Kernel, kernel.WithLogger(logger))
	proc, err := activechart.NewProcessor(k,
		activechart.WithCapacity(board.RegistryCapacity),
		activechart.WithLogger(logger),
		activechart.WithMetrics(reg),
	)
	if err != nil {
		return err
	}

	var persister *production.FilePersister
	if board.SnapshotDir != "" {
		if persister, err = production.NewYAMLPersister(board.SnapshotDir); err != nil {
			return err
		}
	}

	transitions := make(chan production.PublishedEvent, 64)
	publisher := production.NewChannelPublisher(transitions)
	defer publisher.Close()

	objects := make([]*object, 0, len(board.Objects))
	for _, oc := range board.Objects {
		obj, err := buildObject(oc, publisher, logger)
		if err != nil {
			return err
		}
		if err := proc.Register(obj.ao); err != nil {
			return err
		}
		objects = append(objects, obj)
	}

	if err := proc.StartAll(ctx); err != nil {
		return err
	}
	if persister != nil {
		restore(ctx, persister, objects, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := k.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	var dropped atomic.Uint64
	timer := kernel.NewTimer(opts.tick, func() {
		for _, obj := range objects {
			if obj.tick == nil {
				continue
			}
			if err := obj.ao.PostFIFO(obj.tick); err != nil {
				dropped.Add(1)
			}
		}
	})
	defer timer.Stop()

	g.Go(func() error {
		return pressButton(gctx, proc, objects, opts.button, logger)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case pe := <-transitions:
				if !opts.quiet {
					printTransition(out, pe)
				}
			}
		}
	})

	if board.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              board.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", board.MetricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()
	timer.Stop()

	if persister != nil {
		for _, obj := range objects {
			if err := persister.Save(context.Background(), obj.machine.Snapshot()); err != nil {
				logger.Error("save snapshot", "object", obj.ao.Name(), "err", err)
			}
		}
	}

	for _, obj := range objects {
		fmt.Fprintf(out, "%s: %s\n", obj.ao.Name(), obj.machine.Current())
	}
	stats := k.PoolStats()
	logger.Info("stopped",
		"ticks", timer.Fired(),
		"dropped_ticks", dropped.Load(),
		"pool_peak", stats.Peak,
		"pool_failures", stats.Failures,
		"dropped_transitions", publisher.Dropped(),
	)
	return runErr
}

func buildObject(oc config.ObjectConfig, publisher core.EventPublisher, logger *slog.Logger) (*object, error) {
	topo, err := config.LoadTopology(oc.Topology)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", oc.Name, err)
	}
	m, err := core.NewMachine(topo, oc.Name,
		core.WithActionRunner(extensibility.NewLoggingActionRunner(behaviour(), logger)),
		core.WithGuardEvaluator(extensibility.NewGuardEvaluator()),
		core.WithPublisher(publisher),
		core.WithVisualizer(production.NewDOTVisualizer()),
		core.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	ao, err := activechart.NewWithMachine(m, oc.Name, activechart.WithQueueCapacity(oc.QueueCapacity))
	if err != nil {
		return nil, err
	}

	obj := &object{ao: ao, machine: m}
	if sig, ok := topo.Signals[tickEvent]; ok && oc.QueueCapacity > 0 {
		obj.tick = activechart.NewMsg(sig, nil)
	}
	if sig, ok := topo.Signals[buttonEvent]; ok {
		obj.button = sig
	}
	return obj, nil
}

// restore resumes each machine from its last snapshot. Objects without
// one, or whose topology changed, keep their initial state.
func restore(ctx context.Context, persister core.Persister, objects []*object, logger *slog.Logger) {
	for _, obj := range objects {
		snap, err := persister.Load(ctx, obj.ao.Name())
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err == nil {
			err = obj.machine.Restore(snap)
		}
		if err != nil {
			logger.Warn("snapshot not restored", "object", obj.ao.Name(), "err", err)
			continue
		}
		logger.Info("restored", "object", obj.ao.Name(), "path", snap.Current)
	}
}

// pressButton sends a BUTTON press to every object declaring it, once per
// period, as a mutable message whose payload byte is the press number.
func pressButton(ctx context.Context, proc *activechart.Processor, objects []*object, period time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var presses uint8
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		presses++
		for _, obj := range objects {
			if obj.button == activechart.SigNone {
				continue
			}
			m, err := proc.AllocateMsg(obj.button, []byte{presses})
			if err != nil {
				logger.Warn("button press lost", "object", obj.ao.Name(), "err", err)
				continue
			}
			if err := obj.ao.PostMutable(m); err != nil {
				logger.Warn("button press lost", "object", obj.ao.Name(), "err", err)
				_ = m.Release()
			}
		}
	}
}

func printTransition(w io.Writer, pe production.PublishedEvent) {
	md := pe.Metadata
	switch {
	case md.Source == "":
		fmt.Fprintf(w, "%s: start -> %s\n", md.Name, md.Target)
	case md.Internal:
		fmt.Fprintf(w, "%s: %s handled %s\n", md.Name, md.Source, pe.Event.Type)
	default:
		fmt.Fprintf(w, "%s: %s -> %s on %s\n", md.Name, md.Source, md.Target, pe.Event.Type)
	}
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
