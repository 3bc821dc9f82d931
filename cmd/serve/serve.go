// Package serve wires the full Piccolo component graph (spec §2) and runs
// it until stopped: data directory, message bus, scheduler, dispatcher,
// shutters, spectrometer workers, output writer, and acquisition
// coordinator, following the teacher's cmd/realtime pattern of a single
// cobra subcommand that builds dependencies and blocks.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/piccolo2go/piccolo/internal/bus"
	"github.com/piccolo2go/piccolo/internal/conf"
	"github.com/piccolo2go/piccolo/internal/coordinator"
	"github.com/piccolo2go/piccolo/internal/datadir"
	"github.com/piccolo2go/piccolo/internal/dispatcher"
	"github.com/piccolo2go/piccolo/internal/instrument"
	"github.com/piccolo2go/piccolo/internal/logging"
	"github.com/piccolo2go/piccolo/internal/notify"
	"github.com/piccolo2go/piccolo/internal/output"
	"github.com/piccolo2go/piccolo/internal/scheduler"
	"github.com/piccolo2go/piccolo/internal/shutter"
	"github.com/piccolo2go/piccolo/internal/spectrometer"
	"github.com/piccolo2go/piccolo/internal/spectrum"
)

// Command builds the "serve" subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Piccolo control core",
		Long:  "Start the dispatcher, scheduler, acquisition coordinator, and output writer and block until stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.JSONRPC.URL, "jsonrpc-url", viper.GetString("jsonrpc.url"), "Listen URL for the JSON-RPC transport adapter")
	cmd.Flags().StringVar(&settings.Log.Path, "logpath", viper.GetString("log.path"), "Path to write log files")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(settings *conf.Settings) error {
	logging.Init()
	if settings.Log.Path != "" {
		fileLogger, _, err := logging.NewFileLogger(settings.Log.Path, "serve", nil)
		if err != nil {
			return fmt.Errorf("initialize file logging: %w", err)
		}
		fileLogger.Info("file logging initialized", "path", settings.Log.Path)
	}
	logger := logging.ForService("serve")

	dd := datadir.New(settings.DataDir.Datadir, settings.DataDir.Device, settings.DataDir.Mntpnt, settings.DataDir.Mount)
	if _, err := dd.Datadir(); err != nil {
		return fmt.Errorf("data directory unusable: %w", err)
	}
	if err := dd.Mount(); err != nil {
		logger.Warn("data directory mount check failed, continuing with unmounted storage", "err", err)
	}

	b := bus.New()
	defer b.Shutdown()

	sched := scheduler.New()
	if err := sched.SetQuietPeriod(settings.Scheduler.QuietStart, settings.Scheduler.QuietEnd); err != nil {
		logger.Warn("invalid quiet period configuration, ignoring", "err", err)
	}

	tick, err := time.ParseDuration(settings.Scheduler.TickInterval)
	if err != nil || tick <= 0 {
		tick = 100 * time.Millisecond
	}
	disp := dispatcher.New(sched, tick)

	shutters := make(map[string]*shutter.Shutter)
	for name, ch := range settings.Channels {
		shutters[name] = shutter.New(instrument.SimulatedShutterDriver{}, ch.Reverse)
	}

	table := spectrum.NewTable(func(sh, sp string, cell spectrum.IntegrationCell) {
		b.AddMessage(fmt.Sprintf("IT|%s|%s", sp, sh))
	})

	workers := make(map[string]*spectrometer.Worker)
	for name, lim := range settings.Spectrometers {
		driverSeed := int64(len(name))
		driver := instrument.NewSimulatedSpectrometer(name, 2048, lim.MinIntegrationTimeMS, lim.MaxIntegrationTimeMS, driverSeed)
		workers[name] = spectrometer.New(name, driver, 16)
		table.SetLimits(name, spectrum.Limits{MinMS: lim.MinIntegrationTimeMS, MaxMS: lim.MaxIntegrationTimeMS})
	}

	writer := output.New(settings.DataDir.Datadir, output.Policy{
		Clobber: settings.Output.Clobber,
		Split:   settings.Output.Split,
		Pretty:  false,
	}, b, 16)

	coord := coordinator.New(coordinator.Dependencies{
		Shutters: shutters,
		Workers:  workers,
		Writer:   writer,
		DataDir:  dd,
		Bus:      b,
	})
	coord.SetIntegrationTable(table)

	forwarder := notify.New(settings.Output.NotifyURL)
	notifyCtx, cancelNotify := context.WithCancel(context.Background())
	defer cancelNotify()
	if forwarder.Enabled() {
		listenerID := b.NewListener()
		go forwarder.Run(notifyCtx, b, listenerID)
	}

	registerComponents(disp, coord, shutters, workers, table, b)

	logger.Info("piccolo control core started", "datadir", settings.DataDir.Datadir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	disp.Submit(dispatcher.Task{Command: "stop"})
	coord.Stop(context.Background())
	return nil
}

// registerComponents wires the dispatcher's component registry (spec §4.1)
// to the coordinator and the per-spectrometer integration-time commands.
func registerComponents(disp *dispatcher.Dispatcher, coord *coordinator.Coordinator, shutters map[string]*shutter.Shutter, workers map[string]*spectrometer.Worker, table *spectrum.Table, b *bus.Bus) {
	disp.Register("coordinator", dispatcher.Component{
		Handle: func(command string, kwargs map[string]any) (any, error) {
			return handleCoordinatorCommand(coord, command, kwargs)
		},
		Stop: func() error {
			coord.Stop(context.Background())
			return nil
		},
	})

	for name, sh := range shutters {
		sh := sh
		disp.Register(name, dispatcher.Component{
			Handle: func(command string, kwargs map[string]any) (any, error) {
				switch command {
				case "open":
					return nil, sh.Open()
				case "close":
					return nil, sh.Close()
				case "status":
					return sh.Status().String(), nil
				case "ping":
					return sh.Ping()
				default:
					return nil, fmt.Errorf("unknown shutter command %q", command)
				}
			},
		})
	}

	for name, w := range workers {
		name, w := name, w
		disp.Register(name, dispatcher.Component{
			Handle: func(command string, kwargs map[string]any) (any, error) {
				switch command {
				case "status":
					return fmt.Sprintf("busy=%v", w.Busy()), nil
				case "ping":
					return w.Ping()
				case "setlimits":
					limits := table.Limits(name)
					if raw, ok := kwargs["min"]; ok {
						if n, err := toInt(raw); err == nil {
							limits.MinMS = n
						}
					}
					if raw, ok := kwargs["max"]; ok {
						if n, err := toInt(raw); err == nil {
							limits.MaxMS = n
						}
					}
					table.SetLimits(name, limits)
					w.Submit(spectrometer.SetIntegrationLimits{MinMS: &limits.MinMS, MaxMS: &limits.MaxMS})
					b.AddMessage("ITmin|" + name)
					return "ok", nil
				default:
					return nil, fmt.Errorf("unknown spectrometer command %q", command)
				}
			},
			Stop: func() error { w.Stop(); return nil },
		})
	}
}

func handleCoordinatorCommand(coord *coordinator.Coordinator, command string, kwargs map[string]any) (any, error) {
	switch command {
	case "record":
		nCycles := 1
		if raw, ok := kwargs["nCycles"]; ok {
			if n, err := toInt(raw); err == nil {
				nCycles = n
			}
		}
		delay := 0.0
		if raw, ok := kwargs["delay"]; ok {
			if f, ok := raw.(float64); ok {
				delay = f
			}
		}
		outDir, _ := kwargs["outDir"].(string)
		reply := coord.Submit(coordinator.Record{OutDir: outDir, NCycles: nCycles, DelaySeconds: delay, TargetFraction: 0.8})
		if !reply.OK {
			return nil, fmt.Errorf("%v", reply.Value)
		}
		return reply.Value, nil
	case "abort":
		reply := coord.Submit(coordinator.Abort{})
		return replyToResult(reply)
	case "pause":
		reply := coord.Submit(coordinator.Pause{})
		return replyToResult(reply)
	case "dark":
		reply := coord.Submit(coordinator.Dark{})
		return replyToResult(reply)
	case "status":
		return coord.State().String(), nil
	case "ping":
		return coord.Ping()
	default:
		return nil, fmt.Errorf("unknown coordinator command %q", command)
	}
}

func replyToResult(r coordinator.Reply) (any, error) {
	if !r.OK {
		return nil, fmt.Errorf("%v", r.Value)
	}
	return r.Value, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
