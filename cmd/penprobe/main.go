// Command penprobe inspects the tablets, pens and pads the system
// exposes. `penprobe dump` pretty-prints the live event stream;
// `penprobe serve` republishes it as JSON over a websocket for remote
// viewers.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/pen"
	_ "github.com/gogpu/pen/backend/ink"
	_ "github.com/gogpu/pen/backend/wayland"
	_ "github.com/gogpu/pen/backend/xinput2"
)

var (
	flagBackend  string
	flagDisplay  string
	flagWindow   uint64
	flagMouse    bool
	flagInterval time.Duration
	flagVerbose  bool
)

func main() {
	root := &cobra.Command{
		Use:           "penprobe",
		Short:         "Inspect pen and tablet input",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelWarn
			if flagVerbose {
				level = slog.LevelDebug
			}
			pen.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flagBackend, "backend", "", "force a backend (wayland, xinput2, ink)")
	pf.StringVar(&flagDisplay, "display", "", "display connection name override")
	pf.Uint64Var(&flagWindow, "window", 0, "platform window handle (HWND for ink)")
	pf.BoolVar(&flagMouse, "mouse", false, "synthesize a stylus from mouse input where supported")
	pf.DurationVar(&flagInterval, "interval", 15*time.Millisecond, "pump interval")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log backend internals")

	root.AddCommand(newDumpCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "penprobe:", err)
		os.Exit(1)
	}
}

func openManager() (*pen.Manager, error) {
	var opts []pen.Option
	if flagBackend != "" {
		opts = append(opts, pen.WithBackend(flagBackend))
	}
	if flagDisplay != "" {
		opts = append(opts, pen.WithDisplay(flagDisplay))
	}
	if flagWindow != 0 {
		opts = append(opts, pen.WithWindowHandle(uintptr(flagWindow)))
	}
	if flagMouse {
		opts = append(opts, pen.WithMouseEmulation())
	}
	return pen.NewManager(opts...)
}

// pumpLoop drives the manager until interrupted, handing each pump's
// events to visit.
func pumpLoop(m *pen.Manager, visit func([]pen.Event) error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	tick := time.NewTicker(flagInterval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-tick.C:
			if err := m.Pump(); err != nil {
				return err
			}
			if err := visit(m.Events()); err != nil {
				return err
			}
		}
	}
}
