// Command fdtest drives a Flurdisplay hallway display with test patterns.
//
// Usage:
//
//	fdtest [flags]
//
// Flags:
//
//	-config string         Configuration file path (factory defaults if empty)
//	-port string           Host serial port, "auto" picks the first USB port
//	-log-level string      Log level: debug, info, warn, error (default "info")
//	-write-default string  Write the factory configuration to a file and exit
//	-headless              Start the test immediately, without a console
//
// Examples:
//
//	# Run against the first USB adapter with the factory patterns
//	fdtest -port auto
//
//	# Write a configuration to edit, then run with it
//	fdtest -write-default flurdisplay.yaml
//	fdtest -config flurdisplay.yaml -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ashajkofci/fdtest"
)

type options struct {
	ConfigFile   string
	Port         string
	LogLevel     string
	WriteDefault string
	Headless     bool
}

var opts options

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path (factory defaults if empty)")
	flag.StringVar(&opts.Port, "port", "", "Host serial port, \"auto\" picks the first USB port")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.WriteDefault, "write-default", "", "Write the factory configuration to a file and exit")
	flag.BoolVar(&opts.Headless, "headless", false, "Start the test immediately, without a console")
}

func main() {
	flag.Parse()
	setupLogging(os.Stderr, opts.LogLevel)

	if opts.WriteDefault != "" {
		if err := fdtest.WriteConfig(opts.WriteDefault, fdtest.DefaultConfig()); err != nil {
			log.Fatal().Err(err).Msg("Cannot write configuration")
		}
		log.Info().Str("path", opts.WriteDefault).Msg("Factory configuration written")
		return
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := applyPort(cfg, opts.Port); err != nil {
		log.Fatal().Err(err).Msg("No serial port")
	}

	rig, err := fdtest.NewRig(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Test cannot start until the configuration is fixed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- rig.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if opts.Headless {
		runHeadless(ctx, rig, sigCh)
	} else {
		console, err := NewConsole(rig)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot start console")
		}
		setupLogging(console.Stderr(), opts.LogLevel)
		go func() {
			select {
			case <-sigCh:
				console.Close()
			case <-ctx.Done():
			}
		}()
		console.Run(ctx)
	}

	stopAndWait(rig)
	cancel()
	if err := <-done; err != nil {
		log.Error().Err(err).Msg("Test rig stopped with error")
	}
	log.Info().Msg("Goodbye!")
}

func setupLogging(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		With().Timestamp().Logger()
}

func loadConfig(path string) (*fdtest.Config, error) {
	if path == "" {
		log.Info().Msg("No configuration file given, using factory defaults")
		return fdtest.DefaultConfig(), nil
	}
	return fdtest.LoadConfig(path)
}

// applyPort overrides the host port from the command line.
func applyPort(cfg *fdtest.Config, port string) error {
	switch port {
	case "":
		return nil
	case "auto":
		details, err := fdtest.FindUSBPort("", "")
		if err != nil {
			return fmt.Errorf("no USB serial port found: %w", err)
		}
		log.Info().Str("port", details.Name).Str("vid", details.VID).Str("pid", details.PID).Msg("Found USB serial port")
		cfg.Host.Name = details.Name
	default:
		cfg.Host.Name = port
	}
	return nil
}

func runHeadless(ctx context.Context, rig *fdtest.Rig, sigCh <-chan os.Signal) {
	rig.Subscribe(fdtest.SignalDelivered, func(n fdtest.Notification) {
		if p, err := fdtest.DecodePreview(n.Data); err == nil {
			log.Info().Str("display", p.String()).Msg("Display updated")
		}
	})
	if err := rig.Start(); err != nil {
		log.Error().Err(err).Msg("Cannot start test")
		return
	}
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down...")
	case <-ctx.Done():
	}
}

// stopAndWait blanks the display before exit, giving the blank frame a
// moment to leave the port.
func stopAndWait(rig *fdtest.Rig) {
	if rig.Status().State != fdtest.StateRunning {
		return
	}
	stopped := make(chan struct{})
	var once sync.Once
	rig.Subscribe(fdtest.SignalStopped, func(fdtest.Notification) {
		once.Do(func() { close(stopped) })
	})
	if err := rig.Stop(); err != nil {
		log.Warn().Err(err).Msg("Cannot blank display")
		return
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		log.Warn().Msg("Blank frame not confirmed")
	}
}
