// Command vehiclesim runs tick-driven vehicle fleet simulations and exports
// the recorded transition histories.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/internal/logging"
	intOtel "github.com/fleetsim/vehiclesim/internal/otel"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"

	AppName string = "vehiclesim"
)

// global services, set up by initLogging
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// InfraLogger is handed to the database and influx managers
	InfraLogger zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   ".",
		Usage:   "directory containing " + config.FileName,
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "simulate a fleet of vehicles and record their state transitions",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildDate),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the configured simulation",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runSimulation(ctx, c.String("config"))
				},
			},
			{
				Name:      "export",
				Usage:     "print a recorded run from the SQL store as JSON",
				ArgsUsage: "<runID>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to file instead of stdout"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("export takes exactly one run id")
					}
					return exportCommand(c.String("config"), c.Args().First(), c.String("output"))
				},
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initLogging wires slog (console or file, graylog, OTel bridge) and the
// zerolog infrastructure logger. The returned func flushes and closes them.
func initLogging(clk logging.SimClock) (func(), error) {
	logsDir := config.GetString("logsDir")
	level := config.GetString("logLevel")

	var logFile *os.File
	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("create logs dir: %w", err)
		}
		path := logging.LogFilePath(logsDir, AppName, SessionStartTime)
		f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logFile = f
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.SetContextProvider(logging.SimTimeProvider(clk))

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		if err := SlogManager.EnableGraylog(graylogCfg.Address); err != nil {
			fmt.Fprintln(os.Stderr, "Graylog disabled:", err)
		}
	}

	otelCfg := config.GetOTelConfig()
	var otelWriter io.Writer
	if logFile != nil {
		otelWriter = logFile
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: Version,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      otelWriter,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}
	OTelProvider = provider

	if logFile != nil {
		SlogManager.Setup(logFile, level, OTelProvider.LoggerProvider())
		InfraLogger = logging.NewZerolog(logFile, level)
	} else {
		SlogManager.Setup(nil, level, OTelProvider.LoggerProvider())
		InfraLogger = logging.NewZerolog(os.Stdout, level)
	}
	Logger = SlogManager.Logger()

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := SlogManager.Close(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "Closing logs failed:", err)
		}
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "OTel shutdown failed:", err)
		}
		if logFile != nil {
			_ = logFile.Close()
		}
	}
	return cleanup, nil
}
