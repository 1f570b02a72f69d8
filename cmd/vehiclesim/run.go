package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/fleetsim/vehiclesim/internal/api"
	"github.com/fleetsim/vehiclesim/internal/clock"
	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/internal/dispatcher"
	"github.com/fleetsim/vehiclesim/internal/engine"
	"github.com/fleetsim/vehiclesim/internal/fleet"
	"github.com/fleetsim/vehiclesim/internal/geo"
	"github.com/fleetsim/vehiclesim/internal/history"
	"github.com/fleetsim/vehiclesim/internal/logging"
	"github.com/fleetsim/vehiclesim/internal/storage"
	"github.com/fleetsim/vehiclesim/internal/telemetry"
	"github.com/fleetsim/vehiclesim/internal/vehicle"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const meterName = "github.com/fleetsim/vehiclesim"

// simulation is one configured run: a fleet, its scheduled commands and the clock.
type simulation struct {
	clock    *clock.Clock
	fleet    *fleet.Fleet
	dispatch *dispatcher.Dispatcher
	commands map[uint64][]dispatcher.Command
	ticks    uint64
	logger   *slog.Logger
}

// registrar receives vehicle registrations; storage backends satisfy it.
type registrar interface {
	AddVehicle(v *core.Vehicle) error
}

func runSimulation(ctx context.Context, configDir string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}
	simCfg, err := config.GetSimulationConfig()
	if err != nil {
		return err
	}
	start, err := simCfg.Start()
	if err != nil {
		return err
	}
	clk := clock.New(start, simCfg.TickStep)

	cleanup, err := initLogging(clk)
	if err != nil {
		return err
	}
	defer cleanup()

	run := &core.Run{
		ID:        uuid.NewString(),
		Name:      simCfg.Name,
		Tag:       simCfg.Tag,
		StartTime: start,
		TickStep:  simCfg.TickStep,
	}
	Logger.Info("Starting run", "run", run.ID, "name", run.Name, "version", Version,
		"vehicles", len(simCfg.Vehicles), "ticks", simCfg.Ticks)

	backend, err := initStorage(run)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	recorders := []history.Recorder{backend}
	influxManager, err := initInflux(ctx, run.ID)
	if err != nil {
		Logger.Warn("InfluxDB unavailable", "error", err)
	} else if influxManager != nil {
		recorders = append(recorders, influxManager)
		defer func() {
			if err := influxManager.Close(); err != nil {
				Logger.Warn("Failed to close influx", "error", err)
			}
		}()
	}
	meter := OTelProvider.Meter(meterName)
	metrics, err := telemetry.New(meter)
	if err != nil {
		return err
	}
	recorders = append(recorders, metrics)

	d, err := dispatcher.NewWithMeter(logging.NewDispatcherLogger(InfraLogger), meter)
	if err != nil {
		return err
	}

	sim, err := newSimulation(simCfg, clk, d, history.NewTee(recorders...), backend, Logger)
	if err != nil {
		return err
	}

	runErr := sim.run(ctx)
	if err := endRun(backend); err != nil {
		runErr = errors.Join(runErr, err)
	} else if exp, ok := backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		uploadRun(ctx, config.GetAPIConfig(), exp.ExportedFilePath(), core.UploadMetadata{
			RunID:    run.ID,
			RunName:  run.Name,
			Tag:      run.Tag,
			Duration: clk.Now().Sub(start),
			Vehicles: sim.fleet.Len(),
		})
	}
	logMetrics(ctx)
	return runErr
}

// uploadRun sends the exported file to the web frontend when uploads are
// enabled. Failures are logged; the file stays on disk.
func uploadRun(ctx context.Context, cfg config.APIConfig, path string, meta core.UploadMetadata) {
	if !cfg.Upload {
		return
	}
	client := api.New(cfg.ServerURL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Warn("Web frontend unreachable, skipping upload", "url", cfg.ServerURL, "error", err)
		return
	}
	if err := client.Upload(ctx, path, meta); err != nil {
		Logger.Error("Failed to upload run", "path", path, "error", err)
		return
	}
	Logger.Info("Run uploaded", "path", path, "url", cfg.ServerURL)
}

// newSimulation creates the vehicles with their engines and indexes the
// scheduled commands by tick.
func newSimulation(cfg config.SimulationConfig, clk *clock.Clock, d *dispatcher.Dispatcher,
	recorder history.Recorder, reg registrar, logger *slog.Logger) (*simulation, error) {
	s := &simulation{
		clock:    clk,
		fleet:    fleet.New(clk, logger),
		dispatch: d,
		commands: make(map[uint64][]dispatcher.Command),
		ticks:    cfg.Ticks,
		logger:   logger,
	}
	s.fleet.RegisterHandlers(d)

	for _, vc := range cfg.Vehicles {
		if err := s.addVehicle(vc, recorder, reg); err != nil {
			return nil, fmt.Errorf("vehicle %q: %w", vc.ID, err)
		}
	}

	for _, cc := range cfg.Commands {
		if !d.HasHandler(cc.Name) {
			return nil, fmt.Errorf("command at tick %d: unknown command %q", cc.Tick, cc.Name)
		}
		args := make(map[string]string, len(cc.Args)+1)
		maps.Copy(args, cc.Args)
		if cc.Vehicle != "" {
			args[fleet.ArgVehicle] = cc.Vehicle
		}
		s.commands[cc.Tick] = append(s.commands[cc.Tick], dispatcher.Command{Name: cc.Name, Args: args})
	}
	return s, nil
}

func (s *simulation) addVehicle(vc config.VehicleConfig, recorder history.Recorder, reg registrar) error {
	pos, err := geo.PositionFromString(vc.Position)
	if err != nil {
		return err
	}
	v, err := vehicle.New(s.clock,
		vehicle.WithID(vc.ID),
		vehicle.WithLogger(s.logger),
		vehicle.WithRecorder(recorder),
	)
	if err != nil {
		return err
	}
	if err := reg.AddVehicle(&core.Vehicle{
		ID:            v.ID(),
		RegisteredAt:  s.clock.Now(),
		StartPosition: pos,
		Speed:         vc.Speed,
	}); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	e, err := engine.New(s.clock, pos, vc.Speed)
	if err != nil {
		return err
	}
	if err := v.InstallEngine(e); err != nil {
		return err
	}
	return s.fleet.Add(v)
}

// run replays the schedule. Tick 0 only dispatches; every later tick first
// advances the clock and steps the fleet. Command errors are logged, step
// errors end the run.
func (s *simulation) run(ctx context.Context) error {
	for tick := uint64(0); tick <= s.ticks; tick++ {
		select {
		case <-ctx.Done():
			s.logger.Warn("Run interrupted", "tick", tick)
			return ctx.Err()
		default:
		}

		if tick > 0 {
			if _, err := s.fleet.Tick(); err != nil {
				s.logger.Error("Step failed, ending run", "error", err)
				return err
			}
		}

		for _, c := range s.commands[tick] {
			c.Time = s.clock.Now()
			if _, err := s.dispatch.Dispatch(c); err != nil {
				s.logger.Warn("Command failed", "command", c.Name, "vehicle", c.Arg(fleet.ArgVehicle), "error", err)
			}
		}
	}
	s.logger.Info("Run complete", "ticks", s.clock.Ticks(), "simTime", s.clock.Now(), "moving", s.fleet.Moving())
	return nil
}

func endRun(backend storage.Backend) error {
	if err := backend.EndRun(); err != nil {
		Logger.Error("Failed to end run", "error", err)
		return err
	}
	if exp, ok := backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		Logger.Info("Run exported", "path", exp.ExportedFilePath())
	}
	return nil
}

// logMetrics logs the counter totals collected during the run.
func logMetrics(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rm, err := OTelProvider.CollectMetrics(ctx)
	if err != nil || len(rm.ScopeMetrics) == 0 {
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			Logger.Info("Metric", "name", m.Name, "total", total)
		}
	}
}
