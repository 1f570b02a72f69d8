package fleet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fleetsim/vehiclesim/internal/dispatcher"
	"github.com/fleetsim/vehiclesim/internal/geo"
	"github.com/fleetsim/vehiclesim/internal/vehicle"
)

// Command names handled by the fleet.
const (
	CmdMoveTo     = "move_to"
	CmdStop       = "stop"
	CmdSetOffline = "set_offline"
)

// Command arguments. Any other argument of move_to and stop is passed to
// the vehicle context as metadata, unless it collides with an event key in
// vehicle.ReservedKeys.
const (
	ArgVehicle = "vehicle"
	ArgTo      = "to"
	ArgTripID  = "trip_id"
	ArgReason  = "reason"
)

var (
	errMissingArg  = errors.New("missing argument")
	errReservedArg = errors.New("reserved argument")
)

// RegisterHandlers registers the move_to, stop and set_offline commands on d.
// Each handler returns the vehicle's state after the command.
func (f *Fleet) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdMoveTo, f.handleMoveTo, dispatcher.Logged())
	d.Register(CmdStop, f.handleStop, dispatcher.Logged())
	d.Register(CmdSetOffline, f.handleSetOffline, dispatcher.Logged())
}

func (f *Fleet) target(c dispatcher.Command) (*vehicle.Vehicle, error) {
	id := c.Arg(ArgVehicle)
	if id == "" {
		return nil, fmt.Errorf("%s: %w %q", c.Name, errMissingArg, ArgVehicle)
	}
	return f.mustGet(id)
}

func (f *Fleet) handleMoveTo(c dispatcher.Command) (any, error) {
	v, err := f.target(c)
	if err != nil {
		return nil, err
	}
	raw := c.Arg(ArgTo)
	if raw == "" {
		return nil, fmt.Errorf("%s: %w %q", c.Name, errMissingArg, ArgTo)
	}
	dest, err := geo.PositionFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}

	ctx, err := contextFromArgs(c.Args, ArgVehicle, ArgTo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	if err := v.MoveTo(dest, ctx); err != nil {
		return nil, err
	}
	return v.State(), nil
}

func (f *Fleet) handleStop(c dispatcher.Command) (any, error) {
	v, err := f.target(c)
	if err != nil {
		return nil, err
	}
	reason := vehicle.StopCommand
	if r := c.Arg(ArgReason); r != "" {
		if reason, err = vehicle.ParseStopReason(r); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
	}

	ctx, err := contextFromArgs(c.Args, ArgVehicle, ArgReason)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	if err := v.Stop(reason, ctx); err != nil {
		return nil, err
	}
	return v.State(), nil
}

func (f *Fleet) handleSetOffline(c dispatcher.Command) (any, error) {
	v, err := f.target(c)
	if err != nil {
		return nil, err
	}
	if err := v.SetOffline(); err != nil {
		return nil, err
	}
	return v.State(), nil
}

// contextFromArgs builds a vehicle context from the arguments not consumed
// by the command. No extra arguments yield an empty context. Arguments named
// like an event key the vehicle sets itself are rejected.
func contextFromArgs(args map[string]string, consumed ...string) (vehicle.Context, error) {
	ctx := vehicle.Context{TripID: args[ArgTripID]}
	for k, val := range args {
		if k == ArgTripID || slices.Contains(consumed, k) {
			continue
		}
		if vehicle.IsReservedKey(k) {
			return vehicle.Context{}, fmt.Errorf("%w %q", errReservedArg, k)
		}
		if ctx.Metadata == nil {
			ctx.Metadata = make(map[string]any)
		}
		ctx.Metadata[k] = val
	}
	return ctx, nil
}
