package vehicle

import (
	"errors"
	"fmt"

	"github.com/fleetsim/vehiclesim/pkg/core"
)

var (
	ErrNoEngine               = errors.New("no engine installed")
	ErrEngineAlreadyInstalled = errors.New("engine already installed")
	ErrUndefinedState         = errors.New("undefined state")
	ErrInvalidStopReason      = errors.New("invalid stop reason")
)

// UndefinedStateError is returned by Step when the vehicle is idling but its
// engine is moving. The vehicle is left untouched.
type UndefinedStateError struct {
	VehicleID string
	Position  core.Position
}

func (e *UndefinedStateError) Error() string {
	return fmt.Sprintf("vehicle %s: %v: idling while engine is moving at %s", e.VehicleID, ErrUndefinedState, e.Position)
}

func (e *UndefinedStateError) Unwrap() error {
	return ErrUndefinedState
}
