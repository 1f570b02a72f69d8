// internal/storage/storage.go
package storage

import "github.com/fleetsim/vehiclesim/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// RecordTransition matches history.Recorder, so a backend can be installed
// directly as a vehicle recorder once a run has started.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Vehicle registration (sets RunID on the passed pointer)
	AddVehicle(v *core.Vehicle) error

	// Transition recording
	RecordTransition(e *core.TransitionEvent) error
}

// Exporter is an optional interface for backends that write the run to a file.
type Exporter interface {
	ExportedFilePath() string
}
