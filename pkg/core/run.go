// pkg/core/run.go
package core

import "time"

// Run represents one recorded simulation run.
type Run struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	StartTime time.Time     `json:"startTime"` // simulated start
	TickStep  time.Duration `json:"tickStep"`
	Tag       string        `json:"tag"`
}

// UploadMetadata accompanies an exported run file sent to the web frontend.
type UploadMetadata struct {
	RunID    string
	RunName  string
	Tag      string
	Duration time.Duration // simulated
	Vehicles int
}
