// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fleetsim/vehiclesim/pkg/core"
)

// RunExport is the root JSON structure
type RunExport struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Tag       string          `json:"tag,omitempty"`
	StartTime time.Time       `json:"startTime"`
	TickStep  string          `json:"tickStep"`
	EndedAt   time.Time       `json:"endedAt"`
	Vehicles  []VehicleExport `json:"vehicles"`
}

// VehicleExport is a vehicle with its transition history
type VehicleExport struct {
	ID            string                 `json:"id"`
	RegisteredAt  time.Time              `json:"registeredAt"`
	StartPosition core.Position          `json:"startPosition"`
	Speed         float64                `json:"speed"`
	Transitions   []core.TransitionEvent `json:"transitions"`
}

// exportJSON writes the run data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	name := b.run.Name
	if name == "" {
		name = "run"
	}
	name = strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(name)
	timestamp := b.run.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		ID:        b.run.ID,
		Name:      b.run.Name,
		Tag:       b.run.Tag,
		StartTime: b.run.StartTime,
		TickStep:  b.run.TickStep.String(),
		EndedAt:   b.endedAt,
		Vehicles:  make([]VehicleExport, 0, len(b.order)),
	}

	for _, id := range b.order {
		rec := b.vehicles[id]
		export.Vehicles = append(export.Vehicles, VehicleExport{
			ID:            rec.Vehicle.ID,
			RegisteredAt:  rec.Vehicle.RegisteredAt,
			StartPosition: rec.Vehicle.StartPosition,
			Speed:         rec.Vehicle.Speed,
			Transitions:   rec.Transitions,
		})
	}
	return export
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return gzWriter.Close()
}
