package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fleetsim/vehiclesim/internal/config"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/fleetsim/vehiclesim/pkg/streaming"
)

// ErrNoRun is returned when recording before StartRun.
var ErrNoRun = errors.New("no run started")

// Backend streams run data over WebSocket to a collector.
// It implements storage.Backend but not storage.Exporter.
type Backend struct {
	conn *connection
	cfg  config.WebSocketConfig

	mu    sync.RWMutex
	runID string
}

// New creates a new WebSocket storage backend. A nil logger uses slog.Default.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun sends the run and waits for server ack.
func (b *Backend) StartRun(run *core.Run) error {
	if run == nil {
		return errors.New("websocket: nil run")
	}
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartRun = data
	b.conn.mu.Unlock()

	if err := b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout); err != nil {
		return err
	}

	b.mu.Lock()
	b.runID = run.ID
	b.mu.Unlock()
	return nil
}

// EndRun sends end_run and waits for server ack.
func (b *Backend) EndRun() error {
	runID := b.currentRun()
	if runID == "" {
		return ErrNoRun
	}
	data, err := marshalEnvelope(streaming.TypeEndRun, map[string]string{"runId": runID})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartRun = nil
	b.conn.mu.Unlock()
	b.mu.Lock()
	b.runID = ""
	b.mu.Unlock()

	return err
}

func (b *Backend) AddVehicle(v *core.Vehicle) error {
	runID := b.currentRun()
	if runID == "" {
		return ErrNoRun
	}
	v.RunID = runID
	return b.sendEnvelope(streaming.TypeAddVehicle, v)
}

func (b *Backend) RecordTransition(e *core.TransitionEvent) error {
	if e == nil {
		return errors.New("websocket: nil transition event")
	}
	runID := b.currentRun()
	if runID == "" {
		return ErrNoRun
	}
	return b.sendEnvelope(streaming.TypeTransition, streaming.TransitionPayload{RunID: runID, TransitionEvent: e})
}

func (b *Backend) currentRun() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runID
}
