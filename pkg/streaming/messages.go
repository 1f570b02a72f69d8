package streaming

import (
	"encoding/json"

	"github.com/fleetsim/vehiclesim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun   = "start_run"
	TypeEndRun     = "end_run"
	TypeAddVehicle = "add_vehicle"
	TypeTransition = "transition"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload carries the run being recorded.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
}

// TransitionPayload is one transition tagged with its run.
type TransitionPayload struct {
	RunID string `json:"runId"`
	*core.TransitionEvent
}
