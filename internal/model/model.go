package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Run{},
	&Vehicle{},
	&Transition{},
}

// Run is one simulation run. ID is a UUID assigned by the driver.
type Run struct {
	ID         string       `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt  time.Time    `json:"createdAt"`
	Name       string       `json:"name" gorm:"size:127"`
	Tag        string       `json:"tag" gorm:"size:127"`
	StartTime  time.Time    `json:"startTime" gorm:"index:idx_run_start_time"` // simulated
	TickStepMs int64        `json:"tickStepMs"`
	EndedAt    sql.NullTime `json:"endedAt"`
}

func (*Run) TableName() string {
	return "runs"
}

// Vehicle is the registration of a simulated vehicle in a run.
type Vehicle struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID         string    `json:"runId" gorm:"size:36;index:idx_vehicle_run_id"`
	ObjectID      string    `json:"objectId" gorm:"size:64;index:idx_vehicle_object_id"`
	RegisteredAt  time.Time `json:"registeredAt"`
	StartPosition Point     `json:"startPosition"`
	Speed         float64   `json:"speed"` // km/h
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// Transition is one entry of a vehicle's transition history.
// StopReason, Position and TraveledDistance are lifted out of Kwargs for querying.
type Transition struct {
	ID               uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID            string            `json:"runId" gorm:"size:36;index:idx_transition_run_id"`
	ObjectID         string            `json:"objectId" gorm:"size:64;index:idx_transition_object_id"`
	Time             time.Time         `json:"time" gorm:"index:idx_transition_time"`
	Trigger          string            `json:"trigger" gorm:"column:trigger_name;size:32"`
	Source           string            `json:"source" gorm:"size:32"`
	Destination      string            `json:"destination" gorm:"size:32"`
	StopReason       string            `json:"stopReason" gorm:"size:32"`
	Position         Point             `json:"position"`
	TraveledDistance sql.NullFloat64   `json:"traveledDistance"`
	Kwargs           datatypes.JSONMap `json:"kwargs"`
}

func (*Transition) TableName() string {
	return "transitions"
}
