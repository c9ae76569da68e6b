package models

import (
	"time"
)

// Telemetry is one engine/movement sample recorded during an operation.
// (operation, tractor, timestamp) identifies the same sample.
type Telemetry struct {
	ID            string         `bson:"_id" json:"id"`
	OperationID   string         `bson:"operation_id" json:"operationId"`
	TractorID     string         `bson:"tractor_id" json:"tractorId"`
	Timestamp     time.Time      `bson:"timestamp" json:"timestamp"`
	EngineOn      bool           `bson:"engine_on" json:"engineOn"`
	Latitude      *float64       `bson:"latitude,omitempty" json:"latitude"`
	Longitude     *float64       `bson:"longitude,omitempty" json:"longitude"`
	IsMoving      bool           `bson:"is_moving" json:"isMoving"`
	PtoOn         bool           `bson:"pto_on" json:"ptoOn"`
	Speed         float64        `bson:"speed" json:"speed"`
	ImplementData map[string]any `bson:"implement_data,omitempty" json:"implementData"`
}

// TelemetryCreate is the payload accepted when recording telemetry.
type TelemetryCreate struct {
	OperationID   string         `json:"operationId"`
	TractorID     string         `json:"tractorId"`
	Timestamp     *time.Time     `json:"timestamp"`
	EngineOn      bool           `json:"engineOn"`
	Latitude      *float64       `json:"latitude"`
	Longitude     *float64       `json:"longitude"`
	IsMoving      bool           `json:"isMoving"`
	PtoOn         bool           `json:"ptoOn"`
	Speed         float64        `json:"speed"`
	ImplementData map[string]any `json:"implementData"`
}
