package models

import "time"

// AlertTypeBreakdown is the alert type counted as a breakdown in reports.
const AlertTypeBreakdown = "breakdown"

// Alert is a raised condition on a tractor, optionally tied to an operation.
// (tractor, operation, alert type, timestamp) identifies the same alert; a
// missing operation takes part in the key as "no operation".
type Alert struct {
	ID          string    `bson:"_id" json:"id"`
	TractorID   string    `bson:"tractor_id" json:"tractorId"`
	OperationID *string   `bson:"operation_id" json:"operationId"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	AlertType   string    `bson:"alert_type" json:"alertType"`
	Message     string    `bson:"message" json:"message"`
	IsResolved  bool      `bson:"is_resolved" json:"isResolved"`
}

// AlertCreate is the payload accepted when raising an alert.
type AlertCreate struct {
	TractorID   string     `json:"tractorId"`
	OperationID *string    `json:"operationId"`
	Timestamp   *time.Time `json:"timestamp"`
	AlertType   string     `json:"alertType"`
	Message     string     `json:"message"`
}

// AlertDetail is an alert joined with its tractor.
type AlertDetail struct {
	Alert
	Tractor *TractorRef `json:"tractor"`
}
