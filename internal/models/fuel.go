package models

import "time"

// FuelLog records fuel put into a tractor. (tractor, timestamp) identifies
// the same refuel.
type FuelLog struct {
	ID          string    `bson:"_id" json:"id"`
	TractorID   string    `bson:"tractor_id" json:"tractorId"`
	OperatorID  string    `bson:"operator_id" json:"operatorId"`
	OperationID *string   `bson:"operation_id,omitempty" json:"operationId"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	Quantity    float64   `bson:"quantity" json:"quantity"`
	Notes       string    `bson:"notes" json:"notes"`
}

// FuelLogCreate is the payload accepted when logging fuel.
type FuelLogCreate struct {
	TractorID   string     `json:"tractorId"`
	OperationID *string    `json:"operationId"`
	Timestamp   *time.Time `json:"timestamp"`
	Quantity    float64    `json:"quantity"`
	Notes       string     `json:"notes"`
}

// FuelLogDetail is a fuel log joined with its tractor and operator.
type FuelLogDetail struct {
	FuelLog
	Tractor  *TractorRef  `json:"tractor"`
	Operator *OperatorRef `json:"operator"`
}
