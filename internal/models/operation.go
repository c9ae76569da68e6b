package models

import "time"

// OperationStatus is the lifecycle state of an operation.
type OperationStatus string

const (
	StatusActive    OperationStatus = "active"
	StatusCompleted OperationStatus = "completed"
	StatusCancelled OperationStatus = "cancelled"
)

// Operation is a bounded work session of one tractor, one implement and one operator.
type Operation struct {
	ID            string          `bson:"_id" json:"id"`
	TractorID     string          `bson:"tractor_id" json:"tractorId"`
	ImplementID   string          `bson:"implement_id" json:"implementId"`
	OperatorID    string          `bson:"operator_id" json:"operatorId"`
	OperationType OperationType   `bson:"operation_type" json:"operationType"`
	Status        OperationStatus `bson:"status" json:"status"`
	StartTime     time.Time       `bson:"start_time" json:"startTime"`
	EndTime       *time.Time      `bson:"end_time,omitempty" json:"endTime"`
	Notes         string          `bson:"notes" json:"notes"`
	CreatedAt     time.Time       `bson:"created_at" json:"createdAt"`
}

// OperationStart is the payload accepted when starting an operation.
type OperationStart struct {
	TractorID     string        `json:"tractorId"`
	ImplementID   string        `json:"implementId"`
	OperationType OperationType `json:"operationType"`
	Notes         string        `json:"notes"`
}

// TractorRef is the tractor projection embedded in joined views.
type TractorRef struct {
	ID                 string `json:"id"`
	ManufacturerName   string `json:"manufacturerName"`
	Model              string `json:"model"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
}

// ImplementRef is the implement projection embedded in operation views.
type ImplementRef struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BrandName    string  `json:"brandName"`
	WorkingWidth float64 `json:"workingWidth"`
}

// OperatorRef is the user projection embedded in joined views.
type OperatorRef struct {
	FullName string `json:"fullName"`
}

// OperationDetail is an operation joined with its tractor, implement and operator.
type OperationDetail struct {
	Operation
	Tractor   *TractorRef   `json:"tractor"`
	Implement *ImplementRef `json:"implement"`
	Operator  *OperatorRef  `json:"operator"`
}
