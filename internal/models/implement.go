package models

import "time"

// OperationType is the kind of field work an implement performs.
type OperationType string

const (
	OperationTillage    OperationType = "tillage"
	OperationSowing     OperationType = "sowing"
	OperationSpraying   OperationType = "spraying"
	OperationWeeding    OperationType = "weeding"
	OperationHarvesting OperationType = "harvesting"
	OperationThreshing  OperationType = "threshing"
	OperationGrading    OperationType = "grading"
)

// IsValidOperationType checks if an operation type is one of the known tags
func IsValidOperationType(t OperationType) bool {
	switch t {
	case OperationTillage, OperationSowing, OperationSpraying, OperationWeeding,
		OperationHarvesting, OperationThreshing, OperationGrading:
		return true
	default:
		return false
	}
}

// Implement is an attachment pulled by a tractor.
type Implement struct {
	ID             string         `bson:"_id" json:"id"`
	OwnerID        string         `bson:"owner_id" json:"ownerId"`
	OperationType  OperationType  `bson:"operation_type" json:"operationType"`
	Name           string         `bson:"name" json:"name"`
	BrandName      string         `bson:"brand_name" json:"brandName"`
	WorkingWidth   float64        `bson:"working_width" json:"workingWidth"`
	Specifications map[string]any `bson:"specifications,omitempty" json:"specifications"`
	IsActive       bool           `bson:"is_active" json:"isActive"`
	CreatedAt      time.Time      `bson:"created_at" json:"createdAt"`
}

// ImplementCreate is the payload accepted when registering an implement.
type ImplementCreate struct {
	OperationType  OperationType  `json:"operationType"`
	Name           string         `json:"name"`
	BrandName      string         `json:"brandName"`
	WorkingWidth   float64        `json:"workingWidth"`
	Specifications map[string]any `json:"specifications"`
	IsActive       *bool          `json:"isActive"`
}

// ImplementPatch carries the optional fields of an implement update.
type ImplementPatch struct {
	OperationType  *OperationType  `json:"operationType"`
	Name           *string         `json:"name"`
	BrandName      *string         `json:"brandName"`
	WorkingWidth   *float64        `json:"workingWidth"`
	Specifications *map[string]any `json:"specifications"`
	IsActive       *bool           `json:"isActive"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ImplementPatch) IsEmpty() bool {
	return p.OperationType == nil && p.Name == nil && p.BrandName == nil &&
		p.WorkingWidth == nil && p.Specifications == nil && p.IsActive == nil
}

// Apply merges the present patch fields into i.
func (p ImplementPatch) Apply(i *Implement) {
	if p.OperationType != nil {
		i.OperationType = *p.OperationType
	}
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.BrandName != nil {
		i.BrandName = *p.BrandName
	}
	if p.WorkingWidth != nil {
		i.WorkingWidth = *p.WorkingWidth
	}
	if p.Specifications != nil {
		i.Specifications = *p.Specifications
	}
	if p.IsActive != nil {
		i.IsActive = *p.IsActive
	}
}
