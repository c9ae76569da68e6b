package models

import "time"

// Tractor is a registered tractor in the fleet.
type Tractor struct {
	ID                 string         `bson:"_id" json:"id"`
	OwnerID            string         `bson:"owner_id" json:"ownerId"`
	ManufacturerName   string         `bson:"manufacturer_name" json:"manufacturerName"`
	Model              string         `bson:"model" json:"model"`
	RegistrationNumber string         `bson:"registration_number" json:"registrationNumber"`
	Specifications     map[string]any `bson:"specifications,omitempty" json:"specifications"`
	IsActive           bool           `bson:"is_active" json:"isActive"`
	CreatedAt          time.Time      `bson:"created_at" json:"createdAt"`
}

// TractorCreate is the payload accepted when registering a tractor.
type TractorCreate struct {
	ManufacturerName   string         `json:"manufacturerName"`
	Model              string         `json:"model"`
	RegistrationNumber string         `json:"registrationNumber"`
	Specifications     map[string]any `json:"specifications"`
	IsActive           *bool          `json:"isActive"`
}

// TractorPatch carries the optional fields of a tractor update. Nil fields
// are left untouched.
type TractorPatch struct {
	ManufacturerName   *string         `json:"manufacturerName"`
	Model              *string         `json:"model"`
	RegistrationNumber *string         `json:"registrationNumber"`
	Specifications     *map[string]any `json:"specifications"`
	IsActive           *bool           `json:"isActive"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TractorPatch) IsEmpty() bool {
	return p.ManufacturerName == nil && p.Model == nil && p.RegistrationNumber == nil &&
		p.Specifications == nil && p.IsActive == nil
}

// Apply merges the present patch fields into t.
func (p TractorPatch) Apply(t *Tractor) {
	if p.ManufacturerName != nil {
		t.ManufacturerName = *p.ManufacturerName
	}
	if p.Model != nil {
		t.Model = *p.Model
	}
	if p.RegistrationNumber != nil {
		t.RegistrationNumber = *p.RegistrationNumber
	}
	if p.Specifications != nil {
		t.Specifications = *p.Specifications
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
}

// DisplayName is "manufacturer model", the label used in reports.
func (t Tractor) DisplayName() string {
	return t.ManufacturerName + " " + t.Model
}
