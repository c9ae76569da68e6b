package fleet

import (
	"context"
	"errors"
	"strings"

	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// required takes name, value pairs and rejects the first blank value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return invalid("%s is required", pairs[i])
		}
	}
	return nil
}

func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func activeOrDefault(b *bool) bool {
	return b == nil || *b
}

// CreateTractor registers a tractor owned by ownerID.
func (s *Service) CreateTractor(ctx context.Context, ownerID string, in models.TractorCreate) (*models.Tractor, error) {
	if err := required(
		"manufacturerName", in.ManufacturerName,
		"model", in.Model,
		"registrationNumber", in.RegistrationNumber,
	); err != nil {
		return nil, err
	}

	tractor := models.Tractor{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		ManufacturerName:   in.ManufacturerName,
		Model:              in.Model,
		RegistrationNumber: in.RegistrationNumber,
		Specifications:     emptyIfNil(in.Specifications),
		IsActive:           activeOrDefault(in.IsActive),
		CreatedAt:          s.clock(),
	}
	if err := s.store.InsertTractor(ctx, tractor); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflict("registration number already exists")
		}
		return nil, storeError(err, "Tractor")
	}
	s.logger.WithFields(log.Fields{"tractor_id": tractor.ID, "owner_id": ownerID}).Info("Tractor registered")
	return &tractor, nil
}

// GetTractor fetches one tractor.
func (s *Service) GetTractor(ctx context.Context, id string) (*models.Tractor, error) {
	t, err := s.store.FindTractorByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Tractor")
	}
	return t, nil
}

// ListTractors lists tractors, newest first.
func (s *Service) ListTractors(ctx context.Context) ([]models.Tractor, error) {
	return s.store.FindTractors(ctx)
}

// UpdateTractor writes the present fields of patch.
func (s *Service) UpdateTractor(ctx context.Context, id string, patch models.TractorPatch) (*models.Tractor, error) {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"manufacturerName", patch.ManufacturerName},
		{"model", patch.Model},
		{"registrationNumber", patch.RegistrationNumber},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return nil, invalid("%s must not be empty", f.name)
		}
	}

	t, err := s.store.UpdateTractor(ctx, id, patch)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflict("registration number already exists")
		}
		return nil, storeError(err, "Tractor")
	}
	return t, nil
}

// DeleteTractor removes a tractor nothing references.
func (s *Service) DeleteTractor(ctx context.Context, id string) error {
	if err := s.store.DeleteTractor(ctx, id); err != nil {
		return storeError(err, "Tractor")
	}
	s.logger.WithField("tractor_id", id).Info("Tractor deleted")
	return nil
}

// CreateImplement registers an implement owned by ownerID. Names are unique per owner.
func (s *Service) CreateImplement(ctx context.Context, ownerID string, in models.ImplementCreate) (*models.Implement, error) {
	if err := required("name", in.Name, "brandName", in.BrandName); err != nil {
		return nil, err
	}
	if !models.IsValidOperationType(in.OperationType) {
		return nil, invalid("invalid operation type: %q", in.OperationType)
	}
	if in.WorkingWidth <= 0 {
		return nil, invalid("workingWidth must be positive")
	}

	_, err := s.store.FindImplementByOwnerAndName(ctx, ownerID, in.Name)
	if err == nil {
		return nil, conflict("implement with this name already exists")
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	implement := models.Implement{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		OperationType:  in.OperationType,
		Name:           in.Name,
		BrandName:      in.BrandName,
		WorkingWidth:   in.WorkingWidth,
		Specifications: emptyIfNil(in.Specifications),
		IsActive:       activeOrDefault(in.IsActive),
		CreatedAt:      s.clock(),
	}
	if err := s.store.InsertImplement(ctx, implement); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflict("implement with this name already exists")
		}
		return nil, storeError(err, "Implement")
	}
	s.logger.WithFields(log.Fields{"implement_id": implement.ID, "owner_id": ownerID}).Info("Implement registered")
	return &implement, nil
}

// GetImplement fetches one implement.
func (s *Service) GetImplement(ctx context.Context, id string) (*models.Implement, error) {
	i, err := s.store.FindImplementByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Implement")
	}
	return i, nil
}

// ListImplements lists implements, newest first.
func (s *Service) ListImplements(ctx context.Context) ([]models.Implement, error) {
	return s.store.FindImplements(ctx)
}

// UpdateImplement writes the present fields of patch.
func (s *Service) UpdateImplement(ctx context.Context, id string, patch models.ImplementPatch) (*models.Implement, error) {
	if patch.OperationType != nil && !models.IsValidOperationType(*patch.OperationType) {
		return nil, invalid("invalid operation type: %q", *patch.OperationType)
	}
	if patch.WorkingWidth != nil && *patch.WorkingWidth <= 0 {
		return nil, invalid("workingWidth must be positive")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, invalid("name must not be empty")
	}

	i, err := s.store.UpdateImplement(ctx, id, patch)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflict("implement with this name already exists")
		}
		return nil, storeError(err, "Implement")
	}
	return i, nil
}

// DeleteImplement removes an implement nothing references.
func (s *Service) DeleteImplement(ctx context.Context, id string) error {
	if err := s.store.DeleteImplement(ctx, id); err != nil {
		return storeError(err, "Implement")
	}
	s.logger.WithField("implement_id", id).Info("Implement deleted")
	return nil
}
