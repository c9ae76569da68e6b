package db

import (
	"context"
	"errors"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("duplicate record")
	ErrReferenced         = errors.New("record is referenced by other records")
	ErrInvalidReference   = errors.New("referenced record does not exist")
	ErrActiveOperation    = errors.New("an active operation already exists for this tractor")
	ErrOperationNotActive = errors.New("operation is not active")
)

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// TractorCollection defines the interface for tractor database operations.
type TractorCollection interface {
	InsertTractor(ctx context.Context, tractor models.Tractor) error
	FindTractorByID(ctx context.Context, id string) (*models.Tractor, error)
	FindTractors(ctx context.Context) ([]models.Tractor, error)
	UpdateTractor(ctx context.Context, id string, patch models.TractorPatch) (*models.Tractor, error)
	DeleteTractor(ctx context.Context, id string) error
	CountTractors(ctx context.Context) (int, error)
}

// ImplementCollection defines the interface for implement database operations.
type ImplementCollection interface {
	InsertImplement(ctx context.Context, implement models.Implement) error
	FindImplementByID(ctx context.Context, id string) (*models.Implement, error)
	FindImplementByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Implement, error)
	FindImplements(ctx context.Context) ([]models.Implement, error)
	UpdateImplement(ctx context.Context, id string, patch models.ImplementPatch) (*models.Implement, error)
	DeleteImplement(ctx context.Context, id string) error
	CountImplements(ctx context.Context) (int, error)
}

// OperationCollection defines the interface for operation lifecycle storage.
// StartOperation and StopOperation write the operation row and its
// opening/closing telemetry in one transaction.
type OperationCollection interface {
	StartOperation(ctx context.Context, op models.Operation, opening models.Telemetry) error
	StopOperation(ctx context.Context, id string, end time.Time, closing models.Telemetry) (*models.Operation, error)
	FindOperationByID(ctx context.Context, id string) (*models.Operation, error)
	FindActiveOperation(ctx context.Context, tractorID string) (*models.Operation, error)
	FindOperationDetail(ctx context.Context, id string) (*models.OperationDetail, error)
	FindOperationDetails(ctx context.Context) ([]models.OperationDetail, error)
	FindRecentOperations(ctx context.Context, limit int) ([]models.RecentOperation, error)
	FindOperationSpans(ctx context.Context, start, end time.Time) ([]models.OperationSpan, error)
	CountActiveOperations(ctx context.Context) (int, error)
}

// TelemetryCollection defines the interface for telemetry data operations.
// InsertTelemetry returns the stored row and whether it was newly created;
// a natural-key collision returns the existing row.
type TelemetryCollection interface {
	InsertTelemetry(ctx context.Context, telemetry models.Telemetry) (*models.Telemetry, bool, error)
	FindTelemetryByOperation(ctx context.Context, operationID string) ([]models.Telemetry, error)
}

// FuelLogCollection defines the interface for fuel log operations.
type FuelLogCollection interface {
	InsertFuelLog(ctx context.Context, fuelLog models.FuelLog) (*models.FuelLog, bool, error)
	FindFuelLogDetails(ctx context.Context) ([]models.FuelLogDetail, error)
	FindFuelSpans(ctx context.Context, start, end time.Time) ([]models.FuelSpan, error)
	// SumFuel totals quantities in [start, end).
	SumFuel(ctx context.Context, start, end time.Time) (float64, error)
}

// AlertCollection defines the interface for alert operations.
type AlertCollection interface {
	InsertAlert(ctx context.Context, alert models.Alert) (*models.Alert, bool, error)
	ResolveAlert(ctx context.Context, id string) (*models.Alert, error)
	FindAlertDetails(ctx context.Context) ([]models.AlertDetail, error)
	FindAlertsBetween(ctx context.Context, start, end time.Time) ([]models.Alert, error)
	CountUnresolvedAlerts(ctx context.Context) (int, error)
}

// Store is the complete persistence contract of the service.
type Store interface {
	UserCollection
	TractorCollection
	ImplementCollection
	OperationCollection
	TelemetryCollection
	FuelLogCollection
	AlertCollection

	// Migrate creates the schema and indexes if they do not exist.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// DefaultTimeResolution is the timestamp resolution a store persists unless
// it reports a coarser one.
const DefaultTimeResolution = time.Microsecond

// TimeResolution returns the resolution st persists timestamps at.
func TimeResolution(st Store) time.Duration {
	if r, ok := st.(interface{ TimeResolution() time.Duration }); ok {
		return r.TimeResolution()
	}
	return DefaultTimeResolution
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MongoStore)(nil)
)
