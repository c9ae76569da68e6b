package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a migrated SQLite store in a temp directory.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "farmtrack.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

var baseTime = time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)

type fixture struct {
	user      models.User
	tractor   models.Tractor
	implement models.Implement
}

func seed(t *testing.T, st Store) fixture {
	t.Helper()
	ctx := context.Background()

	user := models.User{
		ID: uuid.NewString(), Username: "owner-" + uuid.NewString()[:8], PasswordHash: "hash",
		FullName: "Asha Patil", Role: models.RoleOwner, IsActive: true, CreatedAt: baseTime,
	}
	require.NoError(t, st.InsertUser(ctx, user))

	tractor := models.Tractor{
		ID: uuid.NewString(), OwnerID: user.ID, ManufacturerName: "Mahindra", Model: "575 DI",
		RegistrationNumber: "MH-" + uuid.NewString()[:8], IsActive: true, CreatedAt: baseTime,
	}
	require.NoError(t, st.InsertTractor(ctx, tractor))

	implement := models.Implement{
		ID: uuid.NewString(), OwnerID: user.ID, OperationType: models.OperationTillage, Name: "Rotavator",
		BrandName: "Shaktiman", WorkingWidth: 4, IsActive: true, CreatedAt: baseTime,
	}
	require.NoError(t, st.InsertImplement(ctx, implement))

	return fixture{user: user, tractor: tractor, implement: implement}
}

func newOperation(f fixture, start time.Time) (models.Operation, models.Telemetry) {
	op := models.Operation{
		ID: uuid.NewString(), TractorID: f.tractor.ID, ImplementID: f.implement.ID, OperatorID: f.user.ID,
		OperationType: models.OperationTillage, Status: models.StatusActive, StartTime: start, CreatedAt: start,
	}
	opening := models.Telemetry{
		ID: uuid.NewString(), OperationID: op.ID, TractorID: f.tractor.ID, Timestamp: start, EngineOn: true,
	}
	return op, opening
}

func TestSQLiteStore_Migrate_Idempotent(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, st.Ping(context.Background()))
}

func TestSQLiteStore_Users(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	phone := "+911234567890"

	user := models.User{
		ID: uuid.NewString(), Username: "ravi", PasswordHash: "hash", FullName: "Ravi Kumar",
		Role: models.RoleOperator, Phone: &phone, IsActive: true, CreatedAt: baseTime,
	}
	require.NoError(t, st.InsertUser(ctx, user))

	found, err := st.FindUserByUsername(ctx, "ravi")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	require.NotNil(t, found.Phone)
	assert.Equal(t, phone, *found.Phone)
	assert.True(t, found.CreatedAt.Equal(baseTime))

	dup := user
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, st.InsertUser(ctx, dup), ErrDuplicate)

	_, err = st.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_TimestampsKeepMicroseconds(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	ts := baseTime.Add(123456 * time.Microsecond)
	op, opening := newOperation(f, ts)
	require.NoError(t, st.StartOperation(ctx, op, opening))

	found, err := st.FindOperationByID(ctx, op.ID)
	require.NoError(t, err)
	assert.True(t, found.StartTime.Equal(ts), "got %s want %s", found.StartTime, ts)
	assert.Nil(t, found.EndTime)
}

func TestSQLiteStore_StartOperation_OneActivePerTractor(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	first, opening := newOperation(f, baseTime)
	require.NoError(t, st.StartOperation(ctx, first, opening))

	second, opening2 := newOperation(f, baseTime.Add(time.Minute))
	err := st.StartOperation(ctx, second, opening2)
	assert.ErrorIs(t, err, ErrActiveOperation)

	_, err = st.FindOperationByID(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound, "rejected start must not leave an operation behind")

	samples, err := st.FindTelemetryByOperation(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
	assert.True(t, samples[0].EngineOn)

	_, err = st.StopOperation(ctx, first.ID, baseTime.Add(time.Hour), models.Telemetry{ID: uuid.NewString(), Timestamp: baseTime.Add(time.Hour)})
	require.NoError(t, err)

	third, opening3 := newOperation(f, baseTime.Add(2*time.Hour))
	assert.NoError(t, st.StartOperation(ctx, third, opening3))
}

func TestSQLiteStore_StartOperation_ConcurrentStartsOneWins(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	const starters = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			op, opening := newOperation(f, baseTime.Add(time.Duration(i)*time.Second))
			err := st.StartOperation(ctx, op, opening)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrActiveOperation):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, starters-1, conflicts)

	count, err := st.CountActiveOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_StartOperation_UnknownImplement(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)

	op, opening := newOperation(f, baseTime)
	op.ImplementID = "missing"
	err := st.StartOperation(context.Background(), op, opening)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = st.FindActiveOperation(context.Background(), f.tractor.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_StopOperation(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	op, opening := newOperation(f, baseTime)
	require.NoError(t, st.StartOperation(ctx, op, opening))

	end := baseTime.Add(2 * time.Hour)
	stopped, err := st.StopOperation(ctx, op.ID, end, models.Telemetry{ID: uuid.NewString(), Timestamp: end})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stopped.Status)
	require.NotNil(t, stopped.EndTime)
	assert.True(t, stopped.EndTime.Equal(end))

	samples, err := st.FindTelemetryByOperation(ctx, op.ID)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.False(t, samples[0].EngineOn, "newest sample is the closing one")
	assert.Equal(t, f.tractor.ID, samples[0].TractorID)

	_, err = st.StopOperation(ctx, op.ID, end.Add(time.Minute), models.Telemetry{ID: uuid.NewString(), Timestamp: end.Add(time.Minute)})
	assert.ErrorIs(t, err, ErrOperationNotActive)

	again, err := st.FindOperationByID(ctx, op.ID)
	require.NoError(t, err)
	assert.True(t, again.EndTime.Equal(end), "second stop must not re-stamp the end time")

	samples, err = st.FindTelemetryByOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	_, err = st.StopOperation(ctx, "missing", end, models.Telemetry{ID: uuid.NewString(), Timestamp: end})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_StopOperation_ClosingSampleExists(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	op, opening := newOperation(f, baseTime)
	require.NoError(t, st.StartOperation(ctx, op, opening))

	end := baseTime.Add(time.Hour)
	existing := models.Telemetry{ID: uuid.NewString(), OperationID: op.ID, TractorID: f.tractor.ID, Timestamp: end, EngineOn: true}
	_, created, err := st.InsertTelemetry(ctx, existing)
	require.NoError(t, err)
	require.True(t, created)

	stopped, err := st.StopOperation(ctx, op.ID, end, models.Telemetry{ID: uuid.NewString(), Timestamp: end})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stopped.Status)

	samples, err := st.FindTelemetryByOperation(ctx, op.ID)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, existing.ID, samples[0].ID)
}

func TestSQLiteStore_InsertTelemetry_Idempotent(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	op, opening := newOperation(f, baseTime)
	require.NoError(t, st.StartOperation(ctx, op, opening))

	lat := 18.52
	sample := models.Telemetry{
		ID: uuid.NewString(), OperationID: op.ID, TractorID: f.tractor.ID, Timestamp: baseTime.Add(time.Minute),
		EngineOn: true, IsMoving: true, Speed: 6.5, Latitude: &lat,
		ImplementData: map[string]any{"depth": 12.0},
	}
	first, created, err := st.InsertTelemetry(ctx, sample)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 12.0, first.ImplementData["depth"])

	retry := sample
	retry.ID = uuid.NewString()
	retry.Speed = 99
	second, created, err := st.InsertTelemetry(ctx, retry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 6.5, second.Speed, "original content wins")

	samples, err := st.FindTelemetryByOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	orphan := sample
	orphan.ID = uuid.NewString()
	orphan.OperationID = "missing"
	_, _, err = st.InsertTelemetry(ctx, orphan)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestSQLiteStore_InsertFuelLog_Idempotent(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	entry := models.FuelLog{
		ID: uuid.NewString(), TractorID: f.tractor.ID, OperatorID: f.user.ID,
		Timestamp: baseTime, Quantity: 40, Notes: "full tank",
	}
	first, created, err := st.InsertFuelLog(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	entry.ID = uuid.NewString()
	entry.Quantity = 10
	second, created, err := st.InsertFuelLog(ctx, entry)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 40.0, second.Quantity)

	total, err := st.SumFuel(ctx, baseTime, baseTime.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 40.0, total)

	details, err := st.FindFuelLogDetails(ctx)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.NotNil(t, details[0].Tractor)
	assert.Equal(t, f.tractor.RegistrationNumber, details[0].Tractor.RegistrationNumber)
	require.NotNil(t, details[0].Operator)
	assert.Equal(t, "Asha Patil", details[0].Operator.FullName)
}

func TestSQLiteStore_InsertAlert_NullOperationIsPartOfKey(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	alert := models.Alert{
		ID: uuid.NewString(), TractorID: f.tractor.ID, Timestamp: baseTime,
		AlertType: models.AlertTypeBreakdown, Message: "hydraulic leak",
	}
	first, created, err := st.InsertAlert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, first.OperationID)

	alert.ID = uuid.NewString()
	second, created, err := st.InsertAlert(ctx, alert)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	op, opening := newOperation(f, baseTime)
	require.NoError(t, st.StartOperation(ctx, op, opening))
	alert.ID = uuid.NewString()
	alert.OperationID = &op.ID
	third, created, err := st.InsertAlert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, created, "same key with an operation is a different alert")
	assert.NotEqual(t, first.ID, third.ID)

	resolved, err := st.ResolveAlert(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)

	_, err = st.ResolveAlert(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	unresolved, err := st.CountUnresolvedAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, unresolved)
}

func TestSQLiteStore_DeleteTractor_Restrict(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	op, opening := newOperation(f, baseTime)
	require.NoError(t, st.StartOperation(ctx, op, opening))

	assert.ErrorIs(t, st.DeleteTractor(ctx, f.tractor.ID), ErrReferenced)
	assert.ErrorIs(t, st.DeleteImplement(ctx, f.implement.ID), ErrReferenced)

	_, err := st.FindTractorByID(ctx, f.tractor.ID)
	assert.NoError(t, err, "restricted delete keeps the row")

	spare := models.Tractor{
		ID: uuid.NewString(), OwnerID: f.user.ID, ManufacturerName: "Sonalika", Model: "DI 745",
		RegistrationNumber: "PB-10-XY-0001", CreatedAt: baseTime,
	}
	require.NoError(t, st.InsertTractor(ctx, spare))
	assert.NoError(t, st.DeleteTractor(ctx, spare.ID))
	assert.ErrorIs(t, st.DeleteTractor(ctx, spare.ID), ErrNotFound)
}

func TestSQLiteStore_UpdateTractor(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	model := "585 DI"
	updated, err := st.UpdateTractor(ctx, f.tractor.ID, models.TractorPatch{Model: &model})
	require.NoError(t, err)
	assert.Equal(t, "585 DI", updated.Model)
	assert.Equal(t, "Mahindra", updated.ManufacturerName)

	unchanged, err := st.UpdateTractor(ctx, f.tractor.ID, models.TractorPatch{})
	require.NoError(t, err)
	assert.Equal(t, "585 DI", unchanged.Model)

	other := models.Tractor{
		ID: uuid.NewString(), OwnerID: f.user.ID, ManufacturerName: "Eicher", Model: "380",
		RegistrationNumber: "KA-01-ZZ-9999", CreatedAt: baseTime,
	}
	require.NoError(t, st.InsertTractor(ctx, other))
	_, err = st.UpdateTractor(ctx, other.ID, models.TractorPatch{RegistrationNumber: &f.tractor.RegistrationNumber})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = st.UpdateTractor(ctx, "missing", models.TractorPatch{Model: &model})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Implements(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	found, err := st.FindImplementByOwnerAndName(ctx, f.user.ID, "Rotavator")
	require.NoError(t, err)
	assert.Equal(t, f.implement.ID, found.ID)

	dup := f.implement
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, st.InsertImplement(ctx, dup), ErrDuplicate)

	width := 2.5
	updated, err := st.UpdateImplement(ctx, f.implement.ID, models.ImplementPatch{WorkingWidth: &width})
	require.NoError(t, err)
	assert.Equal(t, 2.5, updated.WorkingWidth)

	n, err := st.CountImplements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_FindOperationSpans_InclusiveWindow(t *testing.T) {
	st := newTestStore(t)
	f := seed(t, st)
	ctx := context.Background()

	inside, opening := newOperation(f, baseTime)
	require.NoError(t, st.StartOperation(ctx, inside, opening))
	_, err := st.StopOperation(ctx, inside.ID, baseTime.Add(2*time.Hour), models.Telemetry{ID: uuid.NewString(), Timestamp: baseTime.Add(2 * time.Hour)})
	require.NoError(t, err)

	nextDay := time.Date(2024, 3, 16, 0, 0, 1, 0, time.Local)
	outside, opening2 := newOperation(f, nextDay)
	require.NoError(t, st.StartOperation(ctx, outside, opening2))

	dayStart := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	dayEnd := time.Date(2024, 3, 15, 23, 59, 59, 999999000, time.Local)
	spans, err := st.FindOperationSpans(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, inside.ID, spans[0].ID)
	assert.Equal(t, "Mahindra 575 DI", spans[0].TractorName)
	assert.Equal(t, "Asha Patil", spans[0].OperatorName)
	assert.Equal(t, 4.0, spans[0].WorkingWidth)

	details, err := st.FindOperationDetails(ctx)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, outside.ID, details[0].ID, "newest start first")
	require.NotNil(t, details[0].Implement)
	assert.Equal(t, "Rotavator", details[0].Implement.Name)

	recent, err := st.FindRecentOperations(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
