package fleet

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/events"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)

type harness struct {
	svc       *Service
	store     *db.SQLiteStore
	clock     *testClock
	events    *recordingPublisher
	owner     models.User
	tractor   *models.Tractor
	implement *models.Implement
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	st, err := db.OpenSQLite(filepath.Join(t.TempDir(), "farmtrack.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { st.Close() })

	h := &harness{store: st, clock: &testClock{now: day.Add(10 * time.Hour)}, events: &recordingPublisher{}}
	h.svc = NewService(st, WithClock(h.clock.Now), WithPublisher(h.events))

	h.owner = models.User{
		ID: uuid.NewString(), Username: "owner", PasswordHash: "hash", FullName: "Asha Patil",
		Role: models.RoleOwner, IsActive: true, CreatedAt: day,
	}
	require.NoError(t, st.InsertUser(ctx, h.owner))

	h.tractor, err = h.svc.CreateTractor(ctx, h.owner.ID, models.TractorCreate{
		ManufacturerName: "Mahindra", Model: "575 DI", RegistrationNumber: "MH-12-AB-1234",
	})
	require.NoError(t, err)

	h.implement, err = h.svc.CreateImplement(ctx, h.owner.ID, models.ImplementCreate{
		OperationType: models.OperationTillage, Name: "Rotavator", BrandName: "Shaktiman", WorkingWidth: 4,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) start(t *testing.T) *models.Operation {
	t.Helper()
	op, err := h.svc.StartOperation(context.Background(), h.owner.ID, models.OperationStart{
		TractorID: h.tractor.ID, ImplementID: h.implement.ID, OperationType: models.OperationTillage,
	})
	require.NoError(t, err)
	return op
}

func TestError_KindAndMessage(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Kind: ErrConflict, Message: "operation is not active", Err: cause}

	assert.EqualError(t, err, "operation is not active")
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		err  error
		kind error
		msg  string
	}{
		{db.ErrNotFound, ErrNotFound, "Tractor not found"},
		{db.ErrInvalidReference, ErrNotFound, "referenced record not found"},
		{db.ErrActiveOperation, ErrConflict, "an active operation already exists for this tractor"},
		{db.ErrOperationNotActive, ErrConflict, "operation is not active"},
		{db.ErrReferenced, ErrConflict, "Tractor is referenced by other records"},
		{db.ErrDuplicate, ErrConflict, "Tractor already exists"},
	}
	for _, tt := range tests {
		err := storeError(tt.err, "Tractor")
		assert.ErrorIs(t, err, tt.kind)
		assert.EqualError(t, err, tt.msg)
	}

	other := errors.New("disk full")
	assert.Same(t, other, storeError(other, "Tractor"))
	assert.NoError(t, storeError(nil, "Tractor"))
}

func TestService_ClockTruncatesToMicroseconds(t *testing.T) {
	h := newHarness(t)
	h.clock.Set(day.Add(10*time.Hour + 123456789))
	assert.Equal(t, 123456000, h.svc.clock().Nanosecond())
}

func TestService_PublishFailureDoesNotFailOperation(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("broker down")

	op := h.start(t)
	assert.Equal(t, models.StatusActive, op.Status)
	assert.Equal(t, []events.Kind{events.KindOperationStarted}, h.events.kinds())
}

// millisecondStore reports a millisecond resolution over a SQLite store.
type millisecondStore struct {
	*db.SQLiteStore
}

func (millisecondStore) TimeResolution() time.Duration { return time.Millisecond }

func TestService_UsesStoreTimeResolution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.clock.Set(day.Add(10*time.Hour + 123456*time.Microsecond))
	svc := NewService(millisecondStore{h.store}, WithClock(h.clock.Now), WithPublisher(h.events))

	op, err := svc.StartOperation(ctx, h.owner.ID, models.OperationStart{
		TractorID: h.tractor.ID, ImplementID: h.implement.ID, OperationType: models.OperationTillage,
	})
	require.NoError(t, err)
	assert.Equal(t, 123000000, op.StartTime.Nanosecond())

	detail, err := svc.GetOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.True(t, op.StartTime.Equal(detail.StartTime))

	at := day.Add(11*time.Hour + 500250*time.Microsecond)
	first, created, err := svc.AppendTelemetry(ctx, models.TelemetryCreate{OperationID: op.ID, Timestamp: &at, Speed: 3})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 500000000, first.Timestamp.Nanosecond())

	resent := at.Add(300 * time.Microsecond)
	second, created, err := svc.AppendTelemetry(ctx, models.TelemetryCreate{OperationID: op.ID, Timestamp: &resent, Speed: 3})
	require.NoError(t, err)
	assert.False(t, created, "samples within the same millisecond collide")
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))
}
