package ledger

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jereff77/SPHCFDIs/internal/enum"
	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/models"
)

type fakeMovementRepo struct {
	byKey     map[string]*models.BankMovement
	getErr    error
	createErr error
	created   []*models.BankMovement
}

func newFakeMovementRepo() *fakeMovementRepo {
	return &fakeMovementRepo{byKey: map[string]*models.BankMovement{}}
}

func (r *fakeMovementRepo) GetByTrackingKey(ctx context.Context, trackingKey string) (*models.BankMovement, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.byKey[trackingKey], nil
}

func (r *fakeMovementRepo) Create(ctx context.Context, movement *models.BankMovement) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byKey[movement.TrackingKey] = movement
	r.created = append(r.created, movement)
	return nil
}

func (r *fakeMovementRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.byKey)), nil
}

type fakeInvoiceRepo struct {
	byUUID    map[string]*models.Invoice
	getErr    error
	createErr error
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{byUUID: map[string]*models.Invoice{}}
}

func (r *fakeInvoiceRepo) GetByUUID(ctx context.Context, uuid string) (*models.Invoice, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.byUUID[uuid], nil
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byUUID[invoice.UUID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.byUUID)), nil
}

func testLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	l.InitLogger()
	return l
}

func TestUpsertMovementInserts(t *testing.T) {
	movements := newFakeMovementRepo()
	coordinator := NewCoordinator(testLogger(), movements, newFakeInvoiceRepo())

	outcome, err := coordinator.UpsertMovement(context.Background(), &models.BankMovement{TrackingKey: "BNET01002512150049564834"})
	require.NoError(t, err)
	assert.Equal(t, enum.OutcomeInserted, outcome)
	assert.Len(t, movements.created, 1)
}

func TestUpsertMovementDetectsDuplicate(t *testing.T) {
	movements := newFakeMovementRepo()
	movements.byKey["BNET01002512150049564834"] = &models.BankMovement{TrackingKey: "BNET01002512150049564834"}
	coordinator := NewCoordinator(testLogger(), movements, newFakeInvoiceRepo())

	outcome, err := coordinator.UpsertMovement(context.Background(), &models.BankMovement{TrackingKey: "BNET01002512150049564834"})
	require.NoError(t, err)
	assert.Equal(t, enum.OutcomeDuplicate, outcome)
	assert.Empty(t, movements.created)
}

// The pre-check misses, the insert fails on the unique index, and by re-query
// time the row exists: a concurrent writer won the race.
func TestUpsertMovementLostInsertRaceIsDuplicate(t *testing.T) {
	coordinator := NewCoordinator(testLogger(), &racingMovementRepo{}, newFakeInvoiceRepo())

	outcome, err := coordinator.UpsertMovement(context.Background(), &models.BankMovement{TrackingKey: "7654321"})
	require.NoError(t, err)
	assert.Equal(t, enum.OutcomeDuplicate, outcome)
}

// racingMovementRepo misses on the first lookup and hits on the second.
type racingMovementRepo struct {
	lookups int
}

func (r *racingMovementRepo) GetByTrackingKey(ctx context.Context, trackingKey string) (*models.BankMovement, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return &models.BankMovement{TrackingKey: trackingKey}, nil
}

func (r *racingMovementRepo) Create(ctx context.Context, movement *models.BankMovement) error {
	return errors.New("duplicate key value violates unique constraint")
}

func (r *racingMovementRepo) Count(ctx context.Context) (int64, error) {
	return 1, nil
}

func TestUpsertMovementTransportErrors(t *testing.T) {
	t.Run("lookup fails", func(t *testing.T) {
		movements := newFakeMovementRepo()
		movements.getErr = errors.New("connection refused")
		coordinator := NewCoordinator(testLogger(), movements, newFakeInvoiceRepo())

		outcome, err := coordinator.UpsertMovement(context.Background(), &models.BankMovement{TrackingKey: "1234567"})
		assert.Error(t, err)
		assert.Equal(t, enum.OutcomeTransportError, outcome)
	})

	t.Run("insert fails and key stays absent", func(t *testing.T) {
		movements := newFakeMovementRepo()
		movements.createErr = errors.New("connection reset")
		coordinator := NewCoordinator(testLogger(), movements, newFakeInvoiceRepo())

		outcome, err := coordinator.UpsertMovement(context.Background(), &models.BankMovement{TrackingKey: "1234567"})
		assert.Error(t, err)
		assert.Equal(t, enum.OutcomeTransportError, outcome)
	})
}

func TestUpsertInvoice(t *testing.T) {
	invoices := newFakeInvoiceRepo()
	coordinator := NewCoordinator(testLogger(), newFakeMovementRepo(), invoices)

	invoice := &models.Invoice{ID: "uuid-1", UUID: "uuid-1"}

	outcome, err := coordinator.UpsertInvoice(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, enum.OutcomeInserted, outcome)

	outcome, err = coordinator.UpsertInvoice(context.Background(), invoice)
	require.NoError(t, err)
	assert.Equal(t, enum.OutcomeDuplicate, outcome)
}
