package ledger

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/Jereff77/SPHCFDIs/interfaces"
	"github.com/Jereff77/SPHCFDIs/internal/enum"
	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/models"
	"github.com/Jereff77/SPHCFDIs/internal/tracing"
)

// Coordinator writes extracted movements and invoices into the ledger with
// check-then-insert dedup. The unique indexes on rastreo and uuidCFDI back
// the check, so a lost race surfaces as an insert error and is resolved by
// re-querying.
type Coordinator struct {
	log       logger.Logger
	movements interfaces.BankMovementRepository
	invoices  interfaces.InvoiceRepository
}

func NewCoordinator(log logger.Logger, movements interfaces.BankMovementRepository, invoices interfaces.InvoiceRepository) *Coordinator {
	return &Coordinator{
		log:       log,
		movements: movements,
		invoices:  invoices,
	}
}

// UpsertMovement stores a bank movement unless its tracking key is already in
// the ledger.
func (c *Coordinator) UpsertMovement(ctx context.Context, movement *models.BankMovement) (enum.Outcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerCoordinator.UpsertMovement")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagTrackingKey, movement.TrackingKey)

	existing, err := c.movements.GetByTrackingKey(ctx, movement.TrackingKey)
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.OutcomeTransportError, err
	}
	if existing != nil {
		c.log.Infof("Movement already in ledger, tracking key: %s", movement.TrackingKey)
		return enum.OutcomeDuplicate, nil
	}

	if err := c.movements.Create(ctx, movement); err != nil {
		// A concurrent writer may have won the unique index race; only
		// report a transport error when the key is genuinely absent.
		if requeried, requeryErr := c.movements.GetByTrackingKey(ctx, movement.TrackingKey); requeryErr == nil && requeried != nil {
			c.log.Infof("Movement inserted concurrently, tracking key: %s", movement.TrackingKey)
			return enum.OutcomeDuplicate, nil
		}
		tracing.TraceErr(span, err)
		return enum.OutcomeTransportError, err
	}

	c.log.Infof("Movement inserted, tracking key: %s", movement.TrackingKey)
	return enum.OutcomeInserted, nil
}

// UpsertInvoice stores a CFDI invoice unless its fiscal UUID is already in
// the ledger.
func (c *Coordinator) UpsertInvoice(ctx context.Context, invoice *models.Invoice) (enum.Outcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ledgerCoordinator.UpsertInvoice")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("invoice-uuid", invoice.UUID)

	existing, err := c.invoices.GetByUUID(ctx, invoice.UUID)
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.OutcomeTransportError, err
	}
	if existing != nil {
		c.log.Infof("Invoice already in ledger, UUID: %s", invoice.UUID)
		return enum.OutcomeDuplicate, nil
	}

	if err := c.invoices.Create(ctx, invoice); err != nil {
		if requeried, requeryErr := c.invoices.GetByUUID(ctx, invoice.UUID); requeryErr == nil && requeried != nil {
			c.log.Infof("Invoice inserted concurrently, UUID: %s", invoice.UUID)
			return enum.OutcomeDuplicate, nil
		}
		tracing.TraceErr(span, err)
		return enum.OutcomeTransportError, err
	}

	c.log.Infof("Invoice inserted, UUID: %s", invoice.UUID)
	return enum.OutcomeInserted, nil
}
