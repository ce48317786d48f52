package interfaces

import (
	"context"

	"github.com/Jereff77/SPHCFDIs/internal/models"
)

type InvoiceRepository interface {
	// GetByUUID returns the invoice with the given fiscal UUID, or (nil, nil)
	// when none exists.
	GetByUUID(ctx context.Context, uuid string) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	Count(ctx context.Context) (int64, error)
}
