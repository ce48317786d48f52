package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/Jereff77/SPHCFDIs/interfaces"
	"github.com/Jereff77/SPHCFDIs/internal/models"
	"github.com/Jereff77/SPHCFDIs/internal/tracing"
)

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) interfaces.InvoiceRepository {
	return &invoiceRepository{db: db}
}

// GetByUUID retrieves the invoice stored under the given fiscal UUID
func (r *invoiceRepository) GetByUUID(ctx context.Context, uuid string) (*models.Invoice, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "invoiceRepository.GetByUUID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var invoice models.Invoice
	result := r.db.WithContext(ctx).
		Where(`"uuidCFDI" = ?`, uuid).
		First(&invoice)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil // No invoice with this UUID yet
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get invoice: %w", result.Error)
	}

	return &invoice, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "invoiceRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Create(invoice)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to create invoice: %w", result.Error)
	}

	return nil
}

func (r *invoiceRepository) Count(ctx context.Context) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "invoiceRepository.Count")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	return count, nil
}
