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

type bankMovementRepository struct {
	db *gorm.DB
}

func NewBankMovementRepository(db *gorm.DB) interfaces.BankMovementRepository {
	return &bankMovementRepository{db: db}
}

// GetByTrackingKey retrieves the movement stored under the given rastreo key
func (r *bankMovementRepository) GetByTrackingKey(ctx context.Context, trackingKey string) (*models.BankMovement, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bankMovementRepository.GetByTrackingKey")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagTrackingKey, trackingKey)

	var movement models.BankMovement
	result := r.db.WithContext(ctx).
		Where("rastreo = ?", trackingKey).
		First(&movement)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil // No movement with this key yet
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get bank movement: %w", result.Error)
	}

	return &movement, nil
}

func (r *bankMovementRepository) Create(ctx context.Context, movement *models.BankMovement) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bankMovementRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagTrackingKey, movement.TrackingKey)

	result := r.db.WithContext(ctx).Create(movement)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to create bank movement: %w", result.Error)
	}

	return nil
}

func (r *bankMovementRepository) Count(ctx context.Context) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bankMovementRepository.Count")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BankMovement{}).Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, fmt.Errorf("failed to count bank movements: %w", err)
	}

	return count, nil
}
