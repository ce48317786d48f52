package interfaces

import (
	"context"

	"github.com/Jereff77/SPHCFDIs/internal/models"
)

type BankMovementRepository interface {
	// GetByTrackingKey returns the movement with the given rastreo key, or
	// (nil, nil) when none exists.
	GetByTrackingKey(ctx context.Context, trackingKey string) (*models.BankMovement, error)
	Create(ctx context.Context, movement *models.BankMovement) error
	Count(ctx context.Context) (int64, error)
}
