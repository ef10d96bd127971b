package service

import (
	"context"

	"medride/internal/domain"
	"medride/internal/fare"
	"medride/internal/repository"
)

// EarningService exposes rider earnings.
type EarningService struct {
	store repository.Store
}

// NewEarningService creates a new EarningService.
func NewEarningService(store repository.Store) *EarningService {
	return &EarningService{store: store}
}

// EarningsSummary lists a rider's earnings with totals.
type EarningsSummary struct {
	Earnings        []*domain.Earning
	TotalAmount     float64
	TotalCommission float64
	TotalNet        float64
}

// ListForRider returns the calling rider's earnings, newest first.
func (s *EarningService) ListForRider(ctx context.Context, actor Actor) (*EarningsSummary, error) {
	if actor.Role != domain.RoleRider {
		return nil, ErrNotRider
	}

	earnings, err := s.store.Earnings().ListByRider(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	summary := &EarningsSummary{Earnings: earnings}
	for _, e := range earnings {
		summary.TotalAmount += e.Amount
		summary.TotalCommission += e.Commission
		summary.TotalNet += e.NetAmount
	}
	summary.TotalAmount = fare.Round2(summary.TotalAmount)
	summary.TotalCommission = fare.Round2(summary.TotalCommission)
	summary.TotalNet = fare.Round2(summary.TotalNet)
	return summary, nil
}
