package service

import (
	"context"
	"fmt"

	"github.com/copperline/billingdesk/internal/billing"
	"github.com/copperline/billingdesk/internal/domain"
)

// RefundService issues refunds against provider charges. No local state is
// involved.
type RefundService struct {
	provider billing.Provider
}

// NewRefundService creates the refund service.
func NewRefundService(provider billing.Provider) *RefundService {
	return &RefundService{provider: provider}
}

// RefundCharge refunds chargeID. A zero amount refunds the full original
// charge; a non-empty note is attached to the refund as metadata under a
// "notes" key.
func (s *RefundService) RefundCharge(ctx context.Context, chargeID string, amount int64, note string) (*billing.Refund, error) {
	const op = "RefundService.RefundCharge"

	if chargeID == "" {
		return nil, domain.NewValidationError(op, "charge", "charge id is required")
	}
	if amount < 0 {
		return nil, domain.NewValidationError(op, "amount", "amount must not be negative")
	}

	refund, err := s.provider.CreateRefund(ctx, billing.RefundParams{
		ChargeID: chargeID,
		Amount:   amount,
		Notes:    note,
	})
	if err != nil {
		return nil, remoteError(op, err, fmt.Sprintf("could not refund charge %s", chargeID))
	}
	return refund, nil
}
