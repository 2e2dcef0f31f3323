package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/billingdesk/internal/billing"
	"github.com/copperline/billingdesk/internal/domain"
)

func TestRefundCharge(t *testing.T) {
	provider := billing.NewMockProvider()
	var got billing.RefundParams
	provider.CreateRefundFunc = func(ctx context.Context, params billing.RefundParams) (*billing.Refund, error) {
		got = params
		return &billing.Refund{ID: "re_1", ChargeID: params.ChargeID, Amount: params.Amount, Status: "succeeded"}, nil
	}

	refund, err := NewRefundService(provider).RefundCharge(context.Background(), "ch_1", 500, "partial")
	require.NoError(t, err)

	assert.Equal(t, billing.RefundParams{ChargeID: "ch_1", Amount: 500, Notes: "partial"}, got)
	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, int64(500), refund.Amount)
}

func TestRefundCharge_FullAmountByDefault(t *testing.T) {
	provider := billing.NewMockProvider()

	refund, err := NewRefundService(provider).RefundCharge(context.Background(), "ch_1", 0, "")
	require.NoError(t, err)

	// Zero amount means "refund in full"; the provider decides the amount.
	assert.Equal(t, "ch_1", refund.ChargeID)
	assert.Contains(t, provider.CallLog, "CreateRefund(ch_1, 0)")
}

func TestRefundCharge_MissingChargeID(t *testing.T) {
	_, err := NewRefundService(billing.NewMockProvider()).RefundCharge(context.Background(), "", 0, "")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestRefundCharge_NegativeAmount(t *testing.T) {
	_, err := NewRefundService(billing.NewMockProvider()).RefundCharge(context.Background(), "ch_1", -5, "")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestRefundCharge_RemoteFailure(t *testing.T) {
	provider := billing.NewMockProvider()
	provider.CreateRefundFunc = func(ctx context.Context, params billing.RefundParams) (*billing.Refund, error) {
		return nil, errors.New("connection reset")
	}

	_, err := NewRefundService(provider).RefundCharge(context.Background(), "ch_1", 0, "")
	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
}
