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

func newSubscriptionFixture(t *testing.T) (*mockRepo, *billing.MockProvider, *SubscriptionService) {
	t.Helper()

	repo := &mockRepo{
		account: testAccount(strPtr("cus_1")),
		subs:    []domain.LocalSubscription{testLocalSub(10, strPtr("sub_1"))},
	}
	provider := billing.NewMockProvider()
	provider.Subscriptions["sub_1"] = testRemoteSub()

	return repo, provider, NewSubscriptionService(repo, provider)
}

func TestCancelSubscription_Graceful(t *testing.T) {
	_, provider, svc := newSubscriptionFixture(t)

	sub, err := svc.CancelSubscription(context.Background(), 1, 10, false)
	require.NoError(t, err)

	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Contains(t, provider.CallLog, "CancelSubscription(sub_1)")
	assert.NotContains(t, provider.CallLog, "CancelSubscriptionNow(sub_1)")
}

func TestCancelSubscription_Immediate(t *testing.T) {
	_, provider, svc := newSubscriptionFixture(t)

	sub, err := svc.CancelSubscription(context.Background(), 1, 10, true)
	require.NoError(t, err)

	assert.Equal(t, "canceled", sub.Status)
	assert.Contains(t, provider.CallLog, "CancelSubscriptionNow(sub_1)")
}

func TestCancelSubscription_UnknownSubscription(t *testing.T) {
	_, _, svc := newSubscriptionFixture(t)

	_, err := svc.CancelSubscription(context.Background(), 1, 99, false)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCancelSubscription_UnknownAccount(t *testing.T) {
	_, _, svc := newSubscriptionFixture(t)

	_, err := svc.CancelSubscription(context.Background(), 7, 10, false)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCancelSubscription_LocalOnlyTarget(t *testing.T) {
	repo := &mockRepo{
		account: testAccount(strPtr("cus_1")),
		subs:    []domain.LocalSubscription{testLocalSub(10, nil)},
	}
	svc := NewSubscriptionService(repo, billing.NewMockProvider())

	_, err := svc.CancelSubscription(context.Background(), 1, 10, false)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestCreateSubscription(t *testing.T) {
	_, provider, svc := newSubscriptionFixture(t)

	sub, err := svc.CreateSubscription(context.Background(), 1, "prod_1", "price_2")
	require.NoError(t, err)

	require.NotNil(t, sub.Plan)
	assert.Equal(t, "price_2", sub.Plan.ID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Contains(t, provider.CallLog, "CreateSubscription(cus_1, price_2)")
}

func TestCreateSubscription_MissingPrice(t *testing.T) {
	_, _, svc := newSubscriptionFixture(t)

	_, err := svc.CreateSubscription(context.Background(), 1, "prod_1", "")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestCreateSubscription_NoCustomer(t *testing.T) {
	repo := &mockRepo{account: testAccount(nil)}
	svc := NewSubscriptionService(repo, billing.NewMockProvider())

	_, err := svc.CreateSubscription(context.Background(), 1, "prod_1", "price_1")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestUpdateSubscription_SwapsPlanAndCachesLabel(t *testing.T) {
	repo, provider, svc := newSubscriptionFixture(t)

	sub, err := svc.UpdateSubscription(context.Background(), 1, 10, "price_2")
	require.NoError(t, err)

	require.NotNil(t, sub.Plan)
	assert.Equal(t, "price_2", sub.Plan.ID)
	assert.Contains(t, provider.CallLog, "SwapSubscriptionPlan(sub_1, price_2)")

	// The local label is overwritten with the last requested plan id.
	assert.Equal(t, "price_2", repo.labelWrites[10])
}

func TestUpdateSubscription_MissingPlan(t *testing.T) {
	repo, _, svc := newSubscriptionFixture(t)

	_, err := svc.UpdateSubscription(context.Background(), 1, 10, "")
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	assert.Empty(t, repo.labelWrites)
}

func TestUpdateSubscription_RemoteFailureLeavesLabelUntouched(t *testing.T) {
	repo, provider, svc := newSubscriptionFixture(t)
	provider.SwapSubscriptionPlanFunc = func(ctx context.Context, id, priceID string) (*billing.Subscription, error) {
		return nil, errors.New("connection reset")
	}

	_, err := svc.UpdateSubscription(context.Background(), 1, 10, "price_2")
	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
	assert.Empty(t, repo.labelWrites)
}

func TestResumeSubscription(t *testing.T) {
	_, provider, svc := newSubscriptionFixture(t)
	provider.Subscriptions["sub_1"].CancelAtPeriodEnd = true

	sub, err := svc.ResumeSubscription(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.False(t, sub.CancelAtPeriodEnd)
	assert.Contains(t, provider.CallLog, "ResumeSubscription(sub_1)")
}
