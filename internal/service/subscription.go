package service

import (
	"context"
	"fmt"

	"github.com/copperline/billingdesk/internal/billing"
	"github.com/copperline/billingdesk/internal/domain"
)

// SubscriptionService carries the write path: cancel, create, update and
// resume. Each action resolves the local row, forwards one instruction to the
// provider, and returns the provider's refreshed snapshot. No local state is
// touched before the remote call succeeds.
type SubscriptionService struct {
	repo     domain.AccountRepository
	provider billing.Provider
}

// NewSubscriptionService creates the write-side service.
func NewSubscriptionService(repo domain.AccountRepository, provider billing.Provider) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		provider: provider,
	}
}

// CancelSubscription cancels the subscription on the provider. Immediate
// cancellation ends access at once; otherwise access runs until period end.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, accountID, subscriptionID int64, immediate bool) (*billing.Subscription, error) {
	const op = "SubscriptionService.CancelSubscription"

	local, err := s.findProviderBackedSubscription(ctx, op, accountID, subscriptionID)
	if err != nil {
		return nil, err
	}

	var remote *billing.Subscription
	if immediate {
		remote, err = s.provider.CancelSubscriptionNow(ctx, *local.ProviderSubscriptionID)
	} else {
		remote, err = s.provider.CancelSubscription(ctx, *local.ProviderSubscriptionID)
	}
	if err != nil {
		return nil, remoteError(op, err, fmt.Sprintf("could not cancel subscription %s", *local.ProviderSubscriptionID))
	}
	return remote, nil
}

// CreateSubscription creates a subscription on the provider for the
// account's customer, billed on priceID and tagged with productID.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, accountID int64, productID, priceID string) (*billing.Subscription, error) {
	const op = "SubscriptionService.CreateSubscription"

	if priceID == "" {
		return nil, domain.NewValidationError(op, "price", "price id is required")
	}

	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ProviderCustomerID == nil {
		return nil, domain.Invalid(op, "account has no billing customer")
	}

	remote, err := s.provider.CreateSubscription(ctx, billing.CreateSubscriptionParams{
		CustomerID: *account.ProviderCustomerID,
		PriceID:    priceID,
		ProductID:  productID,
	})
	if err != nil {
		return nil, remoteError(op, err, fmt.Sprintf("could not create subscription on price %s", priceID))
	}
	return remote, nil
}

// UpdateSubscription swaps the provider subscription's price to planID and
// overwrites the local plan label with the same id. The label acts as a
// cache of the last requested plan id after a swap.
func (s *SubscriptionService) UpdateSubscription(ctx context.Context, accountID, subscriptionID int64, planID string) (*billing.Subscription, error) {
	const op = "SubscriptionService.UpdateSubscription"

	if planID == "" {
		return nil, domain.NewValidationError(op, "plan", "plan id is required")
	}

	local, err := s.findProviderBackedSubscription(ctx, op, accountID, subscriptionID)
	if err != nil {
		return nil, err
	}

	remote, err := s.provider.SwapSubscriptionPlan(ctx, *local.ProviderSubscriptionID, planID)
	if err != nil {
		return nil, remoteError(op, err, fmt.Sprintf("could not swap subscription %s to plan %s", *local.ProviderSubscriptionID, planID))
	}

	if err := s.repo.UpdateSubscriptionPlanLabel(ctx, local.ID, planID); err != nil {
		return nil, err
	}
	return remote, nil
}

// ResumeSubscription lifts a pending cancellation, restoring active billing.
func (s *SubscriptionService) ResumeSubscription(ctx context.Context, accountID, subscriptionID int64) (*billing.Subscription, error) {
	const op = "SubscriptionService.ResumeSubscription"

	local, err := s.findProviderBackedSubscription(ctx, op, accountID, subscriptionID)
	if err != nil {
		return nil, err
	}

	remote, err := s.provider.ResumeSubscription(ctx, *local.ProviderSubscriptionID)
	if err != nil {
		return nil, remoteError(op, err, fmt.Sprintf("could not resume subscription %s", *local.ProviderSubscriptionID))
	}
	return remote, nil
}

// findProviderBackedSubscription resolves the local row and requires it to
// already exist on the provider. A local-only subscription cannot be the
// target of a provider mutation.
func (s *SubscriptionService) findProviderBackedSubscription(ctx context.Context, op string, accountID, subscriptionID int64) (*domain.LocalSubscription, error) {
	if _, err := s.repo.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}

	subs, err := s.repo.FindSubscriptions(ctx, accountID, &subscriptionID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, domain.NotFound(op, "subscription", fmt.Sprintf("%d", subscriptionID))
	}

	local := subs[0]
	if local.ProviderSubscriptionID == nil {
		return nil, domain.Invalid(op, "subscription has not been created on the billing provider")
	}
	return &local, nil
}
