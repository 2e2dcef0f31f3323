package domain

import (
	"context"
	"time"
)

// BillableAccount is the locally persisted account record for a paying (or
// potential-paying) entity. A nil ProviderCustomerID means the account has
// never become a paying customer; no customer-scoped provider lookups are
// valid for it.
type BillableAccount struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ProviderCustomerID is the billing provider's customer id (cus_...).
	ProviderCustomerID *string `json:"provider_customer_id"`
}

// LocalSubscription is the locally persisted subscription row. A subscription
// may exist locally before it is created on the provider, in which case
// ProviderSubscriptionID is nil.
type LocalSubscription struct {
	ID        int64 `json:"id"`
	AccountID int64 `json:"account_id"`

	// ProviderSubscriptionID is the provider's subscription id (sub_...).
	ProviderSubscriptionID *string `json:"provider_subscription_id"`

	// PlanLabel is the caller-chosen display label for the subscription's
	// plan. UpdateSubscription overwrites it with the last requested plan id.
	PlanLabel string `json:"plan"`

	TrialEndsAt *time.Time `json:"trial_ends_at"`
	EndsAt      *time.Time `json:"ends_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Cancelled reports whether a cancellation has been requested. A cancelled
// subscription keeps running until EndsAt passes (its grace period).
func (s *LocalSubscription) Cancelled() bool {
	return s.EndsAt != nil
}

// OnGracePeriod reports whether the subscription is cancelled but still
// within its paid-through period.
func (s *LocalSubscription) OnGracePeriod(now time.Time) bool {
	return s.EndsAt != nil && now.Before(*s.EndsAt)
}

// Ended reports whether a cancelled subscription's grace period has passed.
func (s *LocalSubscription) Ended(now time.Time) bool {
	return s.Cancelled() && !s.OnGracePeriod(now)
}

// OnTrial reports whether the subscription is within its trial window.
func (s *LocalSubscription) OnTrial(now time.Time) bool {
	return s.TrialEndsAt != nil && now.Before(*s.TrialEndsAt)
}

// Active reports whether the subscription still grants access: either it was
// never cancelled, or it is cancelled but on its grace period.
func (s *LocalSubscription) Active(now time.Time) bool {
	return s.EndsAt == nil || s.OnGracePeriod(now)
}

// AccountRepository provides read access to billable accounts and their
// subscription rows, plus the single write the update-subscription action
// needs. Implementations live in internal/postgres.
type AccountRepository interface {
	// FindAccount returns the account by id.
	// Returns a domain ENOTFOUND error if the account does not exist.
	FindAccount(ctx context.Context, id int64) (*BillableAccount, error)

	// FindSubscriptions returns the account's subscription rows in insertion
	// order. When subscriptionID is non-nil the result is narrowed to that
	// single row (still a slice; empty when it does not belong to the account).
	FindSubscriptions(ctx context.Context, accountID int64, subscriptionID *int64) ([]LocalSubscription, error)

	// UpdateSubscriptionPlanLabel overwrites the stored plan label.
	//
	// The label doubles as a cache of the last requested plan id after a plan
	// swap. Isolated here so a future schema change can separate the display
	// name from the plan id without touching call sites.
	UpdateSubscriptionPlanLabel(ctx context.Context, subscriptionID int64, label string) error
}
