package billing

import "context"

// Provider defines read/write access to the remote subscription-billing
// service. The reconciliation layer in internal/service depends only on this
// interface; the Stripe implementation lives in stripe.go and tests use
// MockProvider.
type Provider interface {
	// GetSubscription retrieves a subscription snapshot by provider id.
	GetSubscription(ctx context.Context, id string) (*Subscription, error)

	// ListPlans returns up to limit plans from the provider's catalogue.
	ListPlans(ctx context.Context, limit int64) ([]Plan, error)

	// ListPaymentMethods returns the customer's card payment methods.
	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)

	// GetDefaultPaymentMethodID returns the id of the customer's default
	// payment method, or "" when none is configured. A missing default is a
	// legitimate state, not an error.
	GetDefaultPaymentMethodID(ctx context.Context, customerID string) (string, error)

	// ListInvoices returns the customer's invoices.
	ListInvoices(ctx context.Context, customerID string) ([]Invoice, error)

	// ListPaymentIntents returns the customer's payment intents, each with
	// its charges nested in provider order.
	ListPaymentIntents(ctx context.Context, customerID string) ([]PaymentIntent, error)

	// GetDispute resolves a dispute id to the full dispute object.
	GetDispute(ctx context.Context, id string) (*Dispute, error)

	// CreateRefund refunds a charge. A zero Amount refunds the full charge.
	CreateRefund(ctx context.Context, params RefundParams) (*Refund, error)

	// CancelSubscription schedules cancellation at period end (graceful).
	CancelSubscription(ctx context.Context, id string) (*Subscription, error)

	// CancelSubscriptionNow cancels immediately, ending access at once.
	CancelSubscriptionNow(ctx context.Context, id string) (*Subscription, error)

	// CreateSubscription creates a subscription for the customer on the
	// given price, tagged with the product grouping.
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)

	// SwapSubscriptionPlan replaces the subscription's price with priceID.
	SwapSubscriptionPlan(ctx context.Context, id, priceID string) (*Subscription, error)

	// ResumeSubscription lifts a pending cancellation, restoring billing.
	ResumeSubscription(ctx context.Context, id string) (*Subscription, error)
}

// CollectionMethodChargeAutomatically is the provider's collection method for
// subscriptions billed against a stored payment method (as opposed to
// invoices sent for manual payment).
const CollectionMethodChargeAutomatically = "charge_automatically"

// Subscription is a provider-side subscription snapshot. Epoch fields are 0
// when the provider reports no value.
type Subscription struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`

	// Plan is the price the subscription currently bills on. Nil when the
	// provider returns a subscription without items.
	Plan *Plan `json:"plan"`

	CollectionMethod   string `json:"collection_method"`
	BillingCycleAnchor int64  `json:"billing_cycle_anchor"`
	EndedAt            int64  `json:"ended_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	DaysUntilDue       int64  `json:"days_until_due"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
}

// Plan is a provider billing plan (a recurring price).
type Plan struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Amount   int64  `json:"amount"`
	Interval string `json:"interval"`
	Currency string `json:"currency"`
	Product  string `json:"product"`
}

// PaymentMethod is a stored card.
type PaymentMethod struct {
	ID       string
	Name     string
	Brand    string
	Last4    string
	Country  string
	ExpMonth int64
	ExpYear  int64
}

// Invoice is a provider invoice. SubscriptionID and ChargeID are "" when the
// invoice is not tied to a subscription or has not been charged.
type Invoice struct {
	ID             string
	SubscriptionID string
	Total          int64
	Attempted      bool
	ChargeID       string
	Currency       string
	PeriodStart    int64
	PeriodEnd      int64
	Metadata       map[string]string
}

// PaymentIntent groups the charges made for one payment attempt sequence.
type PaymentIntent struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Created  int64

	// Charges holds the intent's charges in provider order.
	Charges []Charge
}

// Charge is a single card charge. DisputeID is "" when undisputed.
type Charge struct {
	ID             string
	Amount         int64
	AmountRefunded int64
	Captured       bool
	Paid           bool
	Status         string
	Currency       string
	DisputeID      string
	FailureCode    string
	FailureMessage string
	Created        int64
}

// Dispute is a full dispute object resolved from a charge's dispute id.
type Dispute struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
	Created  int64  `json:"created"`
}

// RefundParams contains parameters for refunding a charge.
type RefundParams struct {
	// ChargeID identifies the charge to refund.
	ChargeID string

	// Amount overrides the refunded amount in the smallest currency unit.
	// Zero refunds the full original charge amount.
	Amount int64

	// Notes, when non-empty, is attached to the refund as metadata under a
	// "notes" key.
	Notes string
}

// Refund is the provider's record of a completed refund request.
type Refund struct {
	ID       string `json:"id"`
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}

// CreateSubscriptionParams contains parameters for creating a subscription.
type CreateSubscriptionParams struct {
	// CustomerID is the provider customer to subscribe (cus_...).
	CustomerID string

	// PriceID is the provider price to bill on (price_...).
	PriceID string

	// ProductID tags the subscription with its product grouping.
	ProductID string
}
