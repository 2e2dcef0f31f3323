package service

import (
	"encoding/json"
	"time"

	"github.com/copperline/billingdesk/internal/billing"
	"github.com/copperline/billingdesk/internal/domain"
)

// AccountView is the full administrative read model for one account: local
// account fields, the reconciled subscription list, and (outside brief mode)
// the secondary provider collections.
type AccountView struct {
	Account       domain.BillableAccount `json:"account"`
	Subscriptions []SubscriptionView     `json:"subscriptions"`
	Cards         []CardView             `json:"cards"`
	Invoices      []InvoiceView          `json:"invoices"`
	Charges       []ChargeView           `json:"charges"`
	Plans         []PlanView             `json:"plans"`
}

// SubscriptionView is one subscription in the account view. For a local-only
// subscription (no provider id) only the local fields are present; after a
// merge with the provider snapshot, Merged is set and the remote-derived
// fields are serialized as well, with absent provider values rendered as
// null rather than omitted.
type SubscriptionView struct {
	ID                     int64
	AccountID              int64
	ProviderSubscriptionID *string

	// Plan is the locally stored display label, not the provider plan id.
	Plan string

	TrialEndsAt *time.Time
	EndsAt      *time.Time
	CreatedAt   *string
	UpdatedAt   time.Time

	// Merged reports whether the provider snapshot was folded in.
	Merged bool

	PlanAmount   int64
	PlanInterval string
	PlanCurrency string

	// ProviderPlanID is the authoritative provider plan id. It is not
	// assumed equal to the local Plan label.
	ProviderPlanID string

	Ended                bool
	Cancelled            bool
	Active               bool
	OnTrial              bool
	OnGracePeriod        bool
	ChargesAutomatically bool
	EndedAt              *string
	CurrentPeriodStart   *string
	CurrentPeriodEnd     *string
	DaysUntilDue         int64
	CancelAtPeriodEnd    bool
	CanceledAt           int64
}

// subscriptionLocalJSON is the serialized shape shared by both the local-only
// and the merged view.
type subscriptionLocalJSON struct {
	ID                     int64      `json:"id"`
	AccountID              int64      `json:"account_id"`
	ProviderSubscriptionID *string    `json:"provider_id"`
	Plan                   string     `json:"plan"`
	TrialEndsAt            *time.Time `json:"trial_ends_at"`
	EndsAt                 *time.Time `json:"ends_at"`
	CreatedAt              *string    `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// subscriptionMergedJSON adds the remote-derived fields. No omitempty: a
// missing provider value serializes as an explicit null.
type subscriptionMergedJSON struct {
	subscriptionLocalJSON

	PlanAmount           int64   `json:"plan_amount"`
	PlanInterval         string  `json:"plan_interval"`
	PlanCurrency         string  `json:"plan_currency"`
	ProviderPlanID       string  `json:"provider_plan"`
	Ended                bool    `json:"ended"`
	Cancelled            bool    `json:"cancelled"`
	Active               bool    `json:"active"`
	OnTrial              bool    `json:"on_trial"`
	OnGracePeriod        bool    `json:"on_grace_period"`
	ChargesAutomatically bool    `json:"charges_automatically"`
	EndedAt              *string `json:"ended_at"`
	CurrentPeriodStart   *string `json:"current_period_start"`
	CurrentPeriodEnd     *string `json:"current_period_end"`
	DaysUntilDue         int64   `json:"days_until_due"`
	CancelAtPeriodEnd    bool    `json:"cancel_at_period_end"`
	CanceledAt           int64   `json:"canceled_at"`
}

// MarshalJSON serializes the local shape for unmerged views and the extended
// shape for merged ones.
func (v SubscriptionView) MarshalJSON() ([]byte, error) {
	local := subscriptionLocalJSON{
		ID:                     v.ID,
		AccountID:              v.AccountID,
		ProviderSubscriptionID: v.ProviderSubscriptionID,
		Plan:                   v.Plan,
		TrialEndsAt:            v.TrialEndsAt,
		EndsAt:                 v.EndsAt,
		CreatedAt:              v.CreatedAt,
		UpdatedAt:              v.UpdatedAt,
	}

	if !v.Merged {
		return json.Marshal(local)
	}

	return json.Marshal(subscriptionMergedJSON{
		subscriptionLocalJSON: local,
		PlanAmount:            v.PlanAmount,
		PlanInterval:          v.PlanInterval,
		PlanCurrency:          v.PlanCurrency,
		ProviderPlanID:        v.ProviderPlanID,
		Ended:                 v.Ended,
		Cancelled:             v.Cancelled,
		Active:                v.Active,
		OnTrial:               v.OnTrial,
		OnGracePeriod:         v.OnGracePeriod,
		ChargesAutomatically:  v.ChargesAutomatically,
		EndedAt:               v.EndedAt,
		CurrentPeriodStart:    v.CurrentPeriodStart,
		CurrentPeriodEnd:      v.CurrentPeriodEnd,
		DaysUntilDue:          v.DaysUntilDue,
		CancelAtPeriodEnd:     v.CancelAtPeriodEnd,
		CanceledAt:            v.CanceledAt,
	})
}

// CardView is one stored payment method.
type CardView struct {
	ID        string `json:"id"`
	IsDefault bool   `json:"is_default"`
	Name      string `json:"name"`
	Last4     string `json:"last4"`
	Country   string `json:"country"`
	Brand     string `json:"brand"`
	ExpMonth  int64  `json:"exp_month"`
	ExpYear   int64  `json:"exp_year"`
}

// InvoiceView is one provider invoice associated with the account's
// subscriptions. Metadata is null when the provider reports none.
type InvoiceView struct {
	ID             string            `json:"id"`
	SubscriptionID string            `json:"subscription_id"`
	Total          int64             `json:"total"`
	Attempted      bool              `json:"attempted"`
	ChargeID       string            `json:"charge_id"`
	Currency       string            `json:"currency"`
	PeriodStart    *string           `json:"period_start"`
	PeriodEnd      *string           `json:"period_end"`
	Metadata       map[string]string `json:"metadata"`
}

// ChargeView is one charge flattened out of the account's payment intents.
// Dispute is resolved to the full object when the charge carries a dispute
// id, null otherwise.
type ChargeView struct {
	ID             string           `json:"id"`
	Amount         int64            `json:"amount"`
	AmountRefunded int64            `json:"amount_refunded"`
	Captured       bool             `json:"captured"`
	Paid           bool             `json:"paid"`
	Status         string           `json:"status"`
	Currency       string           `json:"currency"`
	Dispute        *billing.Dispute `json:"dispute"`
	FailureCode    string           `json:"failure_code"`
	FailureMessage string           `json:"failure_message"`
	Created        *string          `json:"created"`
}

// PlanView is one entry of the provider's plan catalogue.
type PlanView struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Price    int64  `json:"price"`
	Interval string `json:"interval"`
	Currency string `json:"currency"`
	Product  string `json:"product"`
}
