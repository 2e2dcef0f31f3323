package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copperline/billingdesk/internal/billing"
	"github.com/copperline/billingdesk/internal/domain"
	"github.com/copperline/billingdesk/internal/timefmt"
)

// planCatalogueLimit bounds the plan listing fetched for the view.
const planCatalogueLimit = 100

// AccountViewService builds the reconciled account view: local account and
// subscription rows merged with the provider's live state.
type AccountViewService struct {
	repo     domain.AccountRepository
	provider billing.Provider

	// now is swapped out in tests to pin the derived status flags.
	now func() time.Time
}

// NewAccountViewService creates the read-side service.
func NewAccountViewService(repo domain.AccountRepository, provider billing.Provider) *AccountViewService {
	return &AccountViewService{
		repo:     repo,
		provider: provider,
		now:      time.Now,
	}
}

// GetAccountView loads the account and its subscriptions, merges each
// provider-backed subscription with its remote snapshot, and (unless brief)
// attaches cards, invoices, charges and the plan catalogue.
//
// subscriptionID, when non-nil, narrows the view to that single local row.
// Accounts without a provider customer id get an empty subscription list and
// the plan catalogue only; no customer-scoped provider calls are made.
func (s *AccountViewService) GetAccountView(ctx context.Context, accountID int64, subscriptionID *int64, brief bool) (*AccountView, error) {
	const op = "AccountViewService.GetAccountView"

	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	subs, err := s.repo.FindSubscriptions(ctx, accountID, subscriptionID)
	if err != nil {
		return nil, err
	}

	view := &AccountView{
		Account:       *account,
		Subscriptions: []SubscriptionView{},
		Cards:         []CardView{},
		Invoices:      []InvoiceView{},
		Charges:       []ChargeView{},
		Plans:         []PlanView{},
	}

	if len(subs) == 0 || account.ProviderCustomerID == nil {
		if !brief {
			plans, err := s.provider.ListPlans(ctx, planCatalogueLimit)
			if err != nil {
				return nil, remoteError(op, err, "could not load plan catalogue")
			}
			view.Plans = formatPlans(plans)
		}
		return view, nil
	}

	customerID := *account.ProviderCustomerID
	now := s.now()

	// Allow-set for invoice association: the provider subscription ids of
	// the rows loaded for this view.
	providerIDs := make(map[string]bool, len(subs))

	for _, sub := range subs {
		if sub.ProviderSubscriptionID == nil {
			view.Subscriptions = append(view.Subscriptions, localOnlyView(sub))
			continue
		}

		remote, err := s.provider.GetSubscription(ctx, *sub.ProviderSubscriptionID)
		if err != nil {
			return nil, remoteError(op, err, fmt.Sprintf("could not load subscription %s", *sub.ProviderSubscriptionID))
		}

		providerIDs[*sub.ProviderSubscriptionID] = true
		view.Subscriptions = append(view.Subscriptions, mergeSubscription(sub, remote, now))
	}

	if brief {
		return view, nil
	}

	methods, err := s.provider.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return nil, remoteError(op, err, "could not load payment methods")
	}
	defaultID, err := s.provider.GetDefaultPaymentMethodID(ctx, customerID)
	if err != nil {
		return nil, remoteError(op, err, "could not load default payment method")
	}
	view.Cards = formatPaymentMethods(methods, defaultID)

	invoices, err := s.provider.ListInvoices(ctx, customerID)
	if err != nil {
		return nil, remoteError(op, err, "could not load invoices")
	}
	view.Invoices = formatInvoices(invoices, providerIDs)

	intents, err := s.provider.ListPaymentIntents(ctx, customerID)
	if err != nil {
		return nil, remoteError(op, err, "could not load payment intents")
	}
	view.Charges, err = s.formatCharges(ctx, intents)
	if err != nil {
		return nil, err
	}

	plans, err := s.provider.ListPlans(ctx, planCatalogueLimit)
	if err != nil {
		return nil, remoteError(op, err, "could not load plan catalogue")
	}
	view.Plans = formatPlans(plans)

	return view, nil
}

// localOnlyView renders a subscription that exists locally but was never
// created on the provider. Only local fields are populated.
func localOnlyView(local domain.LocalSubscription) SubscriptionView {
	return SubscriptionView{
		ID:                     local.ID,
		AccountID:              local.AccountID,
		ProviderSubscriptionID: local.ProviderSubscriptionID,
		Plan:                   local.PlanLabel,
		TrialEndsAt:            local.TrialEndsAt,
		EndsAt:                 local.EndsAt,
		CreatedAt:              timefmt.DateTime(local.CreatedAt.Unix()),
		UpdatedAt:              local.UpdatedAt,
	}
}

// mergeSubscription folds the provider snapshot into the local row. Status
// flags come from the local lifecycle fields; billing terms come from the
// provider. The merged created_at reflects the provider's billing cycle
// anchor, not the local row's insertion time.
func mergeSubscription(local domain.LocalSubscription, remote *billing.Subscription, now time.Time) SubscriptionView {
	v := localOnlyView(local)
	v.Merged = true

	if remote.Plan != nil {
		v.PlanAmount = remote.Plan.Amount
		v.PlanInterval = remote.Plan.Interval
		v.PlanCurrency = remote.Plan.Currency
		v.ProviderPlanID = remote.Plan.ID
	}

	v.Ended = local.Ended(now)
	v.Cancelled = local.Cancelled()
	v.Active = local.Active(now)
	v.OnTrial = local.OnTrial(now)
	v.OnGracePeriod = local.OnGracePeriod(now)

	v.ChargesAutomatically = remote.CollectionMethod == billing.CollectionMethodChargeAutomatically
	v.CreatedAt = timefmt.DateTime(remote.BillingCycleAnchor)
	v.EndedAt = timefmt.DateTime(remote.EndedAt)
	v.CurrentPeriodStart = timefmt.Date(remote.CurrentPeriodStart)
	v.CurrentPeriodEnd = timefmt.Date(remote.CurrentPeriodEnd)
	v.DaysUntilDue = remote.DaysUntilDue
	v.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	v.CanceledAt = remote.CanceledAt

	return v
}

// formatPaymentMethods renders the stored cards. is_default compares by id.
func formatPaymentMethods(methods []billing.PaymentMethod, defaultID string) []CardView {
	cards := []CardView{}
	for _, pm := range methods {
		cards = append(cards, CardView{
			ID:        pm.ID,
			IsDefault: defaultID != "" && pm.ID == defaultID,
			Name:      pm.Name,
			Last4:     pm.Last4,
			Country:   pm.Country,
			Brand:     pm.Brand,
			ExpMonth:  pm.ExpMonth,
			ExpYear:   pm.ExpYear,
		})
	}
	return cards
}

// formatInvoices renders invoices and keeps only those whose subscription id
// is in the allow-set. A nil or empty allow-set yields an empty result:
// association to one of the account's subscriptions is mandatory.
func formatInvoices(invoices []billing.Invoice, allowed map[string]bool) []InvoiceView {
	out := []InvoiceView{}
	for _, inv := range invoices {
		if !allowed[inv.SubscriptionID] {
			continue
		}
		out = append(out, InvoiceView{
			ID:             inv.ID,
			SubscriptionID: inv.SubscriptionID,
			Total:          inv.Total,
			Attempted:      inv.Attempted,
			ChargeID:       inv.ChargeID,
			Currency:       inv.Currency,
			PeriodStart:    timefmt.DateTime(inv.PeriodStart),
			PeriodEnd:      timefmt.DateTime(inv.PeriodEnd),
			Metadata:       inv.Metadata,
		})
	}
	return out
}

// formatCharges flattens payment intents into their charges, preserving
// intent order and nested charge order. Disputed charges get the full
// dispute object resolved from the provider.
func (s *AccountViewService) formatCharges(ctx context.Context, intents []billing.PaymentIntent) ([]ChargeView, error) {
	const op = "AccountViewService.formatCharges"

	out := []ChargeView{}
	for _, pi := range intents {
		for _, c := range pi.Charges {
			view := ChargeView{
				ID:             c.ID,
				Amount:         c.Amount,
				AmountRefunded: c.AmountRefunded,
				Captured:       c.Captured,
				Paid:           c.Paid,
				Status:         c.Status,
				Currency:       c.Currency,
				FailureCode:    c.FailureCode,
				FailureMessage: c.FailureMessage,
				Created:        timefmt.DateTime(c.Created),
			}
			if c.DisputeID != "" {
				dispute, err := s.provider.GetDispute(ctx, c.DisputeID)
				if err != nil {
					return nil, remoteError(op, err, fmt.Sprintf("could not resolve dispute %s", c.DisputeID))
				}
				view.Dispute = dispute
			}
			out = append(out, view)
		}
	}
	return out, nil
}

// formatPlans renders the plan catalogue.
func formatPlans(plans []billing.Plan) []PlanView {
	out := []PlanView{}
	for _, p := range plans {
		out = append(out, PlanView{
			ID:       p.ID,
			Nickname: p.Nickname,
			Price:    p.Amount,
			Interval: p.Interval,
			Currency: p.Currency,
			Product:  p.Product,
		})
	}
	return out
}

// remoteError maps a provider error to a domain error: provider 404s keep
// their not-found meaning, everything else is an unavailable upstream.
func remoteError(op string, err error, message string) error {
	if errors.Is(err, billing.ErrNotFound) {
		return domain.WrapError(err, domain.ENOTFOUND, op, message)
	}
	return domain.Unavailable(err, op, message)
}
