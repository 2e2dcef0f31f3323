package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/charge"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/dispute"
	"github.com/stripe/stripe-go/v76/invoice"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/plan"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/subscription"
)

// StripeProvider implements Provider using the Stripe Go SDK.
type StripeProvider struct {
	config StripeConfig
}

// Compile-time check to ensure StripeProvider implements Provider.
var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a new Stripe billing provider.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	stripe.Key = config.APIKey

	return &StripeProvider{config: config}, nil
}

// GetSubscription retrieves a subscription snapshot by provider id.
func (s *StripeProvider) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty subscription id", ErrInvalidParams)
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return subscriptionFromStripe(sub), nil
}

// ListPlans returns up to limit plans from the catalogue.
func (s *StripeProvider) ListPlans(ctx context.Context, limit int64) ([]Plan, error) {
	params := &stripe.PlanListParams{}
	params.Context = ctx
	if limit > 0 {
		params.Limit = stripe.Int64(limit)
	}

	plans := []Plan{}
	iter := plan.List(params)
	for iter.Next() {
		plans = append(plans, planFromStripe(iter.Plan()))
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeError(err)
	}

	return plans, nil
}

// ListPaymentMethods returns the customer's card payment methods.
func (s *StripeProvider) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String("card"),
	}
	params.Context = ctx

	methods := []PaymentMethod{}
	iter := paymentmethod.List(params)
	for iter.Next() {
		pm := iter.PaymentMethod()

		method := PaymentMethod{ID: pm.ID}
		if pm.BillingDetails != nil {
			method.Name = pm.BillingDetails.Name
		}
		if pm.Card != nil {
			method.Brand = string(pm.Card.Brand)
			method.Last4 = pm.Card.Last4
			method.Country = pm.Card.Country
			method.ExpMonth = int64(pm.Card.ExpMonth)
			method.ExpYear = int64(pm.Card.ExpYear)
		}
		methods = append(methods, method)
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeError(err)
	}

	return methods, nil
}

// GetDefaultPaymentMethodID returns the customer's default payment method id,
// or "" when none is configured.
func (s *StripeProvider) GetDefaultPaymentMethodID(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := customer.Get(customerID, params)
	if err != nil {
		return "", wrapStripeError(err)
	}

	if cust.InvoiceSettings == nil || cust.InvoiceSettings.DefaultPaymentMethod == nil {
		return "", nil
	}
	return cust.InvoiceSettings.DefaultPaymentMethod.ID, nil
}

// ListInvoices returns the customer's invoices.
func (s *StripeProvider) ListInvoices(ctx context.Context, customerID string) ([]Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	invoices := []Invoice{}
	iter := invoice.List(params)
	for iter.Next() {
		inv := iter.Invoice()

		out := Invoice{
			ID:          inv.ID,
			Total:       inv.Total,
			Attempted:   inv.Attempted,
			Currency:    string(inv.Currency),
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
			Metadata:    inv.Metadata,
		}
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		if inv.Charge != nil {
			out.ChargeID = inv.Charge.ID
		}
		invoices = append(invoices, out)
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeError(err)
	}

	return invoices, nil
}

// ListPaymentIntents returns the customer's payment intents with their
// charges nested in provider order.
func (s *StripeProvider) ListPaymentIntents(ctx context.Context, customerID string) ([]PaymentIntent, error) {
	params := &stripe.PaymentIntentListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	intents := []PaymentIntent{}
	iter := paymentintent.List(params)
	for iter.Next() {
		pi := iter.PaymentIntent()

		charges, err := s.listCharges(ctx, pi.ID)
		if err != nil {
			return nil, err
		}

		intents = append(intents, PaymentIntent{
			ID:       pi.ID,
			Amount:   pi.Amount,
			Currency: string(pi.Currency),
			Status:   string(pi.Status),
			Created:  pi.Created,
			Charges:  charges,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeError(err)
	}

	return intents, nil
}

// listCharges returns the charges made under one payment intent.
func (s *StripeProvider) listCharges(ctx context.Context, paymentIntentID string) ([]Charge, error) {
	params := &stripe.ChargeListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	charges := []Charge{}
	iter := charge.List(params)
	for iter.Next() {
		c := iter.Charge()

		out := Charge{
			ID:             c.ID,
			Amount:         c.Amount,
			AmountRefunded: c.AmountRefunded,
			Captured:       c.Captured,
			Paid:           c.Paid,
			Status:         string(c.Status),
			Currency:       string(c.Currency),
			FailureCode:    c.FailureCode,
			FailureMessage: c.FailureMessage,
			Created:        c.Created,
		}
		if c.Disputed {
			disputeID, err := s.resolveDisputeID(ctx, c.ID)
			if err != nil {
				return nil, err
			}
			out.DisputeID = disputeID
		}
		charges = append(charges, out)
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeError(err)
	}

	return charges, nil
}

// resolveDisputeID finds the dispute raised against a charge. The charge
// object only carries a disputed flag, so the id comes from a charge-scoped
// dispute listing.
func (s *StripeProvider) resolveDisputeID(ctx context.Context, chargeID string) (string, error) {
	params := &stripe.DisputeListParams{
		Charge: stripe.String(chargeID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := dispute.List(params)
	if iter.Next() {
		return iter.Dispute().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", wrapStripeError(err)
	}
	return "", nil
}

// GetDispute resolves a dispute id to the full dispute object.
func (s *StripeProvider) GetDispute(ctx context.Context, id string) (*Dispute, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty dispute id", ErrInvalidParams)
	}

	params := &stripe.DisputeParams{}
	params.Context = ctx

	d, err := dispute.Get(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &Dispute{
		ID:       d.ID,
		Amount:   d.Amount,
		Currency: string(d.Currency),
		Status:   string(d.Status),
		Reason:   string(d.Reason),
		Created:  d.Created,
	}, nil
}

// CreateRefund refunds a charge. A zero Amount refunds the full amount.
func (s *StripeProvider) CreateRefund(ctx context.Context, rp RefundParams) (*Refund, error) {
	if rp.ChargeID == "" {
		return nil, fmt.Errorf("%w: empty charge id", ErrInvalidParams)
	}

	params := &stripe.RefundParams{
		Charge: stripe.String(rp.ChargeID),
	}
	params.Context = ctx
	if rp.Amount > 0 {
		params.Amount = stripe.Int64(rp.Amount)
	}
	if rp.Notes != "" {
		params.AddMetadata("notes", rp.Notes)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	out := &Refund{
		ID:     r.ID,
		Amount: r.Amount,
		Status: string(r.Status),
	}
	if r.Charge != nil {
		out.ChargeID = r.Charge.ID
	}
	return out, nil
}

// CancelSubscription schedules cancellation at period end.
func (s *StripeProvider) CancelSubscription(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty subscription id", ErrInvalidParams)
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := subscription.Update(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return subscriptionFromStripe(sub), nil
}

// CancelSubscriptionNow cancels the subscription immediately.
func (s *StripeProvider) CancelSubscriptionNow(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty subscription id", ErrInvalidParams)
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := subscription.Cancel(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return subscriptionFromStripe(sub), nil
}

// CreateSubscription creates a subscription for the customer on the given
// price, tagged with the product grouping.
func (s *StripeProvider) CreateSubscription(ctx context.Context, cp CreateSubscriptionParams) (*Subscription, error) {
	if cp.CustomerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrInvalidParams)
	}
	if cp.PriceID == "" {
		return nil, fmt.Errorf("%w: empty price id", ErrInvalidParams)
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(cp.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(cp.PriceID)},
		},
	}
	params.Context = ctx
	if cp.ProductID != "" {
		params.AddMetadata("product", cp.ProductID)
	}

	sub, err := subscription.New(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return subscriptionFromStripe(sub), nil
}

// SwapSubscriptionPlan replaces the subscription's price with priceID.
// Prorations are created for the unused portion of the current period.
func (s *StripeProvider) SwapSubscriptionPlan(ctx context.Context, id, priceID string) (*Subscription, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty subscription id", ErrInvalidParams)
	}
	if priceID == "" {
		return nil, fmt.Errorf("%w: empty price id", ErrInvalidParams)
	}

	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx

	current, err := subscription.Get(id, getParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, fmt.Errorf("%w: subscription %s has no items", ErrInvalidParams, id)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx

	sub, err := subscription.Update(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return subscriptionFromStripe(sub), nil
}

// ResumeSubscription lifts a pending cancellation.
func (s *StripeProvider) ResumeSubscription(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty subscription id", ErrInvalidParams)
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	}
	params.Context = ctx

	sub, err := subscription.Update(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return subscriptionFromStripe(sub), nil
}

// subscriptionFromStripe maps an SDK subscription to the provider-agnostic
// snapshot the reconciliation layer consumes.
func subscriptionFromStripe(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CollectionMethod:   string(sub.CollectionMethod),
		BillingCycleAnchor: sub.BillingCycleAnchor,
		EndedAt:            sub.EndedAt,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		DaysUntilDue:       sub.DaysUntilDue,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         sub.CanceledAt,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Plan != nil {
		p := planFromStripe(sub.Items.Data[0].Plan)
		out.Plan = &p
	}
	return out
}

func planFromStripe(p *stripe.Plan) Plan {
	out := Plan{
		ID:       p.ID,
		Nickname: p.Nickname,
		Amount:   p.Amount,
		Interval: string(p.Interval),
		Currency: string(p.Currency),
	}
	if p.Product != nil {
		out.Product = p.Product.ID
	}
	return out
}

// wrapStripeError converts SDK errors into *StripeError. Provider 404s are
// additionally matched by errors.Is(err, ErrNotFound).
func wrapStripeError(err error) error {
	if err == nil {
		return nil
	}

	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return err
	}

	wrapped := &StripeError{
		Message:       sErr.Msg,
		Code:          string(sErr.Code),
		HTTPStatus:    sErr.HTTPStatusCode,
		RequestID:     sErr.RequestID,
		OriginalError: err,
	}
	if sErr.HTTPStatusCode == http.StatusNotFound {
		wrapped.OriginalError = fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return wrapped
}
