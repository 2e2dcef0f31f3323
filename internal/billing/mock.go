package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates provider reads and mutations without calling the Stripe API.
type MockProvider struct {
	// GetSubscriptionFunc allows customizing subscription retrieval behavior
	GetSubscriptionFunc func(ctx context.Context, id string) (*Subscription, error)

	// ListPlansFunc allows customizing plan listing behavior
	ListPlansFunc func(ctx context.Context, limit int64) ([]Plan, error)

	// ListPaymentMethodsFunc allows customizing payment method listing behavior
	ListPaymentMethodsFunc func(ctx context.Context, customerID string) ([]PaymentMethod, error)

	// GetDefaultPaymentMethodIDFunc allows customizing default payment method lookup
	GetDefaultPaymentMethodIDFunc func(ctx context.Context, customerID string) (string, error)

	// ListInvoicesFunc allows customizing invoice listing behavior
	ListInvoicesFunc func(ctx context.Context, customerID string) ([]Invoice, error)

	// ListPaymentIntentsFunc allows customizing payment intent listing behavior
	ListPaymentIntentsFunc func(ctx context.Context, customerID string) ([]PaymentIntent, error)

	// GetDisputeFunc allows customizing dispute retrieval behavior
	GetDisputeFunc func(ctx context.Context, id string) (*Dispute, error)

	// CreateRefundFunc allows customizing refund behavior
	CreateRefundFunc func(ctx context.Context, params RefundParams) (*Refund, error)

	// CreateSubscriptionFunc allows customizing subscription creation behavior
	CreateSubscriptionFunc func(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)

	// SwapSubscriptionPlanFunc allows customizing plan swap behavior
	SwapSubscriptionPlanFunc func(ctx context.Context, id, priceID string) (*Subscription, error)

	// CancelSubscriptionFunc allows customizing graceful cancellation behavior
	CancelSubscriptionFunc func(ctx context.Context, id string) (*Subscription, error)

	// CancelSubscriptionNowFunc allows customizing immediate cancellation behavior
	CancelSubscriptionNowFunc func(ctx context.Context, id string) (*Subscription, error)

	// ResumeSubscriptionFunc allows customizing resume behavior
	ResumeSubscriptionFunc func(ctx context.Context, id string) (*Subscription, error)

	// Subscriptions stores subscriptions for retrieval and mutation
	Subscriptions map[string]*Subscription

	// Plans is the catalogue returned by ListPlans
	Plans []Plan

	// PaymentMethods stores payment methods per customer id
	PaymentMethods map[string][]PaymentMethod

	// DefaultPaymentMethods stores the default payment method id per customer
	DefaultPaymentMethods map[string]string

	// Invoices stores invoices per customer id
	Invoices map[string][]Invoice

	// PaymentIntents stores payment intents per customer id
	PaymentIntents map[string][]PaymentIntent

	// Disputes stores disputes for retrieval
	Disputes map[string]*Dispute

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// Compile-time check to ensure MockProvider implements Provider.
var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Subscriptions:         make(map[string]*Subscription),
		PaymentMethods:        make(map[string][]PaymentMethod),
		DefaultPaymentMethods: make(map[string]string),
		Invoices:              make(map[string][]Invoice),
		PaymentIntents:        make(map[string][]PaymentIntent),
		Disputes:              make(map[string]*Dispute),
		CallLog:               []string{},
	}
}

// GetSubscription retrieves a mock subscription.
func (m *MockProvider) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetSubscription(%s)", id))

	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, id)
	}

	sub, exists := m.Subscriptions[id]
	if !exists {
		return nil, ErrNotFound
	}
	return sub, nil
}

// ListPlans returns the mock plan catalogue.
func (m *MockProvider) ListPlans(ctx context.Context, limit int64) ([]Plan, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ListPlans(%d)", limit))

	if m.ListPlansFunc != nil {
		return m.ListPlansFunc(ctx, limit)
	}

	if limit > 0 && int64(len(m.Plans)) > limit {
		return m.Plans[:limit], nil
	}
	return m.Plans, nil
}

// ListPaymentMethods returns the customer's mock payment methods.
func (m *MockProvider) ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ListPaymentMethods(%s)", customerID))

	if m.ListPaymentMethodsFunc != nil {
		return m.ListPaymentMethodsFunc(ctx, customerID)
	}
	return m.PaymentMethods[customerID], nil
}

// GetDefaultPaymentMethodID returns the customer's mock default payment method id.
func (m *MockProvider) GetDefaultPaymentMethodID(ctx context.Context, customerID string) (string, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetDefaultPaymentMethodID(%s)", customerID))

	if m.GetDefaultPaymentMethodIDFunc != nil {
		return m.GetDefaultPaymentMethodIDFunc(ctx, customerID)
	}
	return m.DefaultPaymentMethods[customerID], nil
}

// ListInvoices returns the customer's mock invoices.
func (m *MockProvider) ListInvoices(ctx context.Context, customerID string) ([]Invoice, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ListInvoices(%s)", customerID))

	if m.ListInvoicesFunc != nil {
		return m.ListInvoicesFunc(ctx, customerID)
	}
	return m.Invoices[customerID], nil
}

// ListPaymentIntents returns the customer's mock payment intents.
func (m *MockProvider) ListPaymentIntents(ctx context.Context, customerID string) ([]PaymentIntent, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ListPaymentIntents(%s)", customerID))

	if m.ListPaymentIntentsFunc != nil {
		return m.ListPaymentIntentsFunc(ctx, customerID)
	}
	return m.PaymentIntents[customerID], nil
}

// GetDispute retrieves a mock dispute.
func (m *MockProvider) GetDispute(ctx context.Context, id string) (*Dispute, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetDispute(%s)", id))

	if m.GetDisputeFunc != nil {
		return m.GetDisputeFunc(ctx, id)
	}

	d, exists := m.Disputes[id]
	if !exists {
		return nil, ErrNotFound
	}
	return d, nil
}

// CreateRefund refunds a mock charge.
func (m *MockProvider) CreateRefund(ctx context.Context, params RefundParams) (*Refund, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateRefund(%s, %d)", params.ChargeID, params.Amount))

	if m.CreateRefundFunc != nil {
		return m.CreateRefundFunc(ctx, params)
	}

	return &Refund{
		ID:       "re_" + uuid.New().String()[:8],
		ChargeID: params.ChargeID,
		Amount:   params.Amount,
		Status:   "succeeded",
	}, nil
}

// CancelSubscription schedules cancellation of a mock subscription.
func (m *MockProvider) CancelSubscription(ctx context.Context, id string) (*Subscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelSubscription(%s)", id))

	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, id)
	}

	sub, exists := m.Subscriptions[id]
	if !exists {
		return nil, ErrNotFound
	}

	sub.CancelAtPeriodEnd = true
	return sub, nil
}

// CancelSubscriptionNow cancels a mock subscription immediately.
func (m *MockProvider) CancelSubscriptionNow(ctx context.Context, id string) (*Subscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelSubscriptionNow(%s)", id))

	if m.CancelSubscriptionNowFunc != nil {
		return m.CancelSubscriptionNowFunc(ctx, id)
	}

	sub, exists := m.Subscriptions[id]
	if !exists {
		return nil, ErrNotFound
	}

	sub.Status = "canceled"
	return sub, nil
}

// CreateSubscription creates a mock subscription.
func (m *MockProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateSubscription(%s, %s)", params.CustomerID, params.PriceID))

	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, params)
	}

	sub := &Subscription{
		ID:         "sub_" + uuid.New().String()[:8],
		CustomerID: params.CustomerID,
		Status:     "active",
		Plan:       &Plan{ID: params.PriceID, Product: params.ProductID},
	}

	m.Subscriptions[sub.ID] = sub
	return sub, nil
}

// SwapSubscriptionPlan swaps the plan of a mock subscription.
func (m *MockProvider) SwapSubscriptionPlan(ctx context.Context, id, priceID string) (*Subscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("SwapSubscriptionPlan(%s, %s)", id, priceID))

	if m.SwapSubscriptionPlanFunc != nil {
		return m.SwapSubscriptionPlanFunc(ctx, id, priceID)
	}

	sub, exists := m.Subscriptions[id]
	if !exists {
		return nil, ErrNotFound
	}

	sub.Plan = &Plan{ID: priceID}
	return sub, nil
}

// ResumeSubscription lifts a pending cancellation on a mock subscription.
func (m *MockProvider) ResumeSubscription(ctx context.Context, id string) (*Subscription, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ResumeSubscription(%s)", id))

	if m.ResumeSubscriptionFunc != nil {
		return m.ResumeSubscriptionFunc(ctx, id)
	}

	sub, exists := m.Subscriptions[id]
	if !exists {
		return nil, ErrNotFound
	}

	sub.CancelAtPeriodEnd = false
	return sub, nil
}
