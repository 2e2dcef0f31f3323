package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/billingdesk/internal/billing"
	"github.com/copperline/billingdesk/internal/domain"
	"github.com/copperline/billingdesk/internal/router"
	"github.com/copperline/billingdesk/internal/service"
)

// stubRepo implements domain.AccountRepository for handler tests.
type stubRepo struct {
	account     *domain.BillableAccount
	subs        []domain.LocalSubscription
	labelWrites map[int64]string
}

func (s *stubRepo) FindAccount(ctx context.Context, id int64) (*domain.BillableAccount, error) {
	if s.account == nil || s.account.ID != id {
		return nil, domain.NotFound("stubRepo.FindAccount", "account", fmt.Sprintf("%d", id))
	}
	return s.account, nil
}

func (s *stubRepo) FindSubscriptions(ctx context.Context, accountID int64, subscriptionID *int64) ([]domain.LocalSubscription, error) {
	out := []domain.LocalSubscription{}
	for _, sub := range s.subs {
		if sub.AccountID != accountID {
			continue
		}
		if subscriptionID != nil && sub.ID != *subscriptionID {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *stubRepo) UpdateSubscriptionPlanLabel(ctx context.Context, subscriptionID int64, label string) error {
	if s.labelWrites == nil {
		s.labelWrites = map[int64]string{}
	}
	s.labelWrites[subscriptionID] = label
	return nil
}

func strPtr(s string) *string { return &s }

func newTestServer(t *testing.T) (*stubRepo, *billing.MockProvider, http.Handler) {
	t.Helper()

	repo := &stubRepo{
		account: &domain.BillableAccount{
			ID:                 1,
			Email:              "ada@example.com",
			Name:               "Ada",
			CreatedAt:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ProviderCustomerID: strPtr("cus_1"),
		},
		subs: []domain.LocalSubscription{
			{
				ID:                     10,
				AccountID:              1,
				ProviderSubscriptionID: strPtr("sub_1"),
				PlanLabel:              "Pro",
				CreatedAt:              time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
				UpdatedAt:              time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
			},
		},
	}

	provider := billing.NewMockProvider()
	provider.Subscriptions["sub_1"] = &billing.Subscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		Status:           "active",
		CollectionMethod: billing.CollectionMethodChargeAutomatically,
		Plan:             &billing.Plan{ID: "price_1", Amount: 1000, Interval: "month", Currency: "usd"},
	}

	h := NewBillingHandler(
		service.NewAccountViewService(repo, provider),
		service.NewSubscriptionService(repo, provider),
		service.NewRefundService(provider),
	)

	r := router.New()
	h.Register(r)
	return repo, provider, r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetAccountBilling(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/accounts/1/billing", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Account struct {
			ID int64 `json:"id"`
		} `json:"account"`
		Subscriptions []map[string]any `json:"subscriptions"`
		Plans         []map[string]any `json:"plans"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))

	assert.Equal(t, int64(1), view.Account.ID)
	require.Len(t, view.Subscriptions, 1)
	assert.Equal(t, "price_1", view.Subscriptions[0]["provider_plan"])
	assert.Equal(t, true, view.Subscriptions[0]["charges_automatically"])
}

func TestGetAccountBilling_Brief(t *testing.T) {
	_, provider, h := newTestServer(t)
	provider.Plans = []billing.Plan{{ID: "price_1"}}

	rec := doJSON(t, h, http.MethodGet, "/api/accounts/1/billing?brief=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Plans []map[string]any `json:"plans"`
		Cards []map[string]any `json:"cards"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Empty(t, view.Plans)
	assert.Empty(t, view.Cards)
	assert.NotContains(t, provider.CallLog, "ListPlans(100)")
}

func TestGetAccountBilling_UnknownAccount(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/accounts/99/billing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.ENOTFOUND, body.Error.Code)
}

func TestGetAccountBilling_BadSubscriptionFilter(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/accounts/1/billing?subscription_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSubscription(t *testing.T) {
	_, provider, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/accounts/1/subscriptions", `{"product":"prod_1","plan":"price_2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Subscription struct {
			CustomerID string `json:"customer_id"`
		} `json:"subscription"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "cus_1", body.Subscription.CustomerID)
	assert.Contains(t, provider.CallLog, "CreateSubscription(cus_1, price_2)")
}

func TestCreateSubscription_MissingPlan(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/accounts/1/subscriptions", `{"product":"prod_1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, domain.EINVALID, body.Error.Code)
	assert.Contains(t, body.Error.Fields, "Plan")
}

func TestUpdateSubscription(t *testing.T) {
	repo, provider, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPut, "/api/accounts/1/subscriptions/10", `{"plan":"price_2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, provider.CallLog, "SwapSubscriptionPlan(sub_1, price_2)")
	assert.Equal(t, "price_2", repo.labelWrites[10])
}

func TestCancelSubscription_GracefulWithoutBody(t *testing.T) {
	_, provider, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/accounts/1/subscriptions/10/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, provider.CallLog, "CancelSubscription(sub_1)")
}

func TestCancelSubscription_Immediate(t *testing.T) {
	_, provider, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/accounts/1/subscriptions/10/cancel", `{"now":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, provider.CallLog, "CancelSubscriptionNow(sub_1)")
}

func TestResumeSubscription(t *testing.T) {
	_, provider, h := newTestServer(t)
	provider.Subscriptions["sub_1"].CancelAtPeriodEnd = true

	rec := doJSON(t, h, http.MethodPost, "/api/accounts/1/subscriptions/10/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, provider.CallLog, "ResumeSubscription(sub_1)")
}

func TestRefundCharge(t *testing.T) {
	_, provider, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/charges/ch_1/refund", `{"amount":500,"notes":"partial"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Refund struct {
			ChargeID string `json:"charge_id"`
			Amount   int64  `json:"amount"`
		} `json:"refund"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ch_1", body.Refund.ChargeID)
	assert.Equal(t, int64(500), body.Refund.Amount)
	assert.Contains(t, provider.CallLog, "CreateRefund(ch_1, 500)")
}

func TestRefundCharge_NegativeAmount(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/charges/ch_1/refund", `{"amount":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
