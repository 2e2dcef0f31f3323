// Package api holds the JSON handlers for the admin billing endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/copperline/billingdesk/internal/domain"
	"github.com/copperline/billingdesk/internal/handler"
	"github.com/copperline/billingdesk/internal/router"
	"github.com/copperline/billingdesk/internal/service"
)

// BillingHandler exposes the account billing view and the subscription and
// refund mutations as JSON endpoints.
type BillingHandler struct {
	views         *service.AccountViewService
	subscriptions *service.SubscriptionService
	refunds       *service.RefundService
	validate      *validator.Validate
}

// NewBillingHandler creates the billing API handler.
func NewBillingHandler(views *service.AccountViewService, subscriptions *service.SubscriptionService, refunds *service.RefundService) *BillingHandler {
	return &BillingHandler{
		views:         views,
		subscriptions: subscriptions,
		refunds:       refunds,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts the billing routes.
func (h *BillingHandler) Register(r *router.Router) {
	r.Get("/api/accounts/{accountID}/billing", h.GetAccountBilling)
	r.Post("/api/accounts/{accountID}/subscriptions", h.CreateSubscription)
	r.Put("/api/accounts/{accountID}/subscriptions/{subscriptionID}", h.UpdateSubscription)
	r.Post("/api/accounts/{accountID}/subscriptions/{subscriptionID}/cancel", h.CancelSubscription)
	r.Post("/api/accounts/{accountID}/subscriptions/{subscriptionID}/resume", h.ResumeSubscription)
	r.Post("/api/charges/{chargeID}/refund", h.RefundCharge)
}

// GetAccountBilling handles GET /api/accounts/{accountID}/billing.
//
// Query parameters:
//   - subscription_id: narrow the view to one local subscription row
//   - brief: "true" skips cards, invoices, charges and plans
func (h *BillingHandler) GetAccountBilling(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var subscriptionID *int64
	if raw := r.URL.Query().Get("subscription_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			handler.ErrorResponse(w, r, domain.Invalid("billing.view", "subscription_id must be an integer"))
			return
		}
		subscriptionID = &id
	}

	brief := r.URL.Query().Get("brief") == "true"

	view, err := h.views.GetAccountView(r.Context(), accountID, subscriptionID, brief)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, view)
}

type createSubscriptionRequest struct {
	Product string `json:"product"`
	Plan    string `json:"plan" validate:"required"`
}

// CreateSubscription handles POST /api/accounts/{accountID}/subscriptions.
func (h *BillingHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req createSubscriptionRequest
	if err := h.decode(r, "subscription.create", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sub, err := h.subscriptions.CreateSubscription(r.Context(), accountID, req.Product, req.Plan)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusCreated, map[string]any{"subscription": sub})
}

type updateSubscriptionRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// UpdateSubscription handles
// PUT /api/accounts/{accountID}/subscriptions/{subscriptionID}.
func (h *BillingHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	accountID, subscriptionID, err := subscriptionPath(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateSubscriptionRequest
	if err := h.decode(r, "subscription.update", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sub, err := h.subscriptions.UpdateSubscription(r.Context(), accountID, subscriptionID, req.Plan)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

type cancelSubscriptionRequest struct {
	// Now requests immediate cancellation instead of cancel-at-period-end.
	Now bool `json:"now"`
}

// CancelSubscription handles
// POST /api/accounts/{accountID}/subscriptions/{subscriptionID}/cancel.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	accountID, subscriptionID, err := subscriptionPath(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	// The body is optional; absence means a graceful cancellation.
	var req cancelSubscriptionRequest
	if err := h.decode(r, "subscription.cancel", &req); err != nil && !errors.Is(err, io.EOF) {
		handler.ErrorResponse(w, r, err)
		return
	}

	sub, err := h.subscriptions.CancelSubscription(r.Context(), accountID, subscriptionID, req.Now)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

// ResumeSubscription handles
// POST /api/accounts/{accountID}/subscriptions/{subscriptionID}/resume.
func (h *BillingHandler) ResumeSubscription(w http.ResponseWriter, r *http.Request) {
	accountID, subscriptionID, err := subscriptionPath(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sub, err := h.subscriptions.ResumeSubscription(r.Context(), accountID, subscriptionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

type refundChargeRequest struct {
	// Amount in the smallest currency unit; zero refunds the full charge.
	Amount int64 `json:"amount" validate:"gte=0"`

	// Notes attaches free-form context to the refund.
	Notes string `json:"notes"`
}

// RefundCharge handles POST /api/charges/{chargeID}/refund.
func (h *BillingHandler) RefundCharge(w http.ResponseWriter, r *http.Request) {
	chargeID := r.PathValue("chargeID")
	if chargeID == "" {
		handler.ErrorResponse(w, r, domain.Invalid("refund.create", "charge id is required"))
		return
	}

	// The body is optional; absence means a full refund with no note.
	var req refundChargeRequest
	if err := h.decode(r, "refund.create", &req); err != nil && !errors.Is(err, io.EOF) {
		handler.ErrorResponse(w, r, err)
		return
	}

	refund, err := h.refunds.RefundCharge(r.Context(), chargeID, req.Amount, req.Notes)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, map[string]any{"refund": refund})
}

// decode parses and validates a JSON request body. An empty body returns
// io.EOF so callers can decide whether the body was required.
func (h *BillingHandler) decode(r *http.Request, op string, v any) error {
	if r.Body == nil {
		return io.EOF
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return domain.Invalid(op, "invalid JSON body")
	}

	if err := h.validate.Struct(v); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make(map[string]string, len(invalid))
			for _, fe := range invalid {
				fields[fe.Field()] = "failed " + fe.Tag() + " validation"
			}
			return &domain.ValidationError{Op: op, Fields: fields}
		}
		return domain.Invalid(op, "invalid request body")
	}

	return nil
}

// pathID parses an integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("billing.path", name+" must be a positive integer")
	}
	return id, nil
}

// subscriptionPath parses the account and subscription path values.
func subscriptionPath(r *http.Request) (int64, int64, error) {
	accountID, err := pathID(r, "accountID")
	if err != nil {
		return 0, 0, err
	}
	subscriptionID, err := pathID(r, "subscriptionID")
	if err != nil {
		return 0, 0, err
	}
	return accountID, subscriptionID, nil
}
