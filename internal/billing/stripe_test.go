package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

// stubStripeBackend points the SDK at a local server for the test's duration.
func stubStripeBackend(t *testing.T, handler http.Handler) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	stripe.Key = "sk_test_stub"
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:           stripe.String(ts.URL),
		LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
	})
	stripe.SetBackend(stripe.APIBackend, backend)
}

func TestStripeProvider_ListCharges_ResolvesDisputeID(t *testing.T) {
	var disputeQueries []string

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/charges", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pi_1", r.URL.Query().Get("payment_intent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"id": "ch_disputed", "object": "charge", "amount": 900, "status": "succeeded", "currency": "usd", "paid": true, "captured": true, "disputed": true, "created": 1704067200},
				{"id": "ch_clean", "object": "charge", "amount": 1000, "status": "succeeded", "currency": "usd", "paid": true, "captured": true, "disputed": false, "created": 1704067300}
			],
			"has_more": false
		}`))
	})
	mux.HandleFunc("/v1/disputes", func(w http.ResponseWriter, r *http.Request) {
		disputeQueries = append(disputeQueries, r.URL.Query().Get("charge"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"data": [{"id": "dp_1", "object": "dispute", "amount": 900, "status": "needs_response"}],
			"has_more": false
		}`))
	})
	stubStripeBackend(t, mux)

	provider := &StripeProvider{config: StripeConfig{APIKey: "sk_test_stub"}}

	charges, err := provider.listCharges(context.Background(), "pi_1")
	require.NoError(t, err)
	require.Len(t, charges, 2)

	assert.Equal(t, "ch_disputed", charges[0].ID)
	assert.Equal(t, "dp_1", charges[0].DisputeID)
	assert.Equal(t, "ch_clean", charges[1].ID)
	assert.Equal(t, "", charges[1].DisputeID)

	// Only the disputed charge triggers a dispute lookup.
	assert.Equal(t, []string{"ch_disputed"}, disputeQueries)
}

func TestStripeProvider_ListCharges_NoDisputeFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/charges", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"data": [{"id": "ch_1", "object": "charge", "amount": 500, "status": "succeeded", "currency": "usd", "paid": true, "captured": true, "disputed": true, "created": 1704067200}],
			"has_more": false
		}`))
	})
	mux.HandleFunc("/v1/disputes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object": "list", "data": [], "has_more": false}`))
	})
	stubStripeBackend(t, mux)

	provider := &StripeProvider{config: StripeConfig{APIKey: "sk_test_stub"}}

	charges, err := provider.listCharges(context.Background(), "pi_1")
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "", charges[0].DisputeID)
}
