package billing

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestWrapStripeError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, wrapStripeError(nil))
	})

	t.Run("non-stripe error passes through", func(t *testing.T) {
		plain := errors.New("connection reset")
		assert.Equal(t, plain, wrapStripeError(plain))
	})

	t.Run("stripe error is wrapped", func(t *testing.T) {
		sErr := &stripe.Error{
			Msg:            "No such charge: ch_nope",
			Code:           stripe.ErrorCode("resource_missing"),
			HTTPStatusCode: http.StatusNotFound,
			RequestID:      "req_123",
		}

		err := wrapStripeError(sErr)

		var wrapped *StripeError
		require.ErrorAs(t, err, &wrapped)
		assert.Equal(t, "No such charge: ch_nope", wrapped.Message)
		assert.Equal(t, "resource_missing", wrapped.Code)
		assert.Equal(t, http.StatusNotFound, wrapped.HTTPStatus)
		assert.Equal(t, "req_123", wrapped.RequestID)

		// Provider 404s keep their not-found meaning through the wrap.
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non-404 does not match ErrNotFound", func(t *testing.T) {
		sErr := &stripe.Error{
			Msg:            "Rate limited",
			Code:           stripe.ErrorCode("rate_limit"),
			HTTPStatusCode: http.StatusTooManyRequests,
		}

		err := wrapStripeError(sErr)
		assert.NotErrorIs(t, err, ErrNotFound)

		var wrapped *StripeError
		require.ErrorAs(t, err, &wrapped)
		assert.True(t, wrapped.IsTemporary())
	})
}
