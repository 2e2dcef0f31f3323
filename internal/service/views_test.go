package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/billingdesk/internal/billing"
)

func TestSubscriptionViewJSON_LocalOnlyOmitsRemoteFields(t *testing.T) {
	view := localOnlyView(testLocalSub(10, nil))

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "plan")
	assert.Contains(t, fields, "created_at")
	assert.NotContains(t, fields, "plan_amount")
	assert.NotContains(t, fields, "active")
	assert.NotContains(t, fields, "charges_automatically")
}

func TestSubscriptionViewJSON_MergedRendersNullsExplicitly(t *testing.T) {
	// Remote snapshot with no optional timestamps set.
	remote := &billing.Subscription{ID: "sub_1", Status: "active"}
	view := mergeSubscription(testLocalSub(10, strPtr("sub_1")), remote, fixedNow())

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	// Absent provider values are explicit nulls, never dropped keys.
	require.Contains(t, fields, "ended_at")
	assert.Nil(t, fields["ended_at"])
	require.Contains(t, fields, "current_period_start")
	assert.Nil(t, fields["current_period_start"])
	require.Contains(t, fields, "created_at")
	assert.Nil(t, fields["created_at"])

	assert.Contains(t, fields, "plan_amount")
	assert.Contains(t, fields, "charges_automatically")
	assert.Contains(t, fields, "cancel_at_period_end")
}
