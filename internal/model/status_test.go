package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusRefunded, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		{OrderStatusRefunded, OrderStatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCancellable(t *testing.T) {
	assert.True(t, OrderStatusPending.Cancellable())
	assert.True(t, OrderStatusProcessing.Cancellable())
	assert.False(t, OrderStatusShipped.Cancellable())
	assert.False(t, OrderStatusDelivered.Cancellable())
	assert.False(t, OrderStatusCancelled.Cancellable())
	assert.False(t, OrderStatusRefunded.Cancellable())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, OrderStatusShipped.Valid())
	assert.False(t, OrderStatus("completed").Valid())
}
