package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{name: "pending to confirmed", from: OrderStatusPending, to: OrderStatusConfirmed, allowed: true},
		{name: "confirmed to preparing", from: OrderStatusConfirmed, to: OrderStatusPreparing, allowed: true},
		{name: "preparing to ready", from: OrderStatusPreparing, to: OrderStatusReady, allowed: true},
		{name: "ready to picked_up", from: OrderStatusReady, to: OrderStatusPickedUp, allowed: true},
		{name: "picked_up to delivered", from: OrderStatusPickedUp, to: OrderStatusDelivered, allowed: true},
		{name: "no skipping ahead", from: OrderStatusPending, to: OrderStatusReady, allowed: false},
		{name: "no going back", from: OrderStatusReady, to: OrderStatusPreparing, allowed: false},
		{name: "delivered is terminal", from: OrderStatusDelivered, to: OrderStatusPickedUp, allowed: false},
		{name: "cancelled is terminal", from: OrderStatusCancelled, to: OrderStatusPending, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCancellationReachability(t *testing.T) {
	// Отмена доступна из любого нетерминального статуса
	nonTerminal := []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusPickedUp,
	}
	for _, status := range nonTerminal {
		assert.True(t, status.CanTransitionTo(OrderStatusCancelled), "expected %s to allow cancellation", status)
	}

	// Доставленный заказ отменить нельзя
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusCancelled))
}

func TestOrderStatusValidity(t *testing.T) {
	for _, status := range []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusPickedUp, OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, status.IsValid())
	}

	assert.False(t, OrderStatus("shipped").IsValid())
	assert.False(t, OrderStatus("").IsValid())

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPickedUp.IsTerminal())
}

func ptr(v float64) *float64 { return &v }

func TestOrderValidate(t *testing.T) {
	valid := func() *Order {
		return &Order{
			Subtotal:    20,
			DeliveryFee: 5,
			Discount:    3,
			Total:       22,
			DeliveryLat: ptr(-12.0464),
			DeliveryLng: ptr(-77.0428),
		}
	}

	require.NoError(t, valid().Validate())

	t.Run("broken total invariant", func(t *testing.T) {
		order := valid()
		order.Total = 25
		assert.Error(t, order.Validate())
	})

	t.Run("negative monetary field", func(t *testing.T) {
		order := valid()
		order.Discount = -1
		order.Total = order.Subtotal + order.DeliveryFee - order.Discount
		assert.Error(t, order.Validate())
	})

	t.Run("latitude out of range", func(t *testing.T) {
		order := valid()
		order.DeliveryLat = ptr(95)
		assert.Error(t, order.Validate())
	})

	t.Run("longitude out of range", func(t *testing.T) {
		order := valid()
		order.DeliveryLng = ptr(-190)
		assert.Error(t, order.Validate())
	})

	t.Run("missing coordinates are allowed", func(t *testing.T) {
		order := valid()
		order.DeliveryLat = nil
		order.DeliveryLng = nil
		assert.NoError(t, order.Validate())
	})
}
