// internal/models/order_test.go
package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to processing", OrderStatusPending, OrderStatusProcessing, true},
		{"processing to shipped", OrderStatusProcessing, OrderStatusShipped, true},
		{"shipped to delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"no skipping forward", OrderStatusPending, OrderStatusShipped, false},
		{"no skipping to delivered", OrderStatusPending, OrderStatusDelivered, false},
		{"no backward moves", OrderStatusShipped, OrderStatusProcessing, false},
		{"no backward from delivered", OrderStatusDelivered, OrderStatusShipped, false},
		{"no self transition", OrderStatusProcessing, OrderStatusProcessing, false},
		{"cancel from pending", OrderStatusPending, OrderStatusCancelled, true},
		{"cancel from processing", OrderStatusProcessing, OrderStatusCancelled, true},
		{"cancel from shipped", OrderStatusShipped, OrderStatusCancelled, true},
		{"no cancel after delivery", OrderStatusDelivered, OrderStatusCancelled, false},
		{"no double cancel", OrderStatusCancelled, OrderStatusCancelled, false},
		{"no leaving cancelled", OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, OrderStatus("refunded").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderStatusIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestDeriveOrderStatus(t *testing.T) {
	item := func(s OrderStatus) OrderItem {
		return OrderItem{Status: s}
	}

	cases := []struct {
		name     string
		items    []OrderItem
		expected OrderStatus
	}{
		{"empty order is pending", nil, OrderStatusPending},
		{"single item reflects its status", []OrderItem{item(OrderStatusShipped)}, OrderStatusShipped},
		{"least advanced item wins", []OrderItem{item(OrderStatusDelivered), item(OrderStatusProcessing)}, OrderStatusProcessing},
		{"cancelled items are ignored", []OrderItem{item(OrderStatusCancelled), item(OrderStatusShipped)}, OrderStatusShipped},
		{"all cancelled means cancelled", []OrderItem{item(OrderStatusCancelled), item(OrderStatusCancelled)}, OrderStatusCancelled},
		{"all delivered means delivered", []OrderItem{item(OrderStatusDelivered), item(OrderStatusDelivered)}, OrderStatusDelivered},
		{"pending drags the order back", []OrderItem{item(OrderStatusDelivered), item(OrderStatusPending), item(OrderStatusShipped)}, OrderStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeriveOrderStatus(tc.items))
		})
	}
}

func TestOrderContainsProduct(t *testing.T) {
	productID := uuid.New()
	order := Order{Items: []OrderItem{{ProductID: productID}, {ProductID: uuid.New()}}}

	assert.True(t, order.ContainsProduct(productID))
	assert.False(t, order.ContainsProduct(uuid.New()))
}

func TestIsDeliveredEligibleForReview(t *testing.T) {
	owner := uuid.New()

	delivered := Order{UserID: owner, Status: OrderStatusDelivered}
	assert.True(t, delivered.IsDeliveredEligibleForReview(owner))
	assert.False(t, delivered.IsDeliveredEligibleForReview(uuid.New()))

	shipped := Order{UserID: owner, Status: OrderStatusShipped}
	assert.False(t, shipped.IsDeliveredEligibleForReview(owner))
}
