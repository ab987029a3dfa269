// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	BaseModel
	UserID      uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index"`
	Status      OrderStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	TotalAmount float64     `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	ShippingTo  JSONB       `json:"shipping_to,omitempty" gorm:"type:jsonb"`
	DeliveredAt *time.Time  `json:"delivered_at"`

	// Relationships
	User  User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID   `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity    int         `json:"quantity" gorm:"not null"`
	UnitPrice   float64     `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	Status      OrderStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	DeliveredAt *time.Time  `json:"delivered_at"`

	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// Fulfillment progresses pending -> processing -> shipped -> delivered,
// one step at a time. cancelled is terminal and reachable from any
// non-terminal status.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderStatusCancelled
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether target is reachable from current in a
// single move: the next forward status, or cancelled from any
// non-terminal status. No skips, no backward moves.
func CanTransition(current, target OrderStatus) bool {
	if target == OrderStatusCancelled {
		return !current.IsTerminal()
	}
	from, ok := orderStatusRank[current]
	to, ok2 := orderStatusRank[target]
	return ok && ok2 && to == from+1
}

// DeriveOrderStatus computes the overall order status from its item
// statuses. The overall status is never stored independently: it is
// the least-advanced status among non-cancelled items, or cancelled
// once every item is cancelled.
func DeriveOrderStatus(items []OrderItem) OrderStatus {
	if len(items) == 0 {
		return OrderStatusPending
	}

	derived := OrderStatusCancelled
	rank := -1
	for _, item := range items {
		if item.Status == OrderStatusCancelled {
			continue
		}
		r, ok := orderStatusRank[item.Status]
		if !ok {
			continue
		}
		if rank == -1 || r < rank {
			rank = r
			derived = item.Status
		}
	}
	return derived
}

// IsDeliveredEligibleForReview reports whether user may review products
// from this order: the order is delivered and belongs to the user.
func (o *Order) IsDeliveredEligibleForReview(userID uuid.UUID) bool {
	return o.Status == OrderStatusDelivered && o.UserID == userID
}

// ContainsProduct reports whether the order has a line item for the
// given product.
func (o *Order) ContainsProduct(productID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
