package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions описывает допустимые переходы между статусами заказа.
// cancelled достижим из любого нетерминального статуса, delivered и cancelled терминальны.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusPickedUp, OrderStatusCancelled},
	OrderStatusPickedUp:  {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// IsValid проверяет, что статус известен системе
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal проверяет, что статус терминальный
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo проверяет допустимость перехода в новый статус
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order представляет заказ в системе
type Order struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	CustomerID    uuid.UUID   `json:"customer_id" db:"customer_id"`
	RestaurantID  uuid.UUID   `json:"restaurant_id" db:"restaurant_id"`
	Status        OrderStatus `json:"status" db:"status"`
	Subtotal      float64     `json:"subtotal" db:"subtotal"`
	DeliveryFee   float64     `json:"delivery_fee" db:"delivery_fee"`
	Discount      float64     `json:"discount" db:"discount"`
	Total         float64     `json:"total" db:"total"`
	DeliveryLat   *float64    `json:"delivery_lat,omitempty" db:"delivery_lat"`
	DeliveryLng   *float64    `json:"delivery_lng,omitempty" db:"delivery_lng"`
	PaymentMethod string      `json:"payment_method" db:"payment_method"`
	PaymentStatus string      `json:"payment_status" db:"payment_status"`
	CourierID     *uuid.UUID  `json:"courier_id,omitempty" db:"courier_id"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
	DeliveredAt   *time.Time  `json:"delivered_at,omitempty" db:"delivered_at"`
}

// CreateOrderRequest представляет запрос на создание заказа
type CreateOrderRequest struct {
	CustomerID    uuid.UUID `json:"customer_id"`
	RestaurantID  uuid.UUID `json:"restaurant_id"`
	Subtotal      float64   `json:"subtotal"`
	Discount      float64   `json:"discount"`
	DeliveryLat   *float64  `json:"delivery_lat,omitempty"`
	DeliveryLng   *float64  `json:"delivery_lng,omitempty"`
	PaymentMethod string    `json:"payment_method"`
}

// UpdateOrderStatusRequest представляет запрос на обновление статуса заказа
type UpdateOrderStatusRequest struct {
	Status    OrderStatus `json:"status"`
	CourierID *uuid.UUID  `json:"courier_id,omitempty"`
}

// Validate проверяет денежный инвариант и диапазоны координат заказа
func (o *Order) Validate() error {
	if o.Subtotal < 0 || o.DeliveryFee < 0 || o.Discount < 0 || o.Total < 0 {
		return fmt.Errorf("monetary fields cannot be negative")
	}
	if o.Total != o.Subtotal+o.DeliveryFee-o.Discount {
		return fmt.Errorf("total must equal subtotal + delivery_fee - discount")
	}
	if o.DeliveryLat != nil && (*o.DeliveryLat < -90 || *o.DeliveryLat > 90) {
		return fmt.Errorf("delivery latitude out of range")
	}
	if o.DeliveryLng != nil && (*o.DeliveryLng < -180 || *o.DeliveryLng > 180) {
		return fmt.Errorf("delivery longitude out of range")
	}
	return nil
}
