package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события
type EventType string

const (
	EventTypeOrderCreated         EventType = "order.created"
	EventTypeOrderStatusChanged   EventType = "order.status_changed"
	EventTypeCourierStatusChanged EventType = "courier.status_changed"
	EventTypeLocationUpdated      EventType = "location.updated"
)

// Event представляет базовое событие
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// OrderCreatedEvent представляет событие создания заказа.
// Несет ровно те метаданные ресторана, которые нужны рассылке уведомлений.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	RestaurantName string    `json:"restaurant_name"`
	RestaurantLat  *float64  `json:"restaurant_lat,omitempty"`
	RestaurantLng  *float64  `json:"restaurant_lng,omitempty"`
	Total          float64   `json:"total"`
}

// OrderStatusChangedEvent представляет событие изменения статуса заказа
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID   `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	CourierID *uuid.UUID  `json:"courier_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// CourierStatusChangedEvent представляет событие изменения доступности курьера
type CourierStatusChangedEvent struct {
	CourierID uuid.UUID `json:"courier_id"`
	WasOnline bool      `json:"was_online"`
	IsOnline  bool      `json:"is_online"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationUpdatedEvent представляет событие обновления местоположения курьера
type LocationUpdatedEvent struct {
	CourierID uuid.UUID `json:"courier_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}
