package models

import (
	"time"

	"github.com/google/uuid"
)

// Courier представляет запись о доступности курьера.
// Координаты и push-токен могут отсутствовать: курьер мог не сообщить
// местоположение или не зарегистрировать устройство.
type Courier struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Phone      string    `json:"phone" db:"phone"`
	IsOnline   bool      `json:"is_online" db:"is_online"`
	CurrentLat *float64  `json:"current_lat,omitempty" db:"current_lat"`
	CurrentLng *float64  `json:"current_lng,omitempty" db:"current_lng"`
	PushToken  *string   `json:"push_token,omitempty" db:"push_token"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
}

// Dispatchable проверяет, что курьеру можно отправить уведомление:
// он онлайн и у него зарегистрирован push-токен
func (c *Courier) Dispatchable() bool {
	return c.IsOnline && c.PushToken != nil && *c.PushToken != ""
}

// CreateCourierRequest представляет запрос на регистрацию курьера
type CreateCourierRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateCourierStatusRequest представляет запрос на обновление доступности курьера
type UpdateCourierStatusRequest struct {
	IsOnline   bool     `json:"is_online"`
	CurrentLat *float64 `json:"current_lat,omitempty"`
	CurrentLng *float64 `json:"current_lng,omitempty"`
	PushToken  *string  `json:"push_token,omitempty"`
}
