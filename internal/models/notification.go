package models

// PushData представляет структурированную нагрузку push-уведомления
type PushData struct {
	OrderID string `json:"orderId"`
	Type    string `json:"type"`
}

// PushMessage представляет одно push-уведомление в формате шлюза.
// Живет только в рамках одной рассылки, нигде не сохраняется.
type PushMessage struct {
	To        string   `json:"to"`
	Sound     string   `json:"sound"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Data      PushData `json:"data"`
	Priority  string   `json:"priority"`
	ChannelID string   `json:"channelId"`
}

// DispatchRequest представляет входные данные одной рассылки
type DispatchRequest struct {
	OrderID        string   `json:"orderId"`
	RestaurantName string   `json:"restaurantName,omitempty"`
	RestaurantLat  *float64 `json:"restaurantLat,omitempty"`
	RestaurantLng  *float64 `json:"restaurantLng,omitempty"`
	Total          *float64 `json:"total,omitempty"`
}

// DispatchResult представляет итог одной рассылки.
// Err заполняется только при отказе чтения курьеров или внутреннем сбое,
// частичные отказы шлюза в него не попадают.
type DispatchResult struct {
	Notified    int    `json:"notified"`
	TotalOnline int    `json:"total_online"`
	Eligible    int    `json:"eligible"`
	NoLocation  int    `json:"no_location"`
	Message     string `json:"message"`
	Err         error  `json:"-"`
}
