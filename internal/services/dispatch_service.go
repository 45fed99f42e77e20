package services

import (
	"context"
	"errors"
	"fmt"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"
	"delivery-dispatch/internal/push"
)

var (
	// ErrCourierLoad возвращается при отказе чтения курьеров из хранилища
	ErrCourierLoad = errors.New("failed to fetch drivers")
	// ErrInternal возвращается при неожиданном сбое внутри рассылки
	ErrInternal = errors.New("internal dispatch error")
)

// CourierSource отдает снимок курьеров, доступных для уведомления
type CourierSource interface {
	GetDispatchableCouriers(ctx context.Context) ([]*models.Courier, error)
}

// DispatchGuard решает, нужно ли выполнять рассылку для заказа повторно
type DispatchGuard interface {
	MarkDispatched(ctx context.Context, orderID string) bool
}

// DispatchService оркестрирует рассылку уведомлений о новом заказе:
// загружает снимок доступных курьеров, отбирает ближайших к ресторану,
// строит push-сообщения и отправляет их пачками через шлюз.
//
// Рассылка изолирована от создания заказа: Dispatch всегда возвращает
// корректный результат, сбой внутри никогда не выходит паникой наружу.
// Поле Err заполняется только при отказе чтения курьеров или внутреннем
// сбое; частичные отказы шлюза лишь уменьшают счетчик notified.
type DispatchService struct {
	couriers CourierSource
	sender   push.Sender
	guard    DispatchGuard
	config   *config.DispatchConfig
	log      *logger.Logger
}

// NewDispatchService создает новый сервис рассылки уведомлений
func NewDispatchService(couriers CourierSource, sender push.Sender, guard DispatchGuard, cfg *config.DispatchConfig, log *logger.Logger) *DispatchService {
	return &DispatchService{
		couriers: couriers,
		sender:   sender,
		guard:    guard,
		config:   cfg,
		log:      log,
	}
}

// Dispatch выполняет одну рассылку для нового заказа
func (s *DispatchService) Dispatch(ctx context.Context, req *models.DispatchRequest) (result *models.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("order_id", req.OrderID).
				WithField("panic", r).
				Error("Dispatch panicked")
			result = &models.DispatchResult{Message: "Internal server error", Err: ErrInternal}
		}
	}()

	// Защита от повторной рассылки по тому же заказу
	if s.guard != nil && !s.guard.MarkDispatched(ctx, req.OrderID) {
		return &models.DispatchResult{Message: "Dispatch already performed for this order"}
	}

	couriers, err := s.couriers.GetDispatchableCouriers(ctx)
	if err != nil {
		s.log.WithError(err).WithField("order_id", req.OrderID).Error("Failed to load dispatchable couriers")
		return &models.DispatchResult{Err: fmt.Errorf("%w: %v", ErrCourierLoad, err)}
	}

	totalOnline := len(couriers)
	if totalOnline == 0 {
		s.log.WithField("order_id", req.OrderID).Info("No online drivers available for dispatch")
		return &models.DispatchResult{Message: "No online drivers available"}
	}

	restaurant := geo.NewPoint(req.RestaurantLat, req.RestaurantLng)
	eligible := geo.FilterNearby(restaurant, couriers, s.config.RadiusKm)

	noLocation := 0
	for _, c := range eligible {
		if geo.NewPoint(c.CurrentLat, c.CurrentLng) == nil {
			noLocation++
		}
	}

	if len(eligible) == 0 {
		s.log.WithField("order_id", req.OrderID).
			WithField("total_online", totalOnline).
			Info("No eligible couriers nearby")
		return &models.DispatchResult{
			TotalOnline: totalOnline,
			Message:     "No drivers with push tokens nearby",
		}
	}

	messages := s.buildMessages(req, eligible)
	sent := s.sender.Dispatch(ctx, messages)

	s.log.WithFields(map[string]interface{}{
		"order_id":     req.OrderID,
		"total_online": totalOnline,
		"eligible":     len(eligible),
		"no_location":  noLocation,
		"notified":     sent,
	}).Info("Order dispatch completed")

	return &models.DispatchResult{
		Notified:    sent,
		TotalOnline: totalOnline,
		Eligible:    len(eligible),
		NoLocation:  noLocation,
		Message:     "Notifications sent",
	}
}

// buildMessages строит по одному push-сообщению на каждого курьера
func (s *DispatchService) buildMessages(req *models.DispatchRequest, couriers []*models.Courier) []models.PushMessage {
	name := req.RestaurantName
	if name == "" {
		name = "a nearby restaurant"
	}

	var total float64
	if req.Total != nil {
		total = *req.Total
	}

	messages := make([]models.PushMessage, 0, len(couriers))
	for _, c := range couriers {
		if c.PushToken == nil || *c.PushToken == "" {
			continue
		}
		messages = append(messages, models.PushMessage{
			To:       *c.PushToken,
			Sound:    "default",
			Title:    "New order available",
			Body:     fmt.Sprintf("Order from %s for $%.2f. Open the app to accept it.", name, total),
			Priority: "high",
			Data: models.PushData{
				OrderID: req.OrderID,
				Type:    "new_order",
			},
			ChannelID: "orders",
		})
	}
	return messages
}
