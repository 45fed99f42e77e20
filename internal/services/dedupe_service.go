package services

import (
	"context"
	"fmt"
	"time"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/redis"
)

// DedupeService защищает рассылку от повторного запуска для одного заказа.
// Метка "рассылка уже была" живет в Redis с ограниченным TTL: повтор
// создания заказа (ретрай клиента, повторная доставка события) не приводит
// ко второй волне уведомлений.
type DedupeService struct {
	redis  *redis.Client
	config *config.DispatchConfig
	log    *logger.Logger
}

// NewDedupeService создает новый сервис дедупликации рассылок
func NewDedupeService(redis *redis.Client, cfg *config.DispatchConfig, log *logger.Logger) *DedupeService {
	return &DedupeService{
		redis:  redis,
		config: cfg,
		log:    log,
	}
}

// MarkDispatched атомарно помечает заказ как обработанный.
// Возвращает true, если метку поставил этот вызов и рассылку нужно выполнить.
// При недоступности Redis пропускает рассылку (fail-open): уведомления -
// вспомогательный канал и не должны зависеть от кеша.
func (s *DedupeService) MarkDispatched(ctx context.Context, orderID string) bool {
	key := fmt.Sprintf("dispatch:sent:%s", orderID)
	ttl := time.Duration(s.config.DedupeTTL) * time.Second

	acquired, err := s.redis.SetNX(ctx, key, 1, ttl)
	if err != nil {
		s.log.WithError(err).WithField("order_id", orderID).Error("Dispatch dedupe check failed, proceeding anyway")
		return true
	}

	if !acquired {
		s.log.WithField("order_id", orderID).Warn("Dispatch already performed for order, skipping")
	}

	return acquired
}

// ClearDispatched снимает метку рассылки для заказа
func (s *DedupeService) ClearDispatched(ctx context.Context, orderID string) error {
	key := fmt.Sprintf("dispatch:sent:%s", orderID)
	return s.redis.Delete(ctx, key)
}
