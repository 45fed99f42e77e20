package services

import (
	"math"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/logger"
)

// PricingService рассчитывает стоимость доставки
type PricingService struct {
	config *config.PricingConfig
	log    *logger.Logger
}

// NewPricingService создает новый сервис расчета стоимости доставки
func NewPricingService(cfg *config.PricingConfig, log *logger.Logger) *PricingService {
	return &PricingService{
		config: cfg,
		log:    log,
	}
}

// CalculateDeliveryFee рассчитывает стоимость доставки от ресторана до адреса
// заказа: базовая ставка плюс километраж, в пределах [MinPrice, MaxPrice].
// Если координаты с любой стороны неизвестны, возвращается минимальная ставка.
func (s *PricingService) CalculateDeliveryFee(restaurant, delivery *geo.Point) float64 {
	if restaurant == nil || delivery == nil {
		return s.config.MinPrice
	}

	distance := geo.Distance(*restaurant, *delivery)
	fee := s.config.BasePrice + distance*s.config.PricePerKm

	if fee < s.config.MinPrice {
		fee = s.config.MinPrice
	}
	if fee > s.config.MaxPrice {
		fee = s.config.MaxPrice
	}

	fee = math.Round(fee*100) / 100

	s.log.WithField("distance_km", math.Round(distance*100)/100).
		WithField("fee", fee).
		Debug("Delivery fee calculated")

	return fee
}
