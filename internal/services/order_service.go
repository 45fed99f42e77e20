package services

import (
	"database/sql"
	"fmt"
	"time"

	"delivery-dispatch/internal/database"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"

	"github.com/google/uuid"
)

// OrderService представляет сервис для работы с заказами
type OrderService struct {
	db      *database.DB
	pricing *PricingService
	log     *logger.Logger
}

// NewOrderService создает новый экземпляр сервиса заказов
func NewOrderService(db *database.DB, pricing *PricingService, log *logger.Logger) *OrderService {
	return &OrderService{
		db:      db,
		pricing: pricing,
		log:     log,
	}
}

// CreateOrder создает новый заказ в статусе pending.
// Стоимость доставки считается по расстоянию от ресторана до адреса заказа,
// итоговая сумма подчиняется инварианту total = subtotal + delivery_fee - discount.
func (s *OrderService) CreateOrder(req *models.CreateOrderRequest, restaurantLat, restaurantLng *float64) (*models.Order, error) {
	restaurant := geo.NewPoint(restaurantLat, restaurantLng)
	delivery := geo.NewPoint(req.DeliveryLat, req.DeliveryLng)
	deliveryFee := s.pricing.CalculateDeliveryFee(restaurant, delivery)

	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    req.CustomerID,
		RestaurantID:  req.RestaurantID,
		Status:        models.OrderStatusPending,
		Subtotal:      req.Subtotal,
		DeliveryFee:   deliveryFee,
		Discount:      req.Discount,
		Total:         req.Subtotal + deliveryFee - req.Discount,
		DeliveryLat:   req.DeliveryLat,
		DeliveryLng:   req.DeliveryLng,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: "pending",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}

	query := `
		INSERT INTO orders (id, customer_id, restaurant_id, status, subtotal, delivery_fee,
		                    discount, total, delivery_lat, delivery_lng, payment_method,
		                    payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.Exec(query, order.ID, order.CustomerID, order.RestaurantID, order.Status,
		order.Subtotal, order.DeliveryFee, order.Discount, order.Total,
		order.DeliveryLat, order.DeliveryLng, order.PaymentMethod, order.PaymentStatus,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total,
	}).Info("Order created successfully")

	return order, nil
}

// GetOrder получает заказ по ID
func (s *OrderService) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, customer_id, restaurant_id, status, subtotal, delivery_fee, discount,
		       total, delivery_lat, delivery_lng, payment_method, payment_status,
		       courier_id, created_at, updated_at, delivered_at
		FROM orders
		WHERE id = $1
	`

	err := s.db.QueryRow(query, orderID).Scan(
		&order.ID, &order.CustomerID, &order.RestaurantID, &order.Status,
		&order.Subtotal, &order.DeliveryFee, &order.Discount, &order.Total,
		&order.DeliveryLat, &order.DeliveryLng, &order.PaymentMethod, &order.PaymentStatus,
		&order.CourierID, &order.CreatedAt, &order.UpdatedAt, &order.DeliveredAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// UpdateOrderStatus обновляет статус заказа с проверкой допустимости перехода
func (s *OrderService) UpdateOrderStatus(orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (models.OrderStatus, error) {
	if !req.Status.IsValid() {
		return "", fmt.Errorf("unknown order status: %s", req.Status)
	}

	current, err := s.GetOrder(orderID)
	if err != nil {
		return "", err
	}

	if !current.Status.CanTransitionTo(req.Status) {
		return "", fmt.Errorf("illegal transition from %s to %s", current.Status, req.Status)
	}

	query := `
		UPDATE orders
		SET status = $1, courier_id = COALESCE($2, courier_id), updated_at = $3
	`
	args := []interface{}{req.Status, req.CourierID, time.Now()}

	// Для доставленного заказа фиксируем время доставки
	if req.Status == models.OrderStatusDelivered {
		query += ", delivered_at = $4 WHERE id = $5"
		args = append(args, time.Now(), orderID)
	} else {
		query += " WHERE id = $4"
		args = append(args, orderID)
	}

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return "", fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return "", fmt.Errorf("order not found")
	}

	s.log.WithFields(map[string]interface{}{
		"order_id":   orderID,
		"old_status": current.Status,
		"new_status": req.Status,
	}).Info("Order status updated")

	return current.Status, nil
}

// GetOrders получает список заказов с фильтрацией
func (s *OrderService) GetOrders(status *models.OrderStatus, courierID *uuid.UUID, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT id, customer_id, restaurant_id, status, subtotal, delivery_fee, discount,
		       total, delivery_lat, delivery_lng, payment_method, payment_status,
		       courier_id, created_at, updated_at, delivered_at
		FROM orders
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	if courierID != nil {
		query += fmt.Sprintf(" AND courier_id = $%d", argIndex)
		args = append(args, *courierID)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.CustomerID, &order.RestaurantID, &order.Status,
			&order.Subtotal, &order.DeliveryFee, &order.Discount, &order.Total,
			&order.DeliveryLat, &order.DeliveryLng, &order.PaymentMethod, &order.PaymentStatus,
			&order.CourierID, &order.CreatedAt, &order.UpdatedAt, &order.DeliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, nil
}
