package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"delivery-dispatch/internal/kafka"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"
	"delivery-dispatch/internal/services"

	"github.com/google/uuid"
)

// OrderHandler представляет обработчик заказов
type OrderHandler struct {
	orderService *services.OrderService
	dispatcher   Dispatcher
	producer     *kafka.Producer
	cacheService *services.CacheService
	log          *logger.Logger
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(orderService *services.OrderService, dispatcher Dispatcher, producer *kafka.Producer, cacheService *services.CacheService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		dispatcher:   dispatcher,
		producer:     producer,
		cacheService: cacheService,
		log:          log,
	}
}

// createOrderRequest представляет запрос на создание заказа с метаданными ресторана
type createOrderRequest struct {
	models.CreateOrderRequest
	RestaurantName string   `json:"restaurant_name"`
	RestaurantLat  *float64 `json:"restaurant_lat,omitempty"`
	RestaurantLng  *float64 `json:"restaurant_lng,omitempty"`
}

// CreateOrder создает новый заказ и запускает рассылку уведомлений курьерам.
// Рассылка выполняется в фоне: ее сбой не влияет на ответ клиенту и не
// откатывает уже сохраненный заказ.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validateCreateOrderRequest(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.CreateOrder(&req.CreateOrderRequest, req.RestaurantLat, req.RestaurantLng)
	if err != nil {
		if strings.Contains(err.Error(), "invalid order") {
			writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.WithError(err).Error("Failed to create order")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	// Публикация события в Kafka
	if err := h.producer.PublishOrderCreated(order, req.RestaurantName, req.RestaurantLat, req.RestaurantLng); err != nil {
		h.log.WithError(err).Error("Failed to publish order created event")
		// Заказ уже создан, клиенту ошибку не возвращаем
	}

	// Кеширование заказа
	cacheKey := services.BuildKey("order", order.ID.String())
	if err := h.cacheService.Set(r.Context(), cacheKey, order, h.cacheService.GetDefaultTTL()); err != nil {
		h.log.WithError(err).Error("Failed to cache order")
	}

	// Рассылка уведомлений курьерам в фоне
	total := order.Total
	dispatchReq := &models.DispatchRequest{
		OrderID:        order.ID.String(),
		RestaurantName: req.RestaurantName,
		RestaurantLat:  req.RestaurantLat,
		RestaurantLng:  req.RestaurantLng,
		Total:          &total,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		h.dispatcher.Dispatch(ctx, dispatchReq)
	}()

	h.log.WithField("order_id", order.ID).Info("Order created successfully")
	writeJSONResponse(w, http.StatusCreated, order)
}

// GetOrder получает заказ по ID
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	orderID, err := extractUUIDFromPath(r.URL.Path, "/api/orders/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	// Попытка получить из кеша
	cacheKey := services.BuildKey("order", orderID.String())
	var order models.Order
	found, _ := h.cacheService.Get(r.Context(), cacheKey, &order)
	if found {
		h.log.WithField("order_id", orderID).Debug("Order retrieved from cache")
		writeJSONResponse(w, http.StatusOK, &order)
		return
	}

	orderPtr, err := h.orderService.GetOrder(orderID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeErrorResponse(w, http.StatusNotFound, "Order not found")
		} else {
			h.log.WithError(err).Error("Failed to get order")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to get order")
		}
		return
	}

	if err := h.cacheService.Set(r.Context(), cacheKey, orderPtr, h.cacheService.GetDefaultTTL()); err != nil {
		h.log.WithError(err).Error("Failed to cache order")
	}

	writeJSONResponse(w, http.StatusOK, orderPtr)
}

// UpdateOrderStatus обновляет статус заказа с проверкой допустимости перехода
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	orderID, err := extractUUIDFromPath(r.URL.Path, "/api/orders/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	oldStatus, err := h.orderService.UpdateOrderStatus(orderID, &req)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			writeErrorResponse(w, http.StatusNotFound, "Order not found")
		case strings.Contains(err.Error(), "illegal transition"), strings.Contains(err.Error(), "unknown order status"):
			writeErrorResponse(w, http.StatusConflict, err.Error())
		default:
			h.log.WithError(err).Error("Failed to update order status")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to update order status")
		}
		return
	}

	// Публикация события изменения статуса
	if err := h.producer.PublishOrderStatusChanged(orderID, oldStatus, req.Status, req.CourierID); err != nil {
		h.log.WithError(err).Error("Failed to publish order status changed event")
	}

	// Инвалидация кеша
	cacheKey := services.BuildKey("order", orderID.String())
	if err := h.cacheService.Delete(r.Context(), cacheKey); err != nil {
		h.log.WithError(err).Error("Failed to invalidate order cache")
	}

	h.log.WithField("order_id", orderID).WithField("new_status", req.Status).Info("Order status updated")
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Order status updated successfully"})
}

// GetOrders получает список заказов с фильтрацией
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()

	var status *models.OrderStatus
	if statusStr := query.Get("status"); statusStr != "" {
		s := models.OrderStatus(statusStr)
		status = &s
	}

	var courierID *uuid.UUID
	if courierIDStr := query.Get("courier_id"); courierIDStr != "" {
		id, err := uuid.Parse(courierIDStr)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid courier ID")
			return
		}
		courierID = &id
	}

	limit := 50 // По умолчанию
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	orders, err := h.orderService.GetOrders(status, courierID, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("Failed to get orders")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to get orders")
		return
	}

	writeJSONResponse(w, http.StatusOK, orders)
}

// validateCreateOrderRequest валидирует запрос на создание заказа
func (h *OrderHandler) validateCreateOrderRequest(req *createOrderRequest) error {
	if req.CustomerID == uuid.Nil {
		return fmt.Errorf("customer_id is required")
	}
	if req.RestaurantID == uuid.Nil {
		return fmt.Errorf("restaurant_id is required")
	}
	if req.Subtotal < 0 {
		return fmt.Errorf("subtotal cannot be negative")
	}
	if req.Discount < 0 {
		return fmt.Errorf("discount cannot be negative")
	}
	if req.PaymentMethod == "" {
		return fmt.Errorf("payment_method is required")
	}
	return nil
}
