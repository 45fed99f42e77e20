package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"delivery-dispatch/internal/kafka"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"
	"delivery-dispatch/internal/services"
)

// CourierHandler представляет обработчик курьеров
type CourierHandler struct {
	courierService *services.CourierService
	producer       *kafka.Producer
	cacheService   *services.CacheService
	log            *logger.Logger
}

// NewCourierHandler создает новый обработчик курьеров
func NewCourierHandler(courierService *services.CourierService, producer *kafka.Producer, cacheService *services.CacheService, log *logger.Logger) *CourierHandler {
	return &CourierHandler{
		courierService: courierService,
		producer:       producer,
		cacheService:   cacheService,
		log:            log,
	}
}

// CreateCourier регистрирует нового курьера
func (h *CourierHandler) CreateCourier(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.CreateCourierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validateCreateCourierRequest(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	courier, err := h.courierService.CreateCourier(&req)
	if err != nil {
		h.log.WithError(err).Error("Failed to create courier")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create courier")
		return
	}

	cacheKey := services.BuildKey("courier", courier.ID.String())
	if err := h.cacheService.Set(r.Context(), cacheKey, courier, h.cacheService.GetDefaultTTL()); err != nil {
		h.log.WithError(err).Error("Failed to cache courier")
	}

	h.log.WithField("courier_id", courier.ID).Info("Courier created successfully")
	writeJSONResponse(w, http.StatusCreated, courier)
}

// GetCourier получает курьера по ID
func (h *CourierHandler) GetCourier(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	courierID, err := extractUUIDFromPath(r.URL.Path, "/api/couriers/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid courier ID")
		return
	}

	// Попытка получить из кеша
	cacheKey := services.BuildKey("courier", courierID.String())
	var courier models.Courier
	found, _ := h.cacheService.Get(r.Context(), cacheKey, &courier)
	if found {
		h.log.WithField("courier_id", courierID).Debug("Courier retrieved from cache")
		writeJSONResponse(w, http.StatusOK, &courier)
		return
	}

	courierPtr, err := h.courierService.GetCourier(courierID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeErrorResponse(w, http.StatusNotFound, "Courier not found")
		} else {
			h.log.WithError(err).Error("Failed to get courier")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to get courier")
		}
		return
	}

	if err := h.cacheService.Set(r.Context(), cacheKey, courierPtr, h.cacheService.GetDefaultTTL()); err != nil {
		h.log.WithError(err).Error("Failed to cache courier")
	}

	writeJSONResponse(w, http.StatusOK, courierPtr)
}

// UpdateCourierStatus обновляет доступность курьера
func (h *CourierHandler) UpdateCourierStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	courierID, err := extractUUIDFromPath(r.URL.Path, "/api/couriers/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid courier ID")
		return
	}

	var req models.UpdateCourierStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CurrentLat != nil && (*req.CurrentLat < -90 || *req.CurrentLat > 90) {
		writeErrorResponse(w, http.StatusBadRequest, "Latitude out of range")
		return
	}
	if req.CurrentLng != nil && (*req.CurrentLng < -180 || *req.CurrentLng > 180) {
		writeErrorResponse(w, http.StatusBadRequest, "Longitude out of range")
		return
	}

	// Текущее состояние нужно для события изменения доступности
	currentCourier, err := h.courierService.GetCourier(courierID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeErrorResponse(w, http.StatusNotFound, "Courier not found")
		} else {
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to get courier")
		}
		return
	}

	wasOnline := currentCourier.IsOnline

	if err := h.courierService.UpdateCourierStatus(courierID, &req); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeErrorResponse(w, http.StatusNotFound, "Courier not found")
		} else {
			h.log.WithError(err).Error("Failed to update courier status")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to update courier status")
		}
		return
	}

	if wasOnline != req.IsOnline {
		if err := h.producer.PublishCourierStatusChanged(courierID, wasOnline, req.IsOnline); err != nil {
			h.log.WithError(err).Error("Failed to publish courier status changed event")
		}
	}

	if req.CurrentLat != nil && req.CurrentLng != nil {
		if err := h.producer.PublishLocationUpdated(courierID, *req.CurrentLat, *req.CurrentLng); err != nil {
			h.log.WithError(err).Error("Failed to publish location updated event")
		}
	}

	// Инвалидация кеша
	cacheKey := services.BuildKey("courier", courierID.String())
	if err := h.cacheService.Delete(r.Context(), cacheKey); err != nil {
		h.log.WithError(err).Error("Failed to invalidate courier cache")
	}

	h.log.WithField("courier_id", courierID).WithField("is_online", req.IsOnline).Info("Courier status updated")
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Courier status updated successfully"})
}

// GetCouriers получает список курьеров с фильтрацией
func (h *CourierHandler) GetCouriers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()

	var online *bool
	if onlineStr := query.Get("online"); onlineStr != "" {
		value := onlineStr == "true"
		online = &value
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

	couriers, err := h.courierService.GetCouriers(online, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("Failed to get couriers")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to get couriers")
		return
	}

	writeJSONResponse(w, http.StatusOK, couriers)
}

// GetDispatchableCouriers получает курьеров, доступных для уведомлений
func (h *CourierHandler) GetDispatchableCouriers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	couriers, err := h.courierService.GetDispatchableCouriers(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to get dispatchable couriers")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to get dispatchable couriers")
		return
	}

	writeJSONResponse(w, http.StatusOK, couriers)
}

// validateCreateCourierRequest валидирует запрос на регистрацию курьера
func (h *CourierHandler) validateCreateCourierRequest(req *models.CreateCourierRequest) error {
	if req.Name == "" {
		return fmt.Errorf("courier name is required")
	}
	if req.Phone == "" {
		return fmt.Errorf("courier phone is required")
	}
	return nil
}
