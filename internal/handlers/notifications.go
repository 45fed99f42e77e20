package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"
	"delivery-dispatch/internal/services"
)

// Dispatcher выполняет рассылку уведомлений о новом заказе
type Dispatcher interface {
	Dispatch(ctx context.Context, req *models.DispatchRequest) *models.DispatchResult
}

// NotificationHandler представляет обработчик рассылки уведомлений курьерам
type NotificationHandler struct {
	dispatcher Dispatcher
	log        *logger.Logger
}

// NewNotificationHandler создает новый обработчик уведомлений
func NewNotificationHandler(dispatcher Dispatcher, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		log:        log,
	}
}

// newOrderResponse представляет успешный ответ рассылки
type newOrderResponse struct {
	Message            string `json:"message"`
	Notified           int    `json:"notified"`
	TotalDriversOnline *int   `json:"totalDriversOnline,omitempty"`
}

// dispatchErrorResponse представляет ответ с ошибкой рассылки
type dispatchErrorResponse struct {
	Error string `json:"error"`
}

// NotifyNewOrder обрабатывает POST /notifications/new-order.
// Сама рассылка не бывает фатальной для создания заказа: любые сбои
// внутри нее сюда приходят уже свернутыми в результат.
func (h *NotificationHandler) NotifyNewOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, dispatchErrorResponse{Error: "orderId is required"})
		return
	}

	if req.OrderID == "" {
		writeJSONResponse(w, http.StatusBadRequest, dispatchErrorResponse{Error: "orderId is required"})
		return
	}

	result := h.dispatcher.Dispatch(r.Context(), &req)

	if result.Err != nil {
		if errors.Is(result.Err, services.ErrCourierLoad) {
			writeJSONResponse(w, http.StatusInternalServerError, dispatchErrorResponse{Error: "Failed to fetch drivers"})
			return
		}
		writeJSONResponse(w, http.StatusInternalServerError, dispatchErrorResponse{Error: "Internal server error"})
		return
	}

	resp := newOrderResponse{
		Message:  result.Message,
		Notified: result.Notified,
	}
	if result.Notified > 0 {
		total := result.TotalOnline
		resp.TotalDriversOnline = &total
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
