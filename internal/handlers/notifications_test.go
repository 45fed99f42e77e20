package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"
	"delivery-dispatch/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher возвращает заранее подготовленный результат рассылки
type fakeDispatcher struct {
	result *models.DispatchResult
	calls  int
	gotReq *models.DispatchRequest
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req *models.DispatchRequest) *models.DispatchResult {
	f.calls++
	f.gotReq = req
	return f.result
}

func doNotify(t *testing.T, dispatcher Dispatcher, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewNotificationHandler(dispatcher, logger.NewDiscard())
	req := httptest.NewRequest(http.MethodPost, "/notifications/new-order", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.NotifyNewOrder(rec, req)
	return rec
}

func TestNotifyNewOrderMissingOrderID(t *testing.T) {
	dispatcher := &fakeDispatcher{}

	for _, body := range []string{`{}`, `{"orderId": ""}`, `not json`} {
		rec := doNotify(t, dispatcher, body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "orderId is required", resp["error"])
	}

	// Рассылка не запускалась, обращений к шлюзу не было
	assert.Zero(t, dispatcher.calls)
}

func TestNotifyNewOrderNoDriversOnline(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &models.DispatchResult{Message: "No online drivers available"}}

	rec := doNotify(t, dispatcher, `{"orderId": "order-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "No online drivers available", resp["message"])
	assert.EqualValues(t, 0, resp["notified"])
}

func TestNotifyNewOrderNoEligibleNearby(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &models.DispatchResult{
		TotalOnline: 5,
		Message:     "No drivers with push tokens nearby",
	}}

	rec := doNotify(t, dispatcher, `{"orderId": "order-2", "restaurantLat": -12.0464, "restaurantLng": -77.0428}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "No drivers with push tokens nearby", resp["message"])
	assert.EqualValues(t, 0, resp["notified"])
}

func TestNotifyNewOrderSuccess(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &models.DispatchResult{
		Notified:    2,
		TotalOnline: 3,
		Eligible:    2,
		Message:     "Notifications sent",
	}}

	rec := doNotify(t, dispatcher, `{"orderId": "order-3", "restaurantName": "La Lucha", "total": 42.5}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Notifications sent", resp["message"])
	assert.EqualValues(t, 2, resp["notified"])
	assert.EqualValues(t, 3, resp["totalDriversOnline"])

	require.NotNil(t, dispatcher.gotReq)
	assert.Equal(t, "order-3", dispatcher.gotReq.OrderID)
	assert.Equal(t, "La Lucha", dispatcher.gotReq.RestaurantName)
	require.NotNil(t, dispatcher.gotReq.Total)
	assert.Equal(t, 42.5, *dispatcher.gotReq.Total)
}

func TestNotifyNewOrderCourierLoadFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &models.DispatchResult{
		Err: fmt.Errorf("%w: connection refused", services.ErrCourierLoad),
	}}

	rec := doNotify(t, dispatcher, `{"orderId": "order-4"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to fetch drivers", resp["error"])
}

func TestNotifyNewOrderInternalFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &models.DispatchResult{Err: services.ErrInternal}}

	rec := doNotify(t, dispatcher, `{"orderId": "order-5"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp["error"])
}

func TestNotifyNewOrderMethodNotAllowed(t *testing.T) {
	handler := NewNotificationHandler(&fakeDispatcher{}, logger.NewDiscard())
	req := httptest.NewRequest(http.MethodGet, "/notifications/new-order", nil)
	rec := httptest.NewRecorder()
	handler.NotifyNewOrder(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
