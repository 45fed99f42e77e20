package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"
	"delivery-dispatch/internal/push"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }
func sptr(v string) *string  { return &v }

// fakeCourierSource отдает заранее подготовленный снимок курьеров
type fakeCourierSource struct {
	couriers []*models.Courier
	err      error
}

func (f *fakeCourierSource) GetDispatchableCouriers(ctx context.Context) ([]*models.Courier, error) {
	return f.couriers, f.err
}

// fakeGuard всегда разрешает или запрещает рассылку
type fakeGuard struct {
	allow bool
}

func (f *fakeGuard) MarkDispatched(ctx context.Context, orderID string) bool {
	return f.allow
}

// panicSender роняет рассылку изнутри
type panicSender struct{}

func (panicSender) Dispatch(ctx context.Context, messages []models.PushMessage) int {
	panic("gateway client exploded")
}

func dispatchableCourier(lat, lng *float64) *models.Courier {
	return &models.Courier{
		ID:         uuid.New(),
		IsOnline:   true,
		CurrentLat: lat,
		CurrentLng: lng,
		PushToken:  sptr(fmt.Sprintf("ExponentPushToken[%s]", uuid.NewString())),
	}
}

func dispatchConfig(gatewayURL string, workers int) *config.DispatchConfig {
	return &config.DispatchConfig{
		RadiusKm:       10,
		BatchSize:      100,
		Workers:        workers,
		GatewayURL:     gatewayURL,
		GatewayTimeout: 5,
	}
}

func newDispatchService(source CourierSource, gatewayURL string, workers int) *DispatchService {
	cfg := dispatchConfig(gatewayURL, workers)
	log := logger.NewDiscard()
	return NewDispatchService(source, push.NewClient(cfg, log), nil, cfg, log)
}

func TestDispatchNoOnlineCouriers(t *testing.T) {
	svc := newDispatchService(&fakeCourierSource{}, "http://unused.invalid", 1)

	result := svc.Dispatch(context.Background(), &models.DispatchRequest{OrderID: "order-1"})

	require.NoError(t, result.Err)
	assert.Zero(t, result.Notified)
	assert.Zero(t, result.TotalOnline)
	assert.Equal(t, "No online drivers available", result.Message)
}

func TestDispatchFiltersByRadius(t *testing.T) {
	// Ресторан в Лиме, курьеры на ~2, ~8 и ~15 км
	source := &fakeCourierSource{couriers: []*models.Courier{
		dispatchableCourier(ptr(-12.0464+2.0/111.19), ptr(-77.0428)),
		dispatchableCourier(ptr(-12.0464+8.0/111.19), ptr(-77.0428)),
		dispatchableCourier(ptr(-12.0464+15.0/111.19), ptr(-77.0428)),
	}}

	var mu sync.Mutex
	var received []models.PushMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []models.PushMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		mu.Lock()
		received = append(received, batch...)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newDispatchService(source, srv.URL, 2)

	total := 42.5
	result := svc.Dispatch(context.Background(), &models.DispatchRequest{
		OrderID:        "order-2",
		RestaurantName: "La Lucha",
		RestaurantLat:  ptr(-12.0464),
		RestaurantLng:  ptr(-77.0428),
		Total:          &total,
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Notified)
	assert.Equal(t, 3, result.TotalOnline)
	assert.Equal(t, 2, result.Eligible)
	assert.Equal(t, "Notifications sent", result.Message)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	for _, msg := range received {
		assert.Equal(t, "high", msg.Priority)
		assert.Equal(t, "order-2", msg.Data.OrderID)
		assert.Equal(t, "new_order", msg.Data.Type)
		assert.Contains(t, msg.Body, "La Lucha")
		assert.Contains(t, msg.Body, "42.50")
	}
}

func TestDispatchFailedBatchReducesCount(t *testing.T) {
	couriers := make([]*models.Courier, 250)
	for i := range couriers {
		couriers[i] = dispatchableCourier(nil, nil)
	}
	source := &fakeCourierSource{couriers: couriers}

	var mu sync.Mutex
	call := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		call++
		current := call
		mu.Unlock()

		if current == 2 {
			http.Error(w, "push provider error", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Один воркер для детерминированного порядка пачек
	svc := newDispatchService(source, srv.URL, 1)

	result := svc.Dispatch(context.Background(), &models.DispatchRequest{OrderID: "order-3"})

	require.NoError(t, result.Err)
	assert.Equal(t, 150, result.Notified)
	assert.Equal(t, 250, result.TotalOnline)
	assert.Equal(t, "Notifications sent", result.Message)
}

func TestDispatchIncludesCouriersWithoutLocation(t *testing.T) {
	source := &fakeCourierSource{couriers: []*models.Courier{
		dispatchableCourier(nil, nil),
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newDispatchService(source, srv.URL, 1)

	result := svc.Dispatch(context.Background(), &models.DispatchRequest{
		OrderID:       "order-4",
		RestaurantLat: ptr(-12.0464),
		RestaurantLng: ptr(-77.0428),
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, result.NoLocation)
}

func TestDispatchCourierLoadFailure(t *testing.T) {
	source := &fakeCourierSource{err: errors.New("connection refused")}
	svc := newDispatchService(source, "http://unused.invalid", 1)

	result := svc.Dispatch(context.Background(), &models.DispatchRequest{OrderID: "order-5"})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, ErrCourierLoad)
	assert.Zero(t, result.Notified)
}

func TestDispatchAlreadyPerformed(t *testing.T) {
	source := &fakeCourierSource{couriers: []*models.Courier{dispatchableCourier(nil, nil)}}
	cfg := dispatchConfig("http://unused.invalid", 1)
	log := logger.NewDiscard()
	svc := NewDispatchService(source, push.NewClient(cfg, log), &fakeGuard{allow: false}, cfg, log)

	result := svc.Dispatch(context.Background(), &models.DispatchRequest{OrderID: "order-6"})

	require.NoError(t, result.Err)
	assert.Zero(t, result.Notified)
	assert.Equal(t, "Dispatch already performed for this order", result.Message)
}

func TestDispatchContainsPanics(t *testing.T) {
	source := &fakeCourierSource{couriers: []*models.Courier{dispatchableCourier(nil, nil)}}
	cfg := dispatchConfig("http://unused.invalid", 1)
	log := logger.NewDiscard()
	svc := NewDispatchService(source, panicSender{}, nil, cfg, log)

	var result *models.DispatchResult
	require.NotPanics(t, func() {
		result = svc.Dispatch(context.Background(), &models.DispatchRequest{OrderID: "order-7"})
	})

	require.NotNil(t, result)
	assert.ErrorIs(t, result.Err, ErrInternal)
}
