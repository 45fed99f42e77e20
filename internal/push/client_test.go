package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeMessages(n int) []models.PushMessage {
	messages := make([]models.PushMessage, n)
	for i := range messages {
		messages[i] = models.PushMessage{
			To:       fmt.Sprintf("ExponentPushToken[%d]", i),
			Sound:    "default",
			Title:    "New order",
			Priority: "high",
			Data:     models.PushData{OrderID: "order-1", Type: "new_order"},
		}
	}
	return messages
}

func newTestClient(gatewayURL string, batchSize, workers int) *Client {
	return NewClient(&config.DispatchConfig{
		GatewayURL:     gatewayURL,
		BatchSize:      batchSize,
		Workers:        workers,
		GatewayTimeout: 5,
	}, logger.NewDiscard())
}

func TestChunkMessages(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		size      int
		wantSizes []int
	}{
		{name: "empty", total: 0, size: 100, wantSizes: nil},
		{name: "single partial", total: 7, size: 100, wantSizes: []int{7}},
		{name: "exact fit", total: 200, size: 100, wantSizes: []int{100, 100}},
		{name: "with remainder", total: 250, size: 100, wantSizes: []int{100, 100, 50}},
		{name: "size one", total: 3, size: 1, wantSizes: []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := makeMessages(tt.total)
			batches := chunkMessages(messages, tt.size)

			require.Len(t, batches, len(tt.wantSizes))

			// Объединение пачек с сохранением порядка дает исходный список
			var flat []models.PushMessage
			for i, batch := range batches {
				assert.Len(t, batch, tt.wantSizes[i])
				flat = append(flat, batch...)
			}
			assert.Equal(t, messages, flat)
		})
	}
}

func TestDispatchSendsAllBatches(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var batch []models.PushMessage
		require.NoError(t, json.Unmarshal(body, &batch))

		mu.Lock()
		batchSizes = append(batchSizes, len(batch))
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 100, 4)
	sent := client.Dispatch(context.Background(), makeMessages(250))

	assert.Equal(t, 250, sent)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batchSizes, 3)

	total := 0
	for _, size := range batchSizes {
		assert.LessOrEqual(t, size, 100)
		total += size
	}
	assert.Equal(t, 250, total)
}

func TestDispatchFailedBatchIsIsolated(t *testing.T) {
	var mu sync.Mutex
	call := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		call++
		current := call
		mu.Unlock()

		// Вторая пачка отклоняется, остальные подтверждаются
		if current == 2 {
			http.Error(w, "invalid tokens", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Один воркер: пачки уходят последовательно, отказ второй не прерывает третью
	client := newTestClient(srv.URL, 100, 1)
	sent := client.Dispatch(context.Background(), makeMessages(250))

	assert.Equal(t, 150, sent)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, call)
}

func TestDispatchGatewayUnreachable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1/push", 100, 2)
	sent := client.Dispatch(context.Background(), makeMessages(10))
	assert.Zero(t, sent)
}

func TestDispatchEmptyList(t *testing.T) {
	client := newTestClient("http://unused.invalid", 100, 2)
	assert.Zero(t, client.Dispatch(context.Background(), nil))
}

func TestDispatchGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(&config.DispatchConfig{
		GatewayURL:     srv.URL,
		BatchSize:      100,
		Workers:        1,
		GatewayTimeout: 1,
	}, logger.NewDiscard())

	start := time.Now()
	sent := client.Dispatch(context.Background(), makeMessages(5))

	assert.Zero(t, sent)
	assert.Less(t, time.Since(start), 2*time.Second)
}
