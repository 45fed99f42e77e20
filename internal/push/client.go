package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"
)

// Sender отправляет push-сообщения и возвращает число подтвержденных
type Sender interface {
	Dispatch(ctx context.Context, messages []models.PushMessage) int
}

// Client представляет клиент push-шлюза с разбиением на пачки.
// Шлюз принимает не больше batchSize сообщений за один запрос, пачки
// отправляются независимо: отказ одной не прерывает остальные.
type Client struct {
	gatewayURL string
	batchSize  int
	workers    int
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient создает новый клиент push-шлюза
func NewClient(cfg *config.DispatchConfig, log *logger.Logger) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Client{
		gatewayURL: cfg.GatewayURL,
		batchSize:  batchSize,
		workers:    workers,
		httpClient: &http.Client{
			// Ограниченный таймаут: медленный шлюз не должен задерживать обработку заказа
			Timeout: time.Duration(cfg.GatewayTimeout) * time.Second,
		},
		log: log,
	}
}

// Dispatch разбивает сообщения на пачки и отправляет их пулом воркеров.
// Возвращает суммарное число сообщений в подтвержденных пачках. Отказ
// пачки логируется и не влияет на отправку остальных.
func (c *Client) Dispatch(ctx context.Context, messages []models.PushMessage) int {
	if len(messages) == 0 {
		return 0
	}

	batches := chunkMessages(messages, c.batchSize)

	jobs := make(chan []models.PushMessage, len(batches))
	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)

	var sent atomic.Int64
	var wg sync.WaitGroup

	workers := c.workers
	if workers > len(batches) {
		workers = len(batches)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				if err := c.sendBatch(ctx, batch); err != nil {
					c.log.WithError(err).WithField("batch_size", len(batch)).Error("Failed to send push batch")
					continue
				}
				sent.Add(int64(len(batch)))
			}
		}()
	}

	wg.Wait()

	c.log.WithField("total", len(messages)).
		WithField("batches", len(batches)).
		WithField("sent", sent.Load()).
		Debug("Push dispatch completed")

	return int(sent.Load())
}

// sendBatch отправляет одну пачку сообщений в шлюз
func (c *Client) sendBatch(ctx context.Context, batch []models.PushMessage) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned %s: %s", resp.Status, string(body))
	}

	return nil
}

// chunkMessages разбивает список на пачки размером не больше size с сохранением порядка
func chunkMessages(messages []models.PushMessage, size int) [][]models.PushMessage {
	var batches [][]models.PushMessage
	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}
		batches = append(batches, messages[start:end])
	}
	return batches
}
