package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer представляет Kafka producer
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает новый Kafka producer
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Info("Kafka producer created successfully")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	return p.producer.Close()
}

// PublishOrderCreated публикует событие создания заказа.
// Событие несет метаданные ресторана, по которым consumer запускает
// рассылку уведомлений курьерам.
func (p *Producer) PublishOrderCreated(order *models.Order, restaurantName string, restaurantLat, restaurantLng *float64) error {
	return p.publishEvent(p.topics.Orders, models.EventTypeOrderCreated, models.OrderCreatedEvent{
		OrderID:        order.ID,
		RestaurantName: restaurantName,
		RestaurantLat:  restaurantLat,
		RestaurantLng:  restaurantLng,
		Total:          order.Total,
	})
}

// PublishOrderStatusChanged публикует событие изменения статуса заказа
func (p *Producer) PublishOrderStatusChanged(orderID uuid.UUID, oldStatus, newStatus models.OrderStatus, courierID *uuid.UUID) error {
	return p.publishEvent(p.topics.Orders, models.EventTypeOrderStatusChanged, models.OrderStatusChangedEvent{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		CourierID: courierID,
		Timestamp: time.Now(),
	})
}

// PublishCourierStatusChanged публикует событие изменения доступности курьера
func (p *Producer) PublishCourierStatusChanged(courierID uuid.UUID, wasOnline, isOnline bool) error {
	return p.publishEvent(p.topics.Couriers, models.EventTypeCourierStatusChanged, models.CourierStatusChangedEvent{
		CourierID: courierID,
		WasOnline: wasOnline,
		IsOnline:  isOnline,
		Timestamp: time.Now(),
	})
}

// PublishLocationUpdated публикует событие обновления местоположения
func (p *Producer) PublishLocationUpdated(courierID uuid.UUID, lat, lng float64) error {
	return p.publishEvent(p.topics.Locations, models.EventTypeLocationUpdated, models.LocationUpdatedEvent{
		CourierID: courierID,
		Lat:       lat,
		Lng:       lng,
		Timestamp: time.Now(),
	})
}

// publishEvent публикует событие в указанный топик
func (p *Producer) publishEvent(topic string, eventType models.EventType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := models.Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.Type),
			},
			{
				Key:   []byte("timestamp"),
				Value: []byte(event.Timestamp.Format(time.RFC3339)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithField("topic", topic).
		WithField("partition", partition).
		WithField("offset", offset).
		WithField("event_type", event.Type).
		WithField("event_id", event.ID).
		Debug("Event published successfully")

	return nil
}
