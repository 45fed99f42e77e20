package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"delivery-dispatch/internal/database"
	"delivery-dispatch/internal/logger"
	"delivery-dispatch/internal/models"

	"github.com/google/uuid"
)

// CourierService представляет сервис для работы с курьерами
type CourierService struct {
	db  *database.DB
	log *logger.Logger
}

// NewCourierService создает новый экземпляр сервиса курьеров
func NewCourierService(db *database.DB, log *logger.Logger) *CourierService {
	return &CourierService{
		db:  db,
		log: log,
	}
}

// CreateCourier регистрирует нового курьера
func (s *CourierService) CreateCourier(req *models.CreateCourierRequest) (*models.Courier, error) {
	courier := &models.Courier{
		ID:        uuid.New(),
		Name:      req.Name,
		Phone:     req.Phone,
		IsOnline:  false,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO couriers (id, name, phone, is_online, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(query, courier.ID, courier.Name, courier.Phone,
		courier.IsOnline, courier.CreatedAt, courier.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create courier: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"courier_id":   courier.ID,
		"courier_name": courier.Name,
	}).Info("Courier created successfully")

	return courier, nil
}

// GetCourier получает курьера по ID
func (s *CourierService) GetCourier(courierID uuid.UUID) (*models.Courier, error) {
	courier := &models.Courier{}

	query := `
		SELECT id, name, phone, is_online, current_lat, current_lng, push_token,
		       created_at, updated_at, last_seen_at
		FROM couriers
		WHERE id = $1
	`

	err := s.db.QueryRow(query, courierID).Scan(
		&courier.ID, &courier.Name, &courier.Phone, &courier.IsOnline,
		&courier.CurrentLat, &courier.CurrentLng, &courier.PushToken,
		&courier.CreatedAt, &courier.UpdatedAt, &courier.LastSeenAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("courier not found")
		}
		return nil, fmt.Errorf("failed to get courier: %w", err)
	}

	return courier, nil
}

// UpdateCourierStatus обновляет доступность курьера: флаг онлайн,
// последние координаты и push-токен устройства
func (s *CourierService) UpdateCourierStatus(courierID uuid.UUID, req *models.UpdateCourierStatusRequest) error {
	query := `
		UPDATE couriers
		SET is_online = $1,
		    current_lat = COALESCE($2, current_lat),
		    current_lng = COALESCE($3, current_lng),
		    push_token = COALESCE($4, push_token),
		    updated_at = $5,
		    last_seen_at = $6
		WHERE id = $7
	`

	now := time.Now()
	result, err := s.db.Exec(query, req.IsOnline, req.CurrentLat, req.CurrentLng, req.PushToken, now, now, courierID)
	if err != nil {
		return fmt.Errorf("failed to update courier status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("courier not found")
	}

	s.log.WithFields(map[string]interface{}{
		"courier_id": courierID,
		"is_online":  req.IsOnline,
		"lat":        req.CurrentLat,
		"lng":        req.CurrentLng,
	}).Info("Courier status updated")

	return nil
}

// GetCouriers получает список курьеров с фильтрацией по доступности
func (s *CourierService) GetCouriers(online *bool, limit, offset int) ([]*models.Courier, error) {
	query := `
		SELECT id, name, phone, is_online, current_lat, current_lng, push_token,
		       created_at, updated_at, last_seen_at
		FROM couriers
		WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if online != nil {
		query += fmt.Sprintf(" AND is_online = $%d", argIndex)
		args = append(args, *online)
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
		return nil, fmt.Errorf("failed to get couriers: %w", err)
	}
	defer rows.Close()

	var couriers []*models.Courier
	for rows.Next() {
		courier := &models.Courier{}
		if err := rows.Scan(&courier.ID, &courier.Name, &courier.Phone, &courier.IsOnline,
			&courier.CurrentLat, &courier.CurrentLng, &courier.PushToken,
			&courier.CreatedAt, &courier.UpdatedAt, &courier.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan courier: %w", err)
		}
		couriers = append(couriers, courier)
	}

	return couriers, nil
}

// GetDispatchableCouriers получает курьеров, которым можно отправить
// уведомление: онлайн и с зарегистрированным push-токеном, включая
// последние известные координаты. Снимок на момент запроса, без гарантий
// согласованности с последующими изменениями статуса.
func (s *CourierService) GetDispatchableCouriers(ctx context.Context) ([]*models.Courier, error) {
	query := `
		SELECT id, name, phone, is_online, current_lat, current_lng, push_token,
		       created_at, updated_at, last_seen_at
		FROM couriers
		WHERE is_online = true AND push_token IS NOT NULL
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatchable couriers: %w", err)
	}
	defer rows.Close()

	var couriers []*models.Courier
	for rows.Next() {
		courier := &models.Courier{}
		if err := rows.Scan(&courier.ID, &courier.Name, &courier.Phone, &courier.IsOnline,
			&courier.CurrentLat, &courier.CurrentLng, &courier.PushToken,
			&courier.CreatedAt, &courier.UpdatedAt, &courier.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan courier: %w", err)
		}
		couriers = append(couriers, courier)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate couriers: %w", err)
	}

	return couriers, nil
}
