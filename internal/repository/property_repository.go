package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mypropai/manage-api/internal/apperr"
	"github.com/mypropai/manage-api/internal/models"
)

type PropertyRepository interface {
	CreateProperty(ctx context.Context, userID, address string) (models.ManagedProperty, error)
	GetProperty(ctx context.Context, id string) (models.ManagedProperty, error)
	ListPropertiesByUser(ctx context.Context, userID string) ([]models.ManagedProperty, error)
}

type propertyRepository struct {
	db *sql.DB
}

func NewPropertyRepository(db *sql.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) CreateProperty(ctx context.Context, userID, address string) (models.ManagedProperty, error) {
	const query = `
		INSERT INTO managed_properties (user_id, address)
		VALUES ($1, $2)
		RETURNING id, user_id, address, is_active, created_at, updated_at`

	var p models.ManagedProperty
	err := r.db.QueryRowContext(ctx, query, userID, address).Scan(
		&p.ID,
		&p.UserID,
		&p.Address,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.ManagedProperty{}, err
	}
	return p, nil
}

func (r *propertyRepository) GetProperty(ctx context.Context, id string) (models.ManagedProperty, error) {
	const query = `
		SELECT id, user_id, address, is_active, created_at, updated_at
		FROM managed_properties
		WHERE id = $1`

	var p models.ManagedProperty
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.UserID,
		&p.Address,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ManagedProperty{}, apperr.NotFound("property not found")
		}
		return models.ManagedProperty{}, err
	}
	return p, nil
}

func (r *propertyRepository) ListPropertiesByUser(ctx context.Context, userID string) ([]models.ManagedProperty, error) {
	const query = `
		SELECT id, user_id, address, is_active, created_at, updated_at
		FROM managed_properties
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.ManagedProperty
	for rows.Next() {
		var p models.ManagedProperty
		if err := rows.Scan(&p.ID, &p.UserID, &p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}
