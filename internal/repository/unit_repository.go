package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mypropai/manage-api/internal/apperr"
	"github.com/mypropai/manage-api/internal/models"
)

type UnitRepository interface {
	CreateUnit(ctx context.Context, unit models.Unit) (models.Unit, error)
	GetUnit(ctx context.Context, id string) (models.Unit, error)
	ListUnitsByProperty(ctx context.Context, propertyID string) ([]models.Unit, error)
}

type unitRepository struct {
	db *sql.DB
}

func NewUnitRepository(db *sql.DB) UnitRepository {
	return &unitRepository{db: db}
}

func (r *unitRepository) CreateUnit(ctx context.Context, unit models.Unit) (models.Unit, error) {
	const query = `
		INSERT INTO units (property_id, name, beds, baths, sqft)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		unit.PropertyID,
		unit.Name,
		unit.Beds,
		unit.Baths,
		unit.Sqft,
	).Scan(&unit.ID, &unit.Status, &unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

func (r *unitRepository) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	const query = `
		SELECT id, property_id, name, beds, baths, sqft, status, current_lease_id, created_at, updated_at
		FROM units
		WHERE id = $1`

	var unit models.Unit
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&unit.ID,
		&unit.PropertyID,
		&unit.Name,
		&unit.Beds,
		&unit.Baths,
		&unit.Sqft,
		&unit.Status,
		&unit.CurrentLeaseID,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Unit{}, apperr.NotFound("unit not found")
		}
		return models.Unit{}, err
	}
	return unit, nil
}

func (r *unitRepository) ListUnitsByProperty(ctx context.Context, propertyID string) ([]models.Unit, error) {
	const query = `
		SELECT id, property_id, name, beds, baths, sqft, status, current_lease_id, created_at, updated_at
		FROM units
		WHERE property_id = $1
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var unit models.Unit
		if err := rows.Scan(
			&unit.ID,
			&unit.PropertyID,
			&unit.Name,
			&unit.Beds,
			&unit.Baths,
			&unit.Sqft,
			&unit.Status,
			&unit.CurrentLeaseID,
			&unit.CreatedAt,
			&unit.UpdatedAt,
		); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	return units, rows.Err()
}
