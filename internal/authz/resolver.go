package authz

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mypropai/manage-api/internal/apperr"
)

// OwnershipResolver walks the ownership chain of a resource up to the
// landlord user who may mutate it: lease -> unit -> managed property -> user.
// The chain deliberately never consults tenants.user_id; tenant ownership and
// property ownership can diverge after a transfer.
type OwnershipResolver interface {
	PropertyOwner(ctx context.Context, propertyID string) (string, error)
	UnitOwner(ctx context.Context, unitID string) (string, error)
	LeaseOwner(ctx context.Context, leaseID string) (string, error)

	AuthorizeProperty(ctx context.Context, userID, propertyID string) error
	AuthorizeUnit(ctx context.Context, userID, unitID string) error
	AuthorizeLease(ctx context.Context, userID, leaseID string) error
}

type ownershipResolver struct {
	db *sql.DB
}

func NewOwnershipResolver(db *sql.DB) OwnershipResolver {
	return &ownershipResolver{db: db}
}

func (r *ownershipResolver) PropertyOwner(ctx context.Context, propertyID string) (string, error) {
	const query = `SELECT user_id FROM managed_properties WHERE id = $1`
	return r.owner(ctx, query, propertyID, "property")
}

func (r *ownershipResolver) UnitOwner(ctx context.Context, unitID string) (string, error) {
	const query = `
		SELECT p.user_id
		FROM units u
		JOIN managed_properties p ON p.id = u.property_id
		WHERE u.id = $1`
	return r.owner(ctx, query, unitID, "unit")
}

func (r *ownershipResolver) LeaseOwner(ctx context.Context, leaseID string) (string, error) {
	const query = `
		SELECT p.user_id
		FROM leases l
		JOIN units u ON u.id = l.unit_id
		JOIN managed_properties p ON p.id = u.property_id
		WHERE l.id = $1`
	return r.owner(ctx, query, leaseID, "lease")
}

func (r *ownershipResolver) owner(ctx context.Context, query, id, resource string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("%s not found", resource)
		}
		return "", err
	}
	return userID, nil
}

func (r *ownershipResolver) AuthorizeProperty(ctx context.Context, userID, propertyID string) error {
	return authorize(userID)(r.PropertyOwner(ctx, propertyID))
}

func (r *ownershipResolver) AuthorizeUnit(ctx context.Context, userID, unitID string) error {
	return authorize(userID)(r.UnitOwner(ctx, unitID))
}

func (r *ownershipResolver) AuthorizeLease(ctx context.Context, userID, leaseID string) error {
	return authorize(userID)(r.LeaseOwner(ctx, leaseID))
}

func authorize(userID string) func(owner string, err error) error {
	return func(owner string, err error) error {
		if err != nil {
			return err
		}
		if owner != userID {
			return apperr.Unauthorized("user does not own this resource")
		}
		return nil
	}
}
