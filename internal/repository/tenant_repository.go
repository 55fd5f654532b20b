package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/mypropai/manage-api/internal/apperr"
	"github.com/mypropai/manage-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const uniqueViolation = "23505"

// ContactUpdate carries a partial update of a tenant's contact fields. Nil
// means "leave unchanged".
type ContactUpdate struct {
	FullName     *string
	Phone        *string
	ContactNotes *string
}

type TenantRepository interface {
	GetTenant(ctx context.Context, id string) (models.Tenant, error)
	UpdateTenantContact(ctx context.Context, tenantID string, update ContactUpdate) error

	EmailRegistered(ctx context.Context, email string) (bool, error)
	CreateTenantUser(ctx context.Context, email, tenantID, tokenHash string, expires time.Time) (models.TenantUser, error)
	RefreshInvitation(ctx context.Context, email, tokenHash string, expires time.Time) (models.TenantUser, error)
	GetTenantUserByInvitationTokenHash(ctx context.Context, tokenHash string) (models.TenantUser, error)
	SetPassword(ctx context.Context, tenantUserID, password string) error

	AuthenticateTenant(ctx context.Context, email, password string) (models.TenantUser, error)

	SetResetToken(ctx context.Context, email, tokenHash string, expires time.Time) (models.TenantUser, error)
	GetTenantUserByResetTokenHash(ctx context.Context, tokenHash string) (models.TenantUser, error)
	ResetPassword(ctx context.Context, tenantUserID, password string) error
}

type tenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) GetTenant(ctx context.Context, id string) (models.Tenant, error) {
	const query = `
		SELECT id, property_id, user_id, full_name, email, phone, contact_notes, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	var t models.Tenant
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.PropertyID,
		&t.UserID,
		&t.FullName,
		&t.Email,
		&t.Phone,
		&t.ContactNotes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Tenant{}, apperr.NotFound("tenant not found")
		}
		return models.Tenant{}, err
	}
	return t, nil
}

func (r *tenantRepository) UpdateTenantContact(ctx context.Context, tenantID string, update ContactUpdate) error {
	const query = `
		UPDATE tenants
		SET full_name     = COALESCE($2, full_name),
		    phone         = COALESCE($3, phone),
		    contact_notes = COALESCE($4, contact_notes),
		    updated_at    = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, tenantID, update.FullName, update.Phone, update.ContactNotes)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("tenant not found")
	}
	return nil
}

func (r *tenantRepository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tenant_users WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *tenantRepository) CreateTenantUser(ctx context.Context, email, tenantID, tokenHash string, expires time.Time) (models.TenantUser, error) {
	const query = `
		INSERT INTO tenant_users (email, tenant_id, invitation_token_hash, invitation_expires)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	user := models.TenantUser{
		Email:               email,
		TenantID:            tenantID,
		InvitationTokenHash: &tokenHash,
		InvitationExpires:   &expires,
	}
	err := r.db.QueryRowContext(ctx, query, email, tenantID, tokenHash, expires).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return models.TenantUser{}, apperr.Conflict("email is already registered to a portal account")
		}
		return models.TenantUser{}, err
	}
	return user, nil
}

// RefreshInvitation regenerates the invitation token on an existing portal
// account that has not yet set a password.
func (r *tenantRepository) RefreshInvitation(ctx context.Context, email, tokenHash string, expires time.Time) (models.TenantUser, error) {
	const query = `
		UPDATE tenant_users
		SET invitation_token_hash = $2, invitation_expires = $3, updated_at = now()
		WHERE email = $1 AND password_hash IS NULL
		RETURNING id, email, tenant_id, invitation_expires, created_at, updated_at`

	var user models.TenantUser
	err := r.db.QueryRowContext(ctx, query, email, tokenHash, expires).Scan(
		&user.ID,
		&user.Email,
		&user.TenantID,
		&user.InvitationExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TenantUser{}, apperr.NotFound("no pending invitation for this email")
		}
		return models.TenantUser{}, err
	}
	user.InvitationTokenHash = &tokenHash
	return user, nil
}

func (r *tenantRepository) GetTenantUserByInvitationTokenHash(ctx context.Context, tokenHash string) (models.TenantUser, error) {
	const query = `
		SELECT id, email, password_hash, tenant_id, invitation_token_hash, invitation_expires, created_at, updated_at
		FROM tenant_users
		WHERE invitation_token_hash = $1`

	var user models.TenantUser
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.TenantID,
		&user.InvitationTokenHash,
		&user.InvitationExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TenantUser{}, apperr.InvalidToken("invitation token is invalid or has expired")
		}
		return models.TenantUser{}, err
	}
	return user, nil
}

// SetPassword stores the hashed password and clears the invitation token
// fields, moving the account from Invited to Active.
func (r *tenantRepository) SetPassword(ctx context.Context, tenantUserID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	const query = `
		UPDATE tenant_users
		SET password_hash = $2, invitation_token_hash = NULL, invitation_expires = NULL, updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, tenantUserID, string(hash))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("portal account not found")
	}
	return nil
}

func (r *tenantRepository) AuthenticateTenant(ctx context.Context, email, password string) (models.TenantUser, error) {
	const query = `
		SELECT id, email, password_hash, tenant_id, created_at, updated_at
		FROM tenant_users
		WHERE email = $1`

	var user models.TenantUser
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.TenantID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TenantUser{}, apperr.InvalidCredentials("invalid credentials")
		}
		return models.TenantUser{}, err
	}

	// An account that never accepted its invitation has no password yet.
	if !user.IsActivated() {
		return models.TenantUser{}, apperr.InvalidCredentials("invalid credentials or account not yet activated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return models.TenantUser{}, apperr.InvalidCredentials("invalid credentials")
	}

	return user, nil
}

func (r *tenantRepository) SetResetToken(ctx context.Context, email, tokenHash string, expires time.Time) (models.TenantUser, error) {
	const query = `
		UPDATE tenant_users
		SET password_reset_token_hash = $2, password_reset_expires = $3, updated_at = now()
		WHERE email = $1 AND password_hash IS NOT NULL
		RETURNING id, email, tenant_id, created_at, updated_at`

	var user models.TenantUser
	err := r.db.QueryRowContext(ctx, query, email, tokenHash, expires).Scan(
		&user.ID,
		&user.Email,
		&user.TenantID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TenantUser{}, apperr.NotFound("no activated portal account for this email")
		}
		return models.TenantUser{}, err
	}
	return user, nil
}

func (r *tenantRepository) GetTenantUserByResetTokenHash(ctx context.Context, tokenHash string) (models.TenantUser, error) {
	const query = `
		SELECT id, email, password_hash, tenant_id, password_reset_token_hash, password_reset_expires, created_at, updated_at
		FROM tenant_users
		WHERE password_reset_token_hash = $1`

	var user models.TenantUser
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.TenantID,
		&user.PasswordResetTokenHash,
		&user.PasswordResetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TenantUser{}, apperr.InvalidToken("reset token is invalid or has expired")
		}
		return models.TenantUser{}, err
	}
	return user, nil
}

func (r *tenantRepository) ResetPassword(ctx context.Context, tenantUserID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	const query = `
		UPDATE tenant_users
		SET password_hash = $2, password_reset_token_hash = NULL, password_reset_expires = NULL, updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, tenantUserID, string(hash))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("portal account not found")
	}
	return nil
}
