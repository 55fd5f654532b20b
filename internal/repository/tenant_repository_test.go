package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mypropai/manage-api/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEmailRegistered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("dana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewTenantRepository(db)
	registered, err := repo.EmailRegistered(context.Background(), "dana@example.com")
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestCreateTenantUser(t *testing.T) {
	expires := time.Now().Add(48 * time.Hour)

	t.Run("Duplicate Email Conflicts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("INSERT INTO tenant_users").
			WillReturnError(&pq.Error{Code: "23505"})

		repo := NewTenantRepository(db)
		_, err = repo.CreateTenantUser(context.Background(), "dana@example.com", "tenant-1", "hash", expires)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
	})

	t.Run("New Email", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now()
		mock.ExpectQuery("INSERT INTO tenant_users").
			WithArgs("dana@example.com", "tenant-1", "hash", expires).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("tu-1", now, now))

		repo := NewTenantRepository(db)
		user, err := repo.CreateTenantUser(context.Background(), "dana@example.com", "tenant-1", "hash", expires)
		require.NoError(t, err)
		assert.Equal(t, "tu-1", user.ID)
		assert.False(t, user.IsActivated())
		assert.True(t, user.InvitationValid(time.Now()))
	})
}

func TestAuthenticateTenant(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	userRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "email", "password_hash", "tenant_id", "created_at", "updated_at"}).
			AddRow("tu-1", "dana@example.com", string(hash), "tenant-1", time.Now(), time.Now())
	}

	t.Run("Correct Password", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id, email, password_hash").
			WithArgs("dana@example.com").
			WillReturnRows(userRows())

		repo := NewTenantRepository(db)
		user, err := repo.AuthenticateTenant(context.Background(), "dana@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, "tenant-1", user.TenantID)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id, email, password_hash").
			WillReturnRows(userRows())

		repo := NewTenantRepository(db)
		_, err = repo.AuthenticateTenant(context.Background(), "dana@example.com", "wrong")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindInvalidCredentials))
	})

	t.Run("Unknown Email", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id, email, password_hash").
			WillReturnError(sql.ErrNoRows)

		repo := NewTenantRepository(db)
		_, err = repo.AuthenticateTenant(context.Background(), "nobody@example.com", "hunter22")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindInvalidCredentials))
	})

	t.Run("Never Activated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT id, email, password_hash").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "tenant_id", "created_at", "updated_at"}).
				AddRow("tu-1", "dana@example.com", nil, "tenant-1", time.Now(), time.Now()))

		repo := NewTenantRepository(db)
		_, err = repo.AuthenticateTenant(context.Background(), "dana@example.com", "hunter22")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindInvalidCredentials))
	})
}

func TestRefreshInvitation(t *testing.T) {
	t.Run("Activated Account Is Not Refreshed", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("UPDATE tenant_users").
			WillReturnError(sql.ErrNoRows)

		repo := NewTenantRepository(db)
		_, err = repo.RefreshInvitation(context.Background(), "dana@example.com", "hash", time.Now().Add(time.Hour))
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}
