package authz

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mypropai/manage-api/internal/apperr"
)

func TestAuthorizeLease(t *testing.T) {
	t.Run("Owner Is Authorized", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT p.user_id").
			WithArgs("lease-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

		resolver := NewOwnershipResolver(db)
		err = resolver.AuthorizeLease(context.Background(), "user-1", "lease-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other User Is Rejected", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT p.user_id").
			WithArgs("lease-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-2"))

		resolver := NewOwnershipResolver(db)
		err = resolver.AuthorizeLease(context.Background(), "user-1", "lease-1")
		assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
		assert.Contains(t, err.Error(), "does not own")
	})

	t.Run("Unknown Lease Is Not Found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT p.user_id").
			WithArgs("lease-404").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

		resolver := NewOwnershipResolver(db)
		err = resolver.AuthorizeLease(context.Background(), "user-1", "lease-404")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestAuthorizeUnit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT p.user_id").
		WithArgs("unit-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	resolver := NewOwnershipResolver(db)
	assert.NoError(t, resolver.AuthorizeUnit(context.Background(), "user-1", "unit-1"))
}

func TestAuthorizeProperty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT user_id FROM managed_properties").
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-2"))

	resolver := NewOwnershipResolver(db)
	err = resolver.AuthorizeProperty(context.Background(), "user-1", "prop-1")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}
