package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mypropai/manage-api/internal/authz"
)

func landlordToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthMiddleware(t *testing.T) {
	m := NewAuthMiddleware(testJWTSecret)

	tenantToken, err := issueTenantToken("tu-1", "tenant-1", testJWTSecret)
	require.NoError(t, err)

	t.Run("Landlord Token Opens Landlord API", func(t *testing.T) {
		var gotUserID string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID, _ = authz.LandlordFromRequest(r)
		})
		rec := httptest.NewRecorder()
		m.LandlordMiddleware(next).ServeHTTP(rec, bearerRequest(landlordToken(t, "user-1")))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotUserID)
	})

	t.Run("Tenant Token Is Rejected By Landlord API", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})
		rec := httptest.NewRecorder()
		m.LandlordMiddleware(next).ServeHTTP(rec, bearerRequest(tenantToken))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})

	t.Run("Tenant Token Opens Portal", func(t *testing.T) {
		var identity authz.TenantIdentity
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ = authz.TenantFromRequest(r)
		})
		rec := httptest.NewRecorder()
		m.TenantMiddleware(next).ServeHTTP(rec, bearerRequest(tenantToken))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tenant-1", identity.TenantID)
	})

	t.Run("Landlord Token Is Rejected By Portal", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})
		rec := httptest.NewRecorder()
		m.TenantMiddleware(next).ServeHTTP(rec, bearerRequest(landlordToken(t, "user-1")))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})

	t.Run("Garbage Token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.LandlordMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
			ServeHTTP(rec, bearerRequest("not-a-jwt"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
