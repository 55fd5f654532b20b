package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/mypropai/manage-api/internal/authz"
)

// AuthMiddleware verifies bearer tokens for both API surfaces. Landlord
// tokens are issued by the account service and carry the landlord user id in
// "sub"; tenant tokens are issued here at portal login and additionally carry
// the tenant record id.
type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

func (m *AuthMiddleware) parseClaims(r *http.Request) (jwt.MapClaims, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return nil, jwt.ErrTokenMalformed
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, jwt.ErrTokenMalformed
	}
	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return nil, jwt.ErrTokenExpired
	}
	return claims, nil
}

// LandlordMiddleware guards the landlord API.
func (m *AuthMiddleware) LandlordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.parseClaims(r)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		// Portal tokens share the signing secret, so the claim set decides
		// which surface a token opens.
		if isTenant, _ := claims["is_tenant"].(bool); isTenant {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		userID, _ := claims["sub"].(string)
		if userID == "" {
			http.Error(w, "Missing token claim", http.StatusUnauthorized)
			return
		}
		ctx := authz.WithLandlord(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantMiddleware guards the tenant portal API.
func (m *AuthMiddleware) TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.parseClaims(r)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		isTenant, _ := claims["is_tenant"].(bool)
		tenantUserID, _ := claims["sub"].(string)
		tenantID, _ := claims["tenant_id"].(string)
		if !isTenant || tenantUserID == "" || tenantID == "" {
			http.Error(w, "Missing token claim", http.StatusUnauthorized)
			return
		}
		ctx := authz.WithTenant(r.Context(), tenantUserID, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// issueTenantToken mints the portal JWT handed out at login.
func issueTenantToken(tenantUserID, tenantID, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       tenantUserID,
		"tenant_id": tenantID,
		"is_tenant": true,
		"exp":       time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(secret))
}
