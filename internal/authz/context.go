package authz

import (
	"context"
	"net/http"
)

type contextKey string

const (
	landlordIDKey   contextKey = "landlord_id"
	tenantUserIDKey contextKey = "tenant_user_id"
	tenantIDKey     contextKey = "tenant_id"
)

// WithLandlord stores the authenticated landlord's user id on the context.
func WithLandlord(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, landlordIDKey, userID)
}

// LandlordFromRequest returns the landlord user id carried by the request.
func LandlordFromRequest(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(landlordIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

// TenantIdentity is the portal-side identity: the credential record plus the
// landlord-facing tenant record it is linked to.
type TenantIdentity struct {
	TenantUserID string
	TenantID     string
}

// WithTenant stores the authenticated tenant identity on the context.
func WithTenant(ctx context.Context, tenantUserID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, tenantUserIDKey, tenantUserID)
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantFromRequest returns the tenant identity carried by the request.
func TenantFromRequest(r *http.Request) (TenantIdentity, bool) {
	uid, ok := r.Context().Value(tenantUserIDKey).(string)
	if !ok || uid == "" {
		return TenantIdentity{}, false
	}
	tid, ok := r.Context().Value(tenantIDKey).(string)
	if !ok || tid == "" {
		return TenantIdentity{}, false
	}
	return TenantIdentity{TenantUserID: uid, TenantID: tid}, true
}
