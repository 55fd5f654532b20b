package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mypropai/manage-api/internal/handlers"
	"github.com/mypropai/manage-api/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter sets up the API routes. Registration order matters: the public
// tenant auth prefix and the guarded tenant prefix are both under /api, so
// they are mounted before the landlord subrouter.
func NewRouter(
	auth *handlers.AuthMiddleware,
	properties *handlers.PropertyHandler,
	units *handlers.UnitHandler,
	leases *handlers.LeaseHandler,
	comms *handlers.CommunicationHandler,
	tenantAuth *handlers.TenantAuthHandler,
	portal *handlers.TenantPortalHandler,
	scheduler *handlers.SchedulerHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check and metrics
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public tenant credential endpoints, rate limited per client IP.
	authAPI := router.PathPrefix("/api/tenant/auth").Subrouter()
	authAPI.Use(middleware.RateLimitMiddleware(1, 5))
	authAPI.HandleFunc("/accept/{token}", tenantAuth.AcceptInvitation).Methods(http.MethodPost)
	authAPI.HandleFunc("/login", tenantAuth.Login).Methods(http.MethodPost)
	authAPI.HandleFunc("/reset", tenantAuth.RequestPasswordReset).Methods(http.MethodPost)
	authAPI.HandleFunc("/reset/{token}", tenantAuth.ConfirmPasswordReset).Methods(http.MethodPost)

	// Tenant portal, guarded by the tenant JWT.
	tenantAPI := router.PathPrefix("/api/tenant").Subrouter()
	tenantAPI.Use(auth.TenantMiddleware)
	tenantAPI.HandleFunc("/lease", portal.GetLease).Methods(http.MethodGet)
	tenantAPI.HandleFunc("/communications", portal.SubmitCommunication).Methods(http.MethodPost)

	// Landlord API, guarded by the landlord JWT.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.LandlordMiddleware)

	api.HandleFunc("/properties", properties.CreateProperty).Methods(http.MethodPost)
	api.HandleFunc("/properties", properties.ListProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties/{propertyID}", properties.GetProperty).Methods(http.MethodGet)

	api.HandleFunc("/properties/{propertyID}/units", units.CreateUnit).Methods(http.MethodPost)
	api.HandleFunc("/properties/{propertyID}/units", units.ListUnits).Methods(http.MethodGet)

	api.HandleFunc("/units/{unitID}/leases", leases.OriginateLease).Methods(http.MethodPost)

	api.HandleFunc("/leases/{leaseID}", leases.GetLease).Methods(http.MethodGet)
	api.HandleFunc("/leases/{leaseID}", leases.UpdateLease).Methods(http.MethodPut)
	api.HandleFunc("/leases/{leaseID}/transactions", leases.PostTransaction).Methods(http.MethodPost)
	api.HandleFunc("/leases/{leaseID}/terminate", leases.TerminateLease).Methods(http.MethodPost)
	api.HandleFunc("/leases/{leaseID}/invitation", leases.ResendInvitation).Methods(http.MethodPost)

	api.HandleFunc("/leases/{leaseID}/communications", comms.CreateCommunication).Methods(http.MethodPost)
	api.HandleFunc("/leases/{leaseID}/communications/{commID}", comms.UpdateCommunication).Methods(http.MethodPut)
	api.HandleFunc("/leases/{leaseID}/communications/{commID}", comms.DeleteCommunication).Methods(http.MethodDelete)

	api.HandleFunc("/admin/recurring-charges/run", scheduler.RunRecurringCharges).Methods(http.MethodPost)

	return router
}
