// Package server assembles the chi router: middleware chain, per-area
// handlers, and the routing-guard decision endpoint.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	disputehandler "equiplink/internal/dispute/handler"
	equipmenthandler "equiplink/internal/equipment/handler"
	healthhandler "equiplink/internal/health/handler"
	identityhandler "equiplink/internal/identity/handler"
	membershiphandler "equiplink/internal/membership/handler"
	paymenthandler "equiplink/internal/payment/handler"
	platformopshandler "equiplink/internal/platformops/handler"
	"equiplink/internal/routing"
	"equiplink/internal/server/httpapi"
	servicerequesthandler "equiplink/internal/servicerequest/handler"
	tenanthandler "equiplink/internal/tenant/handler"
)

// Deps carries the constructed handlers and cross-cutting pieces the router
// mounts.
type Deps struct {
	Logger   *zap.Logger
	Resolver Resolver
	Guard    *routing.Guard

	Auth            *identityhandler.Handler
	Tenants         *tenanthandler.Handler
	Members         *membershiphandler.Handler
	Equipment       *equipmenthandler.Handler
	ServiceRequests *servicerequesthandler.Handler
	Disputes        *disputehandler.Handler
	Payments        *paymenthandler.Handler
	PlatformOps     *platformopshandler.Handler
	Health          *healthhandler.Handler
}

// New builds the HTTP router. Middleware order: request id, tracing, request
// log, then credential resolution; RequireAuth guards the protected groups.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "equiplink.http")
	})
	r.Use(Logging(d.Logger))
	r.Use(Authenticate(d.Resolver))

	d.Health.Routes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", d.Auth.Routes)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(d.Logger))

			r.Route("/auth/session", d.Auth.AuthedRoutes)
			r.Route("/tenants", d.Tenants.Routes)
			r.Route("/members", d.Members.Routes)
			r.Route("/equipment", d.Equipment.Routes)
			r.Route("/service-requests", d.ServiceRequests.Routes)
			r.Route("/disputes", d.Disputes.Routes)
			r.Route("/payments", d.Payments.Routes)
			r.Route("/platform", d.PlatformOps.Routes)
		})
	})

	// The UI shell asks where a request should land; anonymous calls are
	// answered with a sign-in redirect, so this stays outside RequireAuth.
	r.Get("/route", routeDecision(d.Guard))

	return r
}

type routeResponse struct {
	Section  string `json:"section"`
	Redirect bool   `json:"redirect"`
	ReturnTo string `json:"return_to,omitempty"`
}

func routeDecision(guard *routing.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		d := guard.Decide(r.Context(), httpapi.Token(r), routing.Section(q.Get("section")), q.Get("path"))
		httpapi.JSON(w, http.StatusOK, routeResponse{
			Section:  string(d.Section),
			Redirect: d.Redirect,
			ReturnTo: d.ReturnTo,
		})
	}
}
