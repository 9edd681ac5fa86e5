package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/obs"
	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/pkg/httpx"
	"github.com/risinghq/bmsauth/pkg/jwtx"
	"github.com/risinghq/bmsauth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
	Resolver    *service.Resolver
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Global middleware chain
	r.middlewares = []httpx.Middleware{
		obs.Instrument,
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPermissions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /login - strict rate limit by IP (credential guessing surface)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService, Resolver: r.Resolver},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /refresh - moderate rate limit; legitimate clients refresh often
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(&RefreshHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /logout - moderate rate limit
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(&LogoutHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /forgot-password - strict rate limit (mail-sending surface)
	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(&ForgotPasswordHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /reset-password - strict rate limit (token guessing surface)
	r.Mux.Handle("POST /v1/auth/reset-password",
		httpx.Chain(&ResetPasswordHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /me - authenticated, lenient rate limit by user
	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(&MeHandler{Store: r.store, Resolver: r.Resolver},
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPermissions() {
	// POST /permissions/check - authenticated live re-check
	r.Mux.Handle("POST /v1/permissions/check",
		httpx.Chain(&CheckPermissionHandler{Resolver: r.Resolver},
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", obs.Handler())
}
