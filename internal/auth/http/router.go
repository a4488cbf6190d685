package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/srcvote/evote/internal/auth/domain"
	"github.com/srcvote/evote/internal/auth/metrics"
	"github.com/srcvote/evote/internal/auth/service"
	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/clock"
	"github.com/srcvote/evote/pkg/httpx"
	"github.com/srcvote/evote/pkg/jwtx"
	"github.com/srcvote/evote/pkg/slogx"

	_ "github.com/srcvote/evote/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate swag init -g router.go -d .,../../../pkg/authsdk -o ../../../api/auth --packageName auth

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	logger       *slog.Logger
	store        store.Store

	LoginService *service.LoginService
	Metrics      *metrics.Metrics

	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	Clock    clock.Clocker
}

func NewRouter(
	keys *jwtx.KeyManager,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerTokens()
	r.registerSuperAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			SRC Voting Authentication API
//	@version		0.1.0
//	@description	Password plus one-time-code login for students, university admins and super admins.
//	@description
//	@description				Sessions are JWTs; verify access tokens against the JWKS endpoint.
//
//	@contact.name				SRC Voting
//	@contact.url				https://github.com/srcvote/evote
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	// Each portal only logs in its own kind of account. Limited by IP plus
	// submitted identifier to slow password guessing.
	portals := []struct {
		path string
		kind domain.Kind
	}{
		{"/v1/auth/student/login", domain.KindStudent},
		{"/v1/auth/admin/login", domain.KindUniversityAdmin},
		{"/v1/auth/superadmin/login", domain.KindSuperAdmin},
	}
	for _, p := range portals {
		h := &LoginHandler{LoginService: r.LoginService, Kinds: []domain.Kind{p.kind}}
		r.Mux.Handle("POST "+p.path,
			httpx.Chain(h,
				r.Metrics.HTTPMiddleware(p.path),
				httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "identifier", r.Metrics.RateLimited("login")),
			),
		)
	}

	// POST /verify-otp - strict limit on top of the per-account attempt budget
	verify := &VerifyOTPHandler{LoginService: r.LoginService, Clock: r.Clock}
	r.Mux.Handle("POST /v1/auth/verify-otp",
		httpx.Chain(verify,
			r.Metrics.HTTPMiddleware("/v1/auth/verify-otp"),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "identifier", r.Metrics.RateLimited("verify_otp")),
		),
	)
}

func (r *Router) registerTokens() {
	refresh := &RefreshHandler{LoginService: r.LoginService, Clock: r.Clock}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh,
			r.Metrics.HTTPMiddleware("/v1/auth/refresh"),
			httpx.RateLimitByIP(httpx.ModerateLimit, r.Metrics.RateLimited("refresh")),
		),
	)

	revoke := &RevokeHandler{LoginService: r.LoginService}
	r.Mux.Handle("POST /v1/auth/revoke",
		httpx.Chain(revoke,
			r.Metrics.HTTPMiddleware("/v1/auth/revoke"),
			httpx.RateLimitByIP(httpx.ModerateLimit, r.Metrics.RateLimited("revoke")),
		),
	)
}

func (r *Router) registerSuperAdmin() {
	// A super admin may only disable their own two-factor, with a fresh
	// access token and the password.
	h := &Disable2FAHandler{LoginService: r.LoginService}
	r.Mux.Handle("POST /v1/auth/superadmin/disable-2fa",
		httpx.Chain(h,
			r.Metrics.HTTPMiddleware("/v1/auth/superadmin/disable-2fa"),
			httpx.AuthnMiddleware(r.keys.Verifier()),
			httpx.RequireKind(string(domain.KindSuperAdmin)),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.AccountKeyExtractor, r.Metrics.RateLimited("disable_2fa")),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(&JWKSHandler{Keys: r.keys.KeySet},
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Probes get the public limit; monitors poll often.
	health := &HealthHandler{
		Version:     r.buildVersion,
		Started:     now(r.Clock),
		Clock:       r.Clock,
		Store:       r.store,
		SignerReady: r.keys.IsReady,
	}
	r.Mux.Handle("GET /livez",
		httpx.Chain(http.HandlerFunc(health.Livez),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(http.HandlerFunc(health.Readyz),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	metricsHandler := promhttp.Handler()
	if r.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{})
	}
	r.Mux.Handle("GET /metrics", metricsHandler)
}
