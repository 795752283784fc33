package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/broadcast"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/service"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/store"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"

	_ "github.com/aussiebroadwan/squeezy/api/squeezy" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Cookies CookieConfig
	// RateLimits must be set before ApplyRoutes.
	RateLimits  httpx.Profiles
	ReadyChecks []ReadyCheck

	AuthService    *service.AuthService
	SessionService *service.SessionService
	MFAService     *service.MFAService
	AuctionService *service.AuctionService
	Hub            *broadcast.Hub
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		RateLimits:   httpx.ProfilesFromEnv(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerMFA()
	r.registerAuctions()
	r.registerWebsocket()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Squeezy Auction Service API
//	@version		0.1.0
//	@description	Account, session and MFA management plus live auctions with bidding.
//	@description
//	@description				Access tokens are HS256 JWTs sent as a bearer token or the accessToken cookie.
//	@description				Live updates are pushed over the websocket at /v1/ws.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/squeezy
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

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(sessionAuthenticator{auth: r.AuthService})
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, Cookies: r.Cookies}

	// Credential endpoints are limited by IP and the submitted email so one
	// address cannot spray accounts and one account cannot be brute forced
	// from many requests.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.RateLimits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.RateLimits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.RateLimits.Moderate),
		),
	)
	r.Mux.Handle("POST /v1/auth/verify/email",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(r.RateLimits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIPAndJSONField(r.RateLimits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(r.RateLimits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(),
			httpx.RateLimitByUser(r.RateLimits.Moderate),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			r.authn(),
			httpx.RateLimitByUser(r.RateLimits.Lenient),
		)
	}

	r.Mux.Handle("GET /v1/sessions", secured(h.HandleList))
	r.Mux.Handle("GET /v1/sessions/current", secured(h.HandleCurrent))
	r.Mux.Handle("DELETE /v1/sessions/{id}", secured(h.HandleDelete))
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService, Cookies: r.Cookies}

	// POST /mfa/setup - moderate rate limit by user
	r.Mux.Handle("POST /v1/mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			r.authn(),
			httpx.RateLimitByUser(r.RateLimits.Moderate),
		),
	)

	// POST /mfa/verify - strict rate limit by user (prevent brute force of TOTP codes)
	r.Mux.Handle("POST /v1/mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			r.authn(),
			httpx.RateLimitByUser(r.RateLimits.Strict),
		),
	)

	r.Mux.Handle("PUT /v1/mfa/revoke",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			r.authn(),
			httpx.RateLimitByUser(r.RateLimits.Moderate),
		),
	)

	// POST /mfa/verify-login - strict, keyed by the account being logged into
	r.Mux.Handle("POST /v1/mfa/verify-login",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyLogin),
			httpx.RateLimitByIPAndJSONField(r.RateLimits.Strict, "email"),
		),
	)
}

func (r *Router) registerAuctions() {
	h := &AuctionsHandler{AuctionService: r.AuctionService}

	r.Mux.Handle("GET /v1/auctions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.RateLimitByIP(r.RateLimits.Public),
		),
	)
	r.Mux.Handle("GET /v1/auctions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(r.RateLimits.Public),
		),
	)
	r.Mux.Handle("POST /v1/auctions",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.authn(),
			httpx.RateLimitByUser(r.RateLimits.Moderate),
		),
	)
	r.Mux.Handle("POST /v1/auctions/{id}/bids",
		httpx.Chain(http.HandlerFunc(h.HandleBid),
			r.authn(),
			httpx.RateLimitByUser(r.RateLimits.Lenient),
		),
	)
}

func (r *Router) registerWebsocket() {
	h := &WSHandler{Hub: r.Hub, Authenticator: sessionAuthenticator{auth: r.AuthService}}

	r.Mux.Handle("GET /v1/ws",
		httpx.Chain(h,
			httpx.RateLimitByIP(r.RateLimits.Lenient),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes poll often, so they get the lenient profile.
	r.Mux.Handle("GET /livez",
		httpx.Chain(http.HandlerFunc(r.HandleLivez),
			httpx.RateLimitByIP(r.RateLimits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(http.HandlerFunc(r.HandleReadyz),
			httpx.RateLimitByIP(r.RateLimits.Lenient),
		),
	)
}
