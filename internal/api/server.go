// Package api exposes the platform over a JSON HTTP API.
package api

import (
	"net/http"
	"net/netip"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"asset-tokenization-kit/internal/assets"
	"asset-tokenization-kit/internal/auth"
	"asset-tokenization-kit/internal/documents"
	"asset-tokenization-kit/internal/exchangerate"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/observability"
)

var tracer = otel.Tracer("api")

// Server routes HTTP requests to the services.
type Server struct {
	auth          *auth.Service
	assets        *assets.Service
	documents     *documents.Service
	exchangeRates *exchangerate.Service
	limiter       *auth.RateLimiter
	corsOrigins   []string
	trusted       []netip.Prefix
	router        *mux.Router
	log           *logrus.Entry
}

// Options contains configuration for creating a Server.
type Options struct {
	Auth           *auth.Service         // required
	Assets         *assets.Service       // required
	Documents      *documents.Service    // optional, disables /api/documents when nil
	ExchangeRates  *exchangerate.Service // optional, disables /api/exchange-rates when nil
	Limiter        *auth.RateLimiter     // optional, guards sign-in and verification routes
	CORSOrigins    []string
	TrustedProxies []netip.Prefix // peers allowed to set X-Forwarded-For; empty trusts none
	Logger         logrus.FieldLogger
}

// New creates a Server with every route registered.
func New(opts Options) *Server {
	s := &Server{
		auth:          opts.Auth,
		assets:        opts.Assets,
		documents:     opts.Documents,
		exchangeRates: opts.ExchangeRates,
		limiter:       opts.Limiter,
		corsOrigins:   opts.CORSOrigins,
		trusted:       opts.TrustedProxies,
		router:        mux.NewRouter(),
		log:           logging.Component(opts.Logger, "api"),
	}
	s.routes()
	return s
}

// Handler returns the root handler. CORS and the trace id wrap the router so
// preflight and unmatched requests get them too.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.corsOrigins)(traceMiddleware(s.router))
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.instrument, s.recoverMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NOT_FOUND", Message: "route not found"})
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/api/auth").Subrouter()
	a.Handle("/sign-up", http.HandlerFunc(s.signUp)).Methods(http.MethodPost)
	a.Handle("/sign-in", s.rateLimit("sign-in", http.HandlerFunc(s.signIn))).Methods(http.MethodPost)
	a.Handle("/sign-out", s.authed(s.signOut)).Methods(http.MethodPost)
	a.Handle("/session", s.authed(s.session)).Methods(http.MethodGet)
	a.Handle("/pincode/enable", s.limited("pincode", s.enablePincode)).Methods(http.MethodPost)
	a.Handle("/pincode/disable", s.limited("pincode", s.disablePincode)).Methods(http.MethodPost)
	a.Handle("/pincode/update", s.limited("pincode", s.updatePincode)).Methods(http.MethodPost)
	a.Handle("/secret-codes/generate", s.limited("secret-codes", s.generateSecretCodes)).Methods(http.MethodPost)
	a.Handle("/secret-codes/confirm", s.limited("secret-codes", s.confirmSecretCodes)).Methods(http.MethodPost)
	a.Handle("/two-factor/enable", s.limited("two-factor", s.enableTwoFactor)).Methods(http.MethodPost)
	a.Handle("/two-factor/verify-totp", s.limited("two-factor", s.verifyTOTP)).Methods(http.MethodPost)
	a.Handle("/two-factor/disable", s.limited("two-factor", s.disableTwoFactor)).Methods(http.MethodPost)

	u := r.PathPrefix("/api/users/me").Subrouter()
	u.Handle("", s.authed(s.me)).Methods(http.MethodGet)
	u.Handle("", s.authed(s.updateMe)).Methods(http.MethodPatch)
	u.Handle("/assets", s.authed(s.myAssets)).Methods(http.MethodGet)
	u.Handle("/actions", s.authed(s.myActions)).Methods(http.MethodGet)
	u.Handle("/identity", s.authed(s.myIdentity)).Methods(http.MethodGet)
	u.Handle("/transactions", s.authed(s.myTransactions)).Methods(http.MethodGet)
	u.Handle("/airdrops", s.authed(s.myAirdrops)).Methods(http.MethodGet)

	s.assetRoutes(r.PathPrefix("/api/assets").Subrouter())

	r.Handle("/api/transactions/{hash}", s.authed(s.transaction)).Methods(http.MethodGet)
	r.Handle("/api/settings/base-currency", s.authed(s.baseCurrency)).Methods(http.MethodGet)
	r.Handle("/api/settings/base-currency", s.authed(s.setBaseCurrency)).Methods(http.MethodPut)

	if s.exchangeRates != nil {
		r.Handle("/api/exchange-rates", s.authed(s.listExchangeRates)).Methods(http.MethodGet)
		r.Handle("/api/exchange-rates/convert", s.authed(s.convert)).Methods(http.MethodGet)
		r.Handle("/api/exchange-rates/history", s.authed(s.rateHistory)).Methods(http.MethodGet)
	}

	if s.documents != nil {
		d := r.PathPrefix("/api/documents").Subrouter()
		d.Handle("", s.authed(s.uploadDocument)).Methods(http.MethodPost)
		d.Handle("", s.authed(s.listDocuments)).Methods(http.MethodGet)
		// Registered before /{id} so "regulations" is not taken for an id.
		d.Handle("/regulations", s.authed(s.upsertRegulation)).Methods(http.MethodPut)
		d.Handle("/regulations", s.authed(s.listRegulations)).Methods(http.MethodGet)
		d.Handle("/{id}", s.authed(s.getDocument)).Methods(http.MethodGet)
		d.Handle("/{id}", s.authed(s.deleteDocument)).Methods(http.MethodDelete)
	}
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return s.requireAuth(h)
}

// limited authenticates first so the limiter keys on the user.
func (s *Server) limited(name string, h http.HandlerFunc) http.Handler {
	return s.requireAuth(s.rateLimit(name, h))
}
