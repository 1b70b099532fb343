package handler

import (
	"net/http"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/engine"
	"github.com/condozap/zap-cobranca-go/internal/infra/observability"
	"github.com/condozap/zap-cobranca-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps agrupa as dependências do router HTTP.
type Deps struct {
	Auth       *service.AuthService
	Admin      *service.AdminService
	Dispatcher *engine.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger

	// Ready verifica as dependências externas (banco) para o /readyz.
	Ready func() error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(deps.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	loginLimiter := NewRateLimiter(time.Minute, 10)
	webhookLimiter := NewRateLimiter(time.Minute, 600)

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(deps.Ready))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 📥 Webhook do gateway de WhatsApp
		// POST /v1/webhook/{session}
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(webhookLimiter, IPKey))
			r.Post("/webhook/{session}", webhookHandler(deps.Dispatcher, deps.Logger))
		})

		// =============================================
		// 2. 🔐 Login da API admin
		// POST /v1/admin/login
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(loginLimiter, IPKey))
			r.Post("/admin/login", loginHandler(deps.Auth, deps.Logger))
		})

		// =============================================
		// 3. 🛠 Provisionamento (JWT obrigatório)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(deps.Auth, deps.Logger))

			r.Post("/admin/users", createUserHandler(deps.Admin, deps.Logger))
			r.Post("/admin/tenants", createTenantHandler(deps.Admin, deps.Logger))
			r.Get("/admin/tenants", listTenantsHandler(deps.Admin, deps.Logger))
			r.Post("/admin/wa-sessions", createWASessionHandler(deps.Admin, deps.Logger))
			r.Post("/admin/assign-default-tenant", assignDefaultTenantHandler(deps.Admin, deps.Logger))
			r.Post("/admin/boletos/disparar", dispararHandler(deps.Admin, deps.Logger))
		})

		// =============================================
		// 4. 📊 Métricas do bot
		// GET /v1/metrics/bot
		// =============================================
		r.Get("/metrics/bot", botMetricsHandler(deps.Metrics, deps.Logger))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler(ready func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func botMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetBotSnapshot())
	}
}
