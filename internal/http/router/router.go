package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/myfinance/backend/internal/health"
	"github.com/myfinance/backend/internal/http/handler"
	"github.com/myfinance/backend/internal/http/middleware"
	"github.com/myfinance/backend/internal/http/response"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
)

type Dependencies struct {
	UserHandler      *handler.UserHandler
	ExpenseHandler   *handler.LedgerHandler
	IncomeHandler    *handler.LedgerHandler
	SessionTokens    *security.SessionTokenManager
	Users            repository.UserRepository
	CORSOrigins      []string
	AuthRateLimitRPM int
	APIRateLimitRPM  int
	GlobalLimiter    func(http.Handler) http.Handler
	AuthLimiter      func(http.Handler) http.Handler
	Readiness        *health.ProbeRunner
	EnableOTelHTTP   bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalLimiter != nil {
		r.Use(dep.GlobalLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())
	}

	authLimiter := dep.AuthLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	gate := middleware.SessionGate(dep.SessionTokens, dep.Users)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.JSON(w, r, http.StatusServiceUnavailable, map[string]any{"status": "unready", "checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(authLimiter).Post("/", dep.UserHandler.Register)
			r.With(authLimiter).Post("/login", dep.UserHandler.Login)
			r.With(authLimiter).Post("/send-otp", dep.UserHandler.SendVerificationCode)
			r.With(authLimiter).Post("/verify-otp", dep.UserHandler.VerifyCode)

			// Logout stays outside the gate so an expired session can
			// still clear its cookie.
			r.Delete("/logout", dep.UserHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(gate)
				r.Get("/", dep.UserHandler.GetProfile)
				r.Put("/", dep.UserHandler.UpdateProfile)
				r.With(authLimiter).Put("/reset-password", dep.UserHandler.ResetPassword)
			})
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Use(gate)
			mountLedger(r, dep.ExpenseHandler)
		})
		r.Route("/incomes", func(r chi.Router) {
			r.Use(gate)
			mountLedger(r, dep.IncomeHandler)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

func mountLedger(r chi.Router, h *handler.LedgerHandler) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/all", h.ListAll)
	r.Get("/categories", h.Categories)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
