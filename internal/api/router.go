package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/jackc/pgx/v5/pgxpool"

	customMiddleware "github.com/Jeffreasy/LaventeCareAuthSystems/internal/api/middleware"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/auth"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/vault"
)

// Server wires the HTTP surface (§6) over the auth and vault services,
// grounded on the teacher's router.go shape with the tenant/RBAC/MFA/IoT
// wiring removed.
type Server struct {
	Router       *chi.Mux
	Pool         *pgxpool.Pool
	Auth         *auth.AuthService
	Vault        *vault.Service
	Logger       *slog.Logger
	appURL       string
	isProduction bool
}

// NewServer builds the chi router and mounts every route in spec.md §6.
func NewServer(pool *pgxpool.Pool, authService *auth.AuthService, vaultService *vault.Service, tokenProvider auth.TokenProvider, logger *slog.Logger, appURL string, isProduction bool) *Server {
	r := chi.NewRouter()

	server := &Server{
		Router:       r,
		Pool:         pool,
		Auth:         authService,
		Vault:        vaultService,
		Logger:       logger,
		appURL:       appURL,
		isProduction: isProduction,
	}

	// 1. Core middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// 2. Sentry (must wrap panic recovery so it observes the panic too).
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	r.Use(sentryHandler.Handle)

	// 3. Logger & recovery.
	r.Use(customMiddleware.RequestLogger)
	r.Use(customMiddleware.PanicRecovery)

	// 4. Ambient per-IP defense-in-depth, layered in front of the
	// account-scoped login rate-limiter (C6) and OTP limits (C5).
	limiter := customMiddleware.NewIPRateLimiter(5, 10)
	r.Use(limiter.Middleware)

	requireAuth := customMiddleware.AuthMiddleware(tokenProvider)

	authHandler := NewAuthHandler(server)
	vaultHandler := NewVaultHandler(vaultService)

	r.Get("/health", server.HealthHandler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Patch("/verif/otp", authHandler.VerifyEmail)
		r.Patch("/verif/identifier", authHandler.InstallIdentifier)
		r.Post("/refresh", authHandler.RefreshTokens)
		r.Post("/report-failed", authHandler.ReportFailed)
		r.Post("/unlock-account", authHandler.UnlockAccount)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Delete("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})
	})

	r.Get("/session/check", authHandler.CheckSession)

	r.Route("/user", func(r chi.Router) {
		r.Get("/by-email", authHandler.GetUserByEmail)
		r.Post("/identifier", authHandler.GetUserIdentifier)
	})

	r.Route("/vault", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", vaultHandler.Create)
		r.Get("/", vaultHandler.ListAll)
		r.Get("/search", vaultHandler.Search)
		r.Put("/{id}", vaultHandler.Update)
		r.Delete("/{id}", vaultHandler.Delete)
	})

	return server
}
