package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"stanza/internal/auth"
	"stanza/internal/config"
	"stanza/internal/db"
	"stanza/internal/keys"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	generator TextGenerator,
) *Server {
	userRepo := db.NewUserRepository(database)
	poemRepo := db.NewPoemRepository(database)
	keyRepo := db.NewAccessKeyRepository(database)
	chatRepo := db.NewChatMessageRepository(database)

	tokenService := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	adminRegistry := auth.NewVirtualAdminRegistry(cfg.Auth.Admins)
	authenticator := auth.NewAuthenticator(tokenService, adminRegistry, userRepo)
	keyService := keys.NewService(keyRepo)

	authHandler := NewAuthHandler(userRepo, tokenService, adminRegistry, authenticator)
	oauthHandler := NewOAuthHandler(cfg.OAuth.Google, userRepo, tokenService)
	userHandler := NewUserHandler(userRepo)
	poemHandler := NewPoemHandler(poemRepo, userRepo, adminRegistry)
	adminHandler := NewAdminHandler(poemRepo)
	aiHandler := NewAIHandler(keyService, userRepo, chatRepo, generator)
	healthHandler := NewHealthHandler(database)

	sessionMiddleware := NewSessionMiddleware(authenticator)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB
		r.Use(sessionMiddleware.LoadIdentity)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(10, time.Minute))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.Post("/logout", authHandler.Logout)

			if oauthHandler.Enabled() {
				r.Get("/google/login", oauthHandler.Login)
				r.Get("/google/callback", oauthHandler.Callback)
			}
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(RequireAuth)
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)
		})

		r.Route("/poems", func(r chi.Router) {
			r.Get("/", poemHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)
				r.Post("/toggle-read", poemHandler.ToggleRead)
				r.Post("/toggle-pin", poemHandler.TogglePin)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/poems", adminHandler.List)
			r.Post("/poems", adminHandler.Create)
			r.Put("/poems/{title}", adminHandler.Update)
			r.Delete("/poems/{title}", adminHandler.Delete)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/keys", aiHandler.GenerateKey)
				r.Get("/keys", aiHandler.ListKeys)
				r.Delete("/keys/{key}", aiHandler.DisableKey)
			})
			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)
				r.Post("/verify-key", aiHandler.VerifyKey)
				r.With(httprate.LimitByIP(20, time.Minute)).Post("/chat", aiHandler.Chat)
			})
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
