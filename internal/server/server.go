// Package server wires the whole backend together: database, services,
// handlers, routes, and graceful shutdown.
//
// This is the composition root — every dependency is constructed and
// connected here, in one place, and handed down explicitly. The store is
// one handle (sqlite.DB) passed into each service constructor; nothing
// reaches for a global.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/projectxs/backend/internal/auth"
	"github.com/projectxs/backend/internal/config"
	"github.com/projectxs/backend/internal/handler"
	"github.com/projectxs/backend/internal/mail"
	"github.com/projectxs/backend/internal/middleware"
	"github.com/projectxs/backend/internal/model"
	sqliteRepo "github.com/projectxs/backend/internal/repository/sqlite"
	"github.com/projectxs/backend/internal/service"
)

// Server owns the router, the database handle, and the listen/shutdown
// lifecycle.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency graph from config.
//
// WIRING ORDER (leaves first):
//
//	sqlite.DB
//	  → PublicIDAllocator, TokenService, PasswordService, mail.Dispatcher
//	    → VerificationService
//	      → AuthService, FriendService
//	        → handlers → routes
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	if cfg.SeedTestUsers {
		passwords := auth.NewPasswordService()
		if err := service.SeedTestUsers(context.Background(), db, passwords, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("seeding test users: %w", err)
		}
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var dispatcher mail.Dispatcher
	switch s.cfg.EmailProvider {
	case "resend":
		dispatcher = mail.NewResendDispatcher(s.cfg.ResendAPIKey, s.cfg.EmailFrom)
	default:
		dispatcher = mail.NewConsoleDispatcher(s.logger)
	}

	allocator := service.NewPublicIDAllocator(s.db)
	verification := service.NewVerificationService(s.db, dispatcher, s.logger)
	authSvc := service.NewAuthService(s.db, allocator, tokens, passwords, verification, s.logger)
	friendSvc := service.NewFriendService(s.db, s.db, s.logger)

	// Providers are optional: an unset client ID leaves the field nil and
	// its routes answering 404.
	var google, apple auth.Provider
	if s.cfg.GoogleClientID != "" {
		google = auth.NewGoogleProvider(s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.cfg.GoogleCallbackURL)
	}
	if s.cfg.AppleClientID != "" {
		apple = auth.NewAppleProvider(s.cfg.AppleClientID, s.cfg.AppleClientSecret, s.cfg.AppleCallbackURL)
	}

	authHandler := handler.NewAuthHandler(authSvc, verification, google, apple, s.logger)
	friendHandler := handler.NewFriendHandler(friendSvc, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok","message":"ProjectXS Backend Server Running"}`))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/verify-email", authHandler.HandleVerifyEmail)
			r.Post("/resend-verification", authHandler.HandleResendVerification)

			r.Get("/google", authHandler.HandleOAuthStart(model.ProviderGoogle))
			r.Get("/google/callback", authHandler.HandleOAuthCallback(model.ProviderGoogle))
			r.Get("/apple", authHandler.HandleOAuthStart(model.ProviderApple))
			// Apple uses response_mode=form_post, so its callback is a POST.
			r.Post("/apple/callback", authHandler.HandleOAuthCallback(model.ProviderApple))

			r.Get("/callback/success", authHandler.HandleCallbackSuccess)
			r.Get("/callback/error", authHandler.HandleCallbackError)
		})

		// Everything social requires a valid session token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/users/search", friendHandler.HandleSearch)
			r.Get("/friends/{userId}", friendHandler.HandleListFriends)
			r.Post("/friends/request", friendHandler.HandleSendRequest)
			r.Get("/friends/requests/{userId}", friendHandler.HandleListRequests)
			r.Post("/friends/accept/{requestId}", friendHandler.HandleAcceptRequest)
			r.Post("/friends/reject/{requestId}", friendHandler.HandleRejectRequest)
			r.Delete("/friends/{userId}/{friendUserId}", friendHandler.HandleRemoveFriend)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s
// budget), close the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
