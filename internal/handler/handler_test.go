package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/projectxs/backend/internal/auth"
	"github.com/projectxs/backend/internal/mail"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/repository/sqlite"
	"github.com/projectxs/backend/internal/service"
)

// testEnv is a full backend over an in-memory database: real services,
// real router, recorded email — only the wire is fake.
type testEnv struct {
	router     *chi.Mux
	db         *sqlite.DB
	tokens     *auth.TokenService
	dispatcher *recordingDispatcher
}

type recordingDispatcher struct {
	sent []struct{ to, subject, html string }
}

var _ mail.Dispatcher = (*recordingDispatcher)(nil)

func (d *recordingDispatcher) Send(_ context.Context, to, subject, html string) error {
	d.sent = append(d.sent, struct{ to, subject, html string }{to, subject, html})
	return nil
}

// newTestEnv mirrors the server's wiring and route table, minus the OAuth
// providers (left nil, so their routes answer 404).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)
	dispatcher := &recordingDispatcher{}

	allocator := service.NewPublicIDAllocator(db)
	verification := service.NewVerificationService(db, dispatcher, logger)
	authSvc := service.NewAuthService(db, allocator, tokens, passwords, verification, logger)
	friendSvc := service.NewFriendService(db, db, logger)

	authHandler := NewAuthHandler(authSvc, verification, nil, nil, logger)
	friendHandler := NewFriendHandler(friendSvc, logger)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/verify-email", authHandler.HandleVerifyEmail)
			r.Post("/resend-verification", authHandler.HandleResendVerification)
			r.Get("/google", authHandler.HandleOAuthStart(model.ProviderGoogle))
			r.Get("/callback/error", authHandler.HandleCallbackError)
		})
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

	return &testEnv{router: router, db: db, tokens: tokens, dispatcher: dispatcher}
}

// do runs a request through the router. body (if non-nil) is marshalled to
// JSON; token (if non-empty) goes into the Authorization header.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a recorded JSON response body.
func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

// registerUser creates an account through the real endpoint and returns the
// response payload (user + token).
func (e *testEnv) registerUser(t *testing.T, username, password, email string) (publicID, token string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			UserID string `json:"userId"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.User.UserID, resp.Token
}
