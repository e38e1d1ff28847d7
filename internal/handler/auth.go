package handler

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/projectxs/backend/internal/apperror"
	"github.com/projectxs/backend/internal/auth"
	"github.com/projectxs/backend/internal/model"
	"github.com/projectxs/backend/internal/service"
)

// AuthHandler serves registration, login, the OAuth edge, and email
// verification.
//
// OAUTH IN A DESKTOP LAUNCHER:
// The launcher opens a real browser window at /api/auth/google (or
// /api/auth/apple). The callback lands back here, we resolve the account,
// and redirect to a tiny success page whose URL carries the session token —
// the launcher watches the window's navigation, scrapes the token, and
// closes the window. No cookies persist beyond the CSRF state.
type AuthHandler struct {
	authSvc      *service.AuthService
	verification *service.VerificationService
	google       auth.Provider // nil when the provider isn't configured
	apple        auth.Provider
	logger       *slog.Logger
}

func NewAuthHandler(
	authSvc *service.AuthService,
	verification *service.VerificationService,
	google auth.Provider,
	apple auth.Provider,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authSvc:      authSvc,
		verification: verification,
		google:       google,
		apple:        apple,
		logger:       logger,
	}
}

// authResponse is the success shape for register/login.
type authResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
}

// HandleRegister creates a local account.
//
// HTTP: POST /api/auth/register {"username", "password", "email"?}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, apperror.ValidationFailed("username", "Username and password required"))
		return
	}

	result, err := h.authSvc.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: result.User, Token: result.Token})
}

// HandleLogin authenticates a local account.
//
// HTTP: POST /api/auth/login {"username", "password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, apperror.ValidationFailed("username", "Username and password required"))
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: result.User, Token: result.Token})
}

// HandleOAuthStart redirects the browser to the provider's authorization
// page, planting the anti-CSRF state in a short-lived cookie.
//
// HTTP: GET /api/auth/google, GET /api/auth/apple
func (h *AuthHandler) HandleOAuthStart(provider model.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := h.provider(provider)
		if p == nil {
			http.NotFound(w, r)
			return
		}

		state := xid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     "oauth_state",
			Value:    state,
			Path:     "/",
			MaxAge:   600, // long enough to approve, short enough to limit replay
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, p.AuthURL(state), http.StatusTemporaryRedirect)
	}
}

// HandleOAuthCallback completes a federated login: CSRF check, code
// exchange at the provider edge, then account resolution in the service.
//
// HTTP: GET /api/auth/google/callback (query params)
// HTTP: POST /api/auth/apple/callback (form post — Apple's response_mode)
func (h *AuthHandler) HandleOAuthCallback(provider model.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := h.provider(provider)
		if p == nil {
			http.NotFound(w, r)
			return
		}

		// Apple posts the parameters as a form; Google sends a query
		// string. FormValue reads both.
		state := r.FormValue("state")
		code := r.FormValue("code")

		stateCookie, err := r.Cookie("oauth_state")
		if err != nil || stateCookie.Value == "" || state != stateCookie.Value {
			h.logger.Warn("oauth callback: state mismatch", slog.String("provider", string(provider)))
			h.redirectError(w, r, "Authentication failed")
			return
		}
		// The state is single-use.
		http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

		if errParam := r.FormValue("error"); errParam != "" {
			h.logger.Info("oauth callback: user denied authorization",
				slog.String("provider", string(provider)),
				slog.String("error", errParam),
			)
			h.redirectError(w, r, "Authentication cancelled")
			return
		}
		if code == "" {
			h.redirectError(w, r, "Authentication failed")
			return
		}

		profile, err := p.Exchange(r.Context(), code)
		if err != nil {
			h.logger.Error("oauth callback: exchange failed",
				slog.String("provider", string(provider)),
				slog.String("error", err.Error()),
			)
			h.redirectError(w, r, fmt.Sprintf("%s authentication failed", provider))
			return
		}

		result, err := h.authSvc.FederatedLogin(r.Context(), provider, profile)
		if err != nil {
			h.logger.Error("oauth callback: resolution failed",
				slog.String("provider", string(provider)),
				slog.String("error", err.Error()),
			)
			h.redirectError(w, r, "Authentication failed")
			return
		}

		// Hand the session to the launcher via the success page URL.
		userJSON, err := json.Marshal(result.User)
		if err != nil {
			h.redirectError(w, r, "Authentication failed")
			return
		}
		dest := fmt.Sprintf("/api/auth/callback/success?token=%s&user=%s",
			url.QueryEscape(result.Token), url.QueryEscape(string(userJSON)))
		http.Redirect(w, r, dest, http.StatusSeeOther)
	}
}

func (h *AuthHandler) provider(provider model.Provider) auth.Provider {
	switch provider {
	case model.ProviderGoogle:
		return h.google
	case model.ProviderApple:
		return h.apple
	default:
		return nil
	}
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r,
		"/api/auth/callback/error?error="+url.QueryEscape(message),
		http.StatusSeeOther)
}

// HandleCallbackSuccess is the page the launcher's OAuth window lands on.
// The launcher reads the token from the URL and closes the window; the
// page itself just reassures anyone looking at it.
//
// HTTP: GET /api/auth/callback/success
func (h *AuthHandler) HandleCallbackSuccess(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<html>
  <body>
    <h2>Authentication Successful!</h2>
    <p>Redirecting...</p>
    <script>setTimeout(() => window.close(), 1000);</script>
  </body>
</html>`)
}

// HandleCallbackError shows the terminal failure page for the OAuth window.
//
// HTTP: GET /api/auth/callback/error?error=...
func (h *AuthHandler) HandleCallbackError(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("error")
	if msg == "" {
		msg = "Authentication failed"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// html/template-style escaping matters even on a throwaway page: the
	// message comes from the query string.
	fmt.Fprintf(w, `<html>
  <body>
    <h2>Authentication Failed</h2>
    <p>%s</p>
    <p>This window will close automatically...</p>
    <script>setTimeout(() => window.close(), 3000);</script>
  </body>
</html>`, html.EscapeString(msg))
}

// HandleVerifyEmail checks a submitted verification code.
//
// HTTP: POST /api/auth/verify-email {"userId", "code"}
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicID string `json:"userId"`
		Code     string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PublicID == "" || req.Code == "" {
		writeError(w, apperror.ValidationFailed("userId", "User ID and verification code required"))
		return
	}

	alreadyVerified, err := h.verification.Verify(r.Context(), req.PublicID, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Email verified successfully!"
	if alreadyVerified {
		message = "Email already verified"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

// HandleResendVerification issues a fresh code for an unverified account.
//
// HTTP: POST /api/auth/resend-verification {"userId"}
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicID string `json:"userId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PublicID == "" {
		writeError(w, apperror.ValidationFailed("userId", "User ID required"))
		return
	}

	if err := h.verification.Resend(r.Context(), req.PublicID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Verification code sent to your email",
	})
}
