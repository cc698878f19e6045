package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/identsvc/go-user-accounts/config"
	"github.com/identsvc/go-user-accounts/internal/api"
	"github.com/identsvc/go-user-accounts/internal/types"
)

const sessionCookieName = "token"

type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
	sessionTTL  time.Duration
}

// NewAuthHandler builds the handler. The cookie lifetime tracks the token
// TTL so the cookie never outlives or undercuts the token it carries.
func NewAuthHandler(authService AuthService, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthHandler {
	ttl := jwtCfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		sessionTTL:  ttl,
	}
}

// setSessionCookie delivers the token via cookie alongside the body. A
// negative maxAge expires the cookie immediately.
func setSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	maxAgeSeconds := int(maxAge.Seconds())
	if maxAge < 0 {
		maxAgeSeconds = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// respondServiceError maps the shared error taxonomy onto envelope
// responses. Internal errors are logged and surfaced generically.
func (h *AuthHandler) respondServiceError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, types.ErrValidation):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrConflict):
		api.ErrorResponse(w, r, http.StatusConflict, "Username or email already taken")
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, types.ErrUnauthenticated):
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, types.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "Action forbidden")
	default:
		l.ErrorContext(r.Context(), "Internal error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fallback)
	}
}

// Register godoc
// @Summary      Register
// @Description  Creates an account and issues a session token, delivered in
// @Description  the body and as the token cookie.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      201 {object} types.Response
// @Failure      400 {object} types.Response
// @Failure      409 {object} types.Response
// @Router       /registro [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	view, token, err := h.authService.Register(ctx, req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		h.respondServiceError(w, r, l, err, "Registration failed")
		return
	}

	setSessionCookie(w, token, h.sessionTTL)
	api.SuccessResponse(w, r, http.StatusCreated, "User registered", SessionResponse{
		Token: token,
		User:  view,
	})
}

// Login godoc
// @Summary      Login
// @Description  Authenticates by username or email. Failures are a single
// @Description  generic invalid-credentials outcome.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      401 {object} types.Response
// @Router       /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Identifier == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Identifier and password are required")
		return
	}

	view, token, err := h.authService.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		h.respondServiceError(w, r, l, err, "Login failed")
		return
	}

	setSessionCookie(w, token, h.sessionTTL)
	api.SuccessResponse(w, r, http.StatusOK, "Login successful", SessionResponse{
		Token: token,
		User:  view,
	})
}

// Logout godoc
// @Summary      Logout
// @Description  Stateless acknowledgement; there is no server-side session
// @Description  to invalidate. Clears the token cookie.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.Response
// @Router       /salir [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	setSessionCookie(w, "", -1)
	api.SuccessResponse(w, r, http.StatusOK, "Session closed", nil)
}

// ChangePassword godoc
// @Summary      Change Password
// @Description  Sets a new password, re-salting and re-hashing. Verifies the
// @Description  old password when provided.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /cambiar-password/{id} [put]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ChangePassword"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ChangePassword(ctx, id, req.OldPassword, req.NewPassword); err != nil {
		h.respondServiceError(w, r, l, err, "Failed to change password")
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Password changed", nil)
}

// ChangeRole godoc
// @Summary      Change Role
// @Description  Sets the target account's role to an explicit value.
// @Description  Admin-gated by the role middleware.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Security     BearerAuth
// @Router       /cambiar-tipo-usuario/{id} [put]
func (h *AuthHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ChangeRole"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req ChangeRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.authService.ChangeRole(ctx, id, req.Role)
	if err != nil {
		h.respondServiceError(w, r, l, err, "Failed to change role")
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "Role updated", view)
}
