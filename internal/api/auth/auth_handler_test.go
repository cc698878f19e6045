package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/identsvc/go-user-accounts/config"
	"github.com/identsvc/go-user-accounts/internal/types"
)

// MockAuthService mocks the AuthService interface.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password, requestedRole string) (*types.UserView, string, error) {
	args := m.Called(ctx, username, email, password, requestedRole)
	v, _ := args.Get(0).(*types.UserView)
	return v, args.String(1), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*types.UserView, string, error) {
	args := m.Called(ctx, identifier, password)
	v, _ := args.Get(0).(*types.UserView)
	return v, args.String(1), args.Error(2)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	args := m.Called(ctx, userID, oldPassword, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) ChangeRole(ctx context.Context, targetID uuid.UUID, newRole string) (*types.UserView, error) {
	args := m.Called(ctx, targetID, newRole)
	v, _ := args.Get(0).(*types.UserView)
	return v, args.Error(1)
}

func newTestHandler(t *testing.T) (*AuthHandler, *MockAuthService) {
	t.Helper()
	svc := new(MockAuthService)
	cfg := config.JWTConfig{SecretKey: "test-secret-key", AccessTokenTTL: 15 * time.Minute}
	return NewAuthHandler(svc, cfg, testDiscardLogger()), svc
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) types.Response {
	t.Helper()
	var resp types.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterHandler_Created(t *testing.T) {
	h, svc := newTestHandler(t)

	view := &types.UserView{ID: uuid.New(), Username: "alice", Email: "alice@example.com", Role: types.RoleUser}
	svc.On("Register", mock.Anything, "alice", "alice@example.com", "s3cret", "").
		Return(view, "signed.jwt.token", nil)

	body := `{"username":"alice","email":"alice@example.com","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/registro", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusCreated, resp.Status, "envelope status must mirror the transport code")
	assert.NotNil(t, resp.Data)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie, "register must deliver the token cookie")
	assert.Equal(t, "signed.jwt.token", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// Credential material never appears in the response body.
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, rec.Body.String(), "salt")
	svc.AssertExpectations(t)
}

func TestRegisterHandler_Conflict(t *testing.T) {
	h, svc := newTestHandler(t)

	svc.On("Register", mock.Anything, "alice", "alice@example.com", "s3cret", "").
		Return(nil, "", types.ErrConflict)

	body := `{"username":"alice","email":"alice@example.com","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/registro", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Nil(t, sessionCookie(rec))
}

func TestRegisterHandler_BadJSON(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/registro", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_Success(t *testing.T) {
	h, svc := newTestHandler(t)

	view := &types.UserView{ID: uuid.New(), Username: "alice", Role: types.RoleUser}
	svc.On("Login", mock.Anything, "alice", "s3cret").Return(view, "signed.jwt.token", nil)

	body := `{"identifier":"alice","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, sessionCookie(rec))
	svc.AssertExpectations(t)
}

// The cookie lifetime follows the configured token TTL, so a longer TTL
// never leaves the cookie expiring before the token it carries.
func TestLoginHandler_CookieLifetimeFollowsTokenTTL(t *testing.T) {
	svc := new(MockAuthService)
	cfg := config.JWTConfig{SecretKey: "test-secret-key", AccessTokenTTL: time.Hour}
	h := NewAuthHandler(svc, cfg, testDiscardLogger())

	view := &types.UserView{ID: uuid.New(), Username: "alice", Role: types.RoleUser}
	svc.On("Login", mock.Anything, "alice", "s3cret").Return(view, "signed.jwt.token", nil)

	body := `{"identifier":"alice","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)
}

func TestLoginHandler_MissingFields(t *testing.T) {
	h, svc := newTestHandler(t)

	body := `{"identifier":"alice"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginHandler_GenericUnauthorized(t *testing.T) {
	h, svc := newTestHandler(t)

	svc.On("Login", mock.Anything, "nobody", "whatever").
		Return(nil, "", types.ErrUnauthenticated)

	body := `{"identifier":"nobody","password":"whatever"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Invalid credentials", resp.Message)
}

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/salir", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestChangePasswordHandler(t *testing.T) {
	h, svc := newTestHandler(t)
	id := uuid.New()

	svc.On("ChangePassword", mock.Anything, id, "", "new-password").Return(nil)

	body := `{"new_password":"new-password"}`
	req := requestWithURLParam(http.MethodPut, "/cambiar-password/"+id.String(), body, id.String())
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestChangePasswordHandler_InvalidID(t *testing.T) {
	h, _ := newTestHandler(t)

	req := requestWithURLParam(http.MethodPut, "/cambiar-password/not-a-uuid", `{"new_password":"x"}`, "not-a-uuid")
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeRoleHandler(t *testing.T) {
	h, svc := newTestHandler(t)
	id := uuid.New()

	view := &types.UserView{ID: id, Username: "alice", Role: types.RoleAdmin}
	svc.On("ChangeRole", mock.Anything, id, "admin").Return(view, nil)

	body := `{"role":"admin"}`
	req := requestWithURLParam(http.MethodPut, "/cambiar-tipo-usuario/"+id.String(), body, id.String())
	rec := httptest.NewRecorder()
	h.ChangeRole(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, resp.Status)
	svc.AssertExpectations(t)
}

func TestChangeRoleHandler_NotFound(t *testing.T) {
	h, svc := newTestHandler(t)
	id := uuid.New()

	svc.On("ChangeRole", mock.Anything, id, "admin").Return(nil, types.ErrNotFound)

	req := requestWithURLParam(http.MethodPut, "/cambiar-tipo-usuario/"+id.String(), `{"role":"admin"}`, id.String())
	rec := httptest.NewRecorder()
	h.ChangeRole(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

// requestWithURLParam builds a request carrying a chi id URL parameter the
// way the router would.
func requestWithURLParam(method, target, body, id string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func testDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
