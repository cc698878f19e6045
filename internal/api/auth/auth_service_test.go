package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/identsvc/go-user-accounts/app/observability/metrics"
	"github.com/identsvc/go-user-accounts/config"
	"github.com/identsvc/go-user-accounts/internal/types"
)

// MockUserRepo mocks the user.UserRepo interface.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, params types.CreateUserParams) (*types.User, error) {
	args := m.Called(ctx, params)
	u, _ := args.Get(0).(*types.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*types.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) GetByUsernameOrEmail(ctx context.Context, identifier string) (*types.User, error) {
	args := m.Called(ctx, identifier)
	u, _ := args.Get(0).(*types.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) UpdateByID(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	args := m.Called(ctx, id, params)
	u, _ := args.Get(0).(*types.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) UpdateCredentials(ctx context.Context, id uuid.UUID, salt, passwordHash string) error {
	args := m.Called(ctx, id, salt, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (*types.User, error) {
	args := m.Called(ctx, id, role)
	u, _ := args.Get(0).(*types.User)
	return u, args.Error(1)
}

func (m *MockUserRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepo) List(ctx context.Context) ([]types.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]types.User)
	return users, args.Error(1)
}

func newTestService(t *testing.T) (*ServiceImpl, *MockUserRepo) {
	t.Helper()
	metrics.InitAppMetrics() // global meter defaults to noop, safe in tests

	repo := new(MockUserRepo)
	issuer := NewTokenIssuer(config.JWTConfig{
		SecretKey:      "test-secret-key",
		Issuer:         "go-user-accounts",
		Audience:       "go-user-accounts",
		AccessTokenTTL: 15 * time.Minute,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServiceImpl(repo, issuer, logger), repo
}

func hashedUser(t *testing.T, username, email, password string, role types.Role) *types.User {
	t.Helper()
	salt, err := GenerateSalt(DefaultHashCost)
	require.NoError(t, err)
	hash, err := HashPassword(password, salt)
	require.NoError(t, err)
	now := time.Now()
	return &types.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRegister_Success(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(p types.CreateUserParams) bool {
		return p.Username == "alice" &&
			p.Email == "alice@example.com" &&
			p.Role == types.RoleUser &&
			p.PasswordHash != "" && p.PasswordHash != "s3cret" &&
			p.Salt != ""
	})).Return(hashedUser(t, "alice", "alice@example.com", "s3cret", types.RoleUser), nil)

	view, token, err := svc.Register(ctx, " alice ", "alice@example.com", "s3cret", "")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, types.RoleUser, view.Role)
	repo.AssertExpectations(t)
}

func TestRegister_ValidationErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     string
	}{
		{"missing username", "", "a@b.com", "pw", ""},
		{"missing email", "alice", "", "pw", ""},
		{"missing password", "alice", "a@b.com", "", ""},
		{"whitespace-only username", "   ", "a@b.com", "pw", ""},
		{"invalid role", "alice", "a@b.com", "pw", "superadmin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.username, tt.email, tt.password, tt.role)
			require.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestRegister_DuplicateConflict(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(nil, types.ErrConflict)

	_, _, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret", "user")
	require.ErrorIs(t, err, types.ErrConflict)
	repo.AssertExpectations(t)
}

func TestLogin_Success(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	stored := hashedUser(t, "alice", "alice@example.com", "s3cret", types.RoleAdmin)
	repo.On("GetByUsernameOrEmail", ctx, "alice").Return(stored, nil)

	view, token, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, stored.ID, view.ID)
	assert.Equal(t, types.RoleAdmin, view.Role)
	repo.AssertExpectations(t)
}

// Absent identifier and wrong password must produce the same generic
// failure so a caller cannot probe which accounts exist.
func TestLogin_GenericFailure(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	stored := hashedUser(t, "alice", "alice@example.com", "s3cret", types.RoleUser)
	repo.On("GetByUsernameOrEmail", ctx, "nobody").Return(nil, types.ErrNotFound)
	repo.On("GetByUsernameOrEmail", ctx, "alice").Return(stored, nil)

	_, _, errAbsent := svc.Login(ctx, "nobody", "whatever")
	_, _, errWrongPw := svc.Login(ctx, "alice", "not-the-password")

	require.ErrorIs(t, errAbsent, types.ErrUnauthenticated)
	require.ErrorIs(t, errWrongPw, types.ErrUnauthenticated)
	assert.Equal(t, errAbsent.Error(), errWrongPw.Error())
	assert.NotErrorIs(t, errAbsent, types.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestLogin_ByEmail(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	stored := hashedUser(t, "alice", "alice@example.com", "s3cret", types.RoleUser)
	repo.On("GetByUsernameOrEmail", ctx, "alice@example.com").Return(stored, nil)

	view, _, err := svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Username)
}

func TestChangePassword_ThenLogin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	stored := hashedUser(t, "alice", "alice@example.com", "old-password", types.RoleUser)
	repo.On("GetByID", ctx, stored.ID).Return(stored, nil)

	var newSalt, newHash string
	repo.On("UpdateCredentials", ctx, stored.ID, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			newSalt = args.String(2)
			newHash = args.String(3)
		}).Return(nil)

	err := svc.ChangePassword(ctx, stored.ID, "old-password", "new-password")
	require.NoError(t, err)
	require.NotEqual(t, stored.Salt, newSalt, "credential change must re-salt")

	// The persisted hash verifies against the new password only.
	assert.True(t, VerifyPassword("new-password", newHash))
	assert.False(t, VerifyPassword("old-password", newHash))
	repo.AssertExpectations(t)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	stored := hashedUser(t, "alice", "alice@example.com", "old-password", types.RoleUser)
	repo.On("GetByID", ctx, stored.ID).Return(stored, nil)

	err := svc.ChangePassword(ctx, stored.ID, "not-the-old-one", "new-password")
	require.ErrorIs(t, err, types.ErrUnauthenticated)
	repo.AssertNotCalled(t, "UpdateCredentials", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_EmptyNewPassword(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.ChangePassword(context.Background(), uuid.New(), "", "")
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	id := uuid.New()

	repo.On("GetByID", ctx, id).Return(nil, types.ErrNotFound)

	err := svc.ChangePassword(ctx, id, "", "new-password")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestChangeRole_ExplicitSet(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	promoted := hashedUser(t, "alice", "alice@example.com", "pw", types.RoleAdmin)
	repo.On("UpdateRole", ctx, promoted.ID, types.RoleAdmin).Return(promoted, nil)

	view, err := svc.ChangeRole(ctx, promoted.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, view.Role)
	repo.AssertExpectations(t)
}

func TestChangeRole_Validation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.ChangeRole(ctx, uuid.New(), "")
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = svc.ChangeRole(ctx, uuid.New(), "owner")
	require.ErrorIs(t, err, types.ErrValidation)

	repo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}
