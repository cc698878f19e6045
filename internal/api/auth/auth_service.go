package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/identsvc/go-user-accounts/app/observability/metrics"
	"github.com/identsvc/go-user-accounts/internal/api/user"
	"github.com/identsvc/go-user-accounts/internal/types"
)

var _ AuthService = (*ServiceImpl)(nil)

// AuthService orchestrates the account lifecycle: registration, login,
// password change and role change. Records returned from any method are
// sanitized; plaintext passwords never leave this layer.
type AuthService interface {
	// Register creates a new account and issues a session token. The
	// requested role defaults to "user" when omitted.
	Register(ctx context.Context, username, email, password, requestedRole string) (*types.UserView, string, error)

	// Login authenticates by username or email. Absent identifier and wrong
	// password fail identically with types.ErrUnauthenticated.
	Login(ctx context.Context, identifier, password string) (*types.UserView, string, error)

	// ChangePassword re-salts and re-hashes the credential. When oldPassword
	// is non-empty it is verified first.
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error

	// ChangeRole sets the target's role to an explicit value. Callers must
	// have passed the admin gate; this method only validates the target.
	ChangeRole(ctx context.Context, targetID uuid.UUID, newRole string) (*types.UserView, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   user.UserRepo
	issuer *TokenIssuer
}

func NewServiceImpl(repo user.UserRepo, issuer *TokenIssuer, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		issuer: issuer,
	}
}

func (s *ServiceImpl) Register(ctx context.Context, username, email, password, requestedRole string) (*types.UserView, string, error) {
	l := s.logger.With(slog.String("service", "Register"))
	metrics.Get().RegisterRequestsTotal.Add(ctx, 1)

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: username, email and password are required", types.ErrValidation)
	}

	role, err := types.ParseRole(requestedRole)
	if err != nil {
		return nil, "", err
	}

	salt, err := GenerateSalt(DefaultHashCost)
	if err != nil {
		return nil, "", err
	}
	hash, err := HashPassword(password, salt)
	if err != nil {
		return nil, "", err
	}

	// Uniqueness is the store's job: a concurrent duplicate surfaces here
	// as types.ErrConflict, never as a race the service has to close.
	created, err := s.repo.Create(ctx, types.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(created.ID.String(), created.Username, created.Role)
	if err != nil {
		l.ErrorContext(ctx, "Token issuance failed after registration", slog.Any("error", err))
		return nil, "", err
	}

	view := created.Sanitized()
	return &view, token, nil
}

func (s *ServiceImpl) Login(ctx context.Context, identifier, password string) (*types.UserView, string, error) {
	l := s.logger.With(slog.String("service", "Login"))
	m := metrics.Get()
	m.LoginRequestsTotal.Add(ctx, 1)

	identifier = strings.TrimSpace(identifier)

	u, err := s.repo.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Same outcome as a wrong password: the caller must not learn
			// which check failed.
			m.LoginFailuresTotal.Add(ctx, 1)
			return nil, "", fmt.Errorf("%w: invalid credentials", types.ErrUnauthenticated)
		}
		return nil, "", err
	}

	if !VerifyPassword(password, u.PasswordHash) {
		m.LoginFailuresTotal.Add(ctx, 1)
		return nil, "", fmt.Errorf("%w: invalid credentials", types.ErrUnauthenticated)
	}

	token, err := s.issuer.Issue(u.ID.String(), u.Username, u.Role)
	if err != nil {
		l.ErrorContext(ctx, "Token issuance failed after login", slog.Any("error", err))
		return nil, "", err
	}

	view := u.Sanitized()
	return &view, token, nil
}

func (s *ServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password must not be empty", types.ErrValidation)
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	// Hardening option: verify the current password when the caller
	// provides it.
	if oldPassword != "" && !VerifyPassword(oldPassword, u.PasswordHash) {
		return fmt.Errorf("%w: invalid credentials", types.ErrUnauthenticated)
	}

	salt, err := GenerateSalt(DefaultHashCost)
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword, salt)
	if err != nil {
		return err
	}

	return s.repo.UpdateCredentials(ctx, userID, salt, hash)
}

func (s *ServiceImpl) ChangeRole(ctx context.Context, targetID uuid.UUID, newRole string) (*types.UserView, error) {
	// An explicit target role is required; toggling is not supported.
	if newRole == "" {
		return nil, fmt.Errorf("%w: role is required", types.ErrValidation)
	}
	role, err := types.ParseRole(newRole)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}

	view := updated.Sanitized()
	return &view, nil
}
