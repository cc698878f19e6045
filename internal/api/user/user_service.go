package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/identsvc/go-user-accounts/internal/types"
)

var _ UserService = (*ServiceImpl)(nil)

// UserService exposes account lookup and mutation operations. Every record
// is sanitized before it crosses the service boundary.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*types.UserView, error)
	ListUsers(ctx context.Context) ([]types.UserView, error)
	UpdateUser(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.UserView, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewServiceImpl(repo UserRepo, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*types.UserView, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := u.Sanitized()
	return &view, nil
}

func (s *ServiceImpl) ListUsers(ctx context.Context) ([]types.UserView, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]types.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].Sanitized())
	}
	return views, nil
}

func (s *ServiceImpl) UpdateUser(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.UserView, error) {
	// Role re-validation happens in the repository through the shared
	// validator; empty strings on unique fields are rejected up front.
	if params.Username != nil && *params.Username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", types.ErrValidation)
	}
	if params.Email != nil && *params.Email == "" {
		return nil, fmt.Errorf("%w: email must not be empty", types.ErrValidation)
	}

	u, err := s.repo.UpdateByID(ctx, id, params)
	if err != nil {
		return nil, err
	}
	view := u.Sanitized()
	return &view, nil
}

func (s *ServiceImpl) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteByID(ctx, id)
}
