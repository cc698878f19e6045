package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/identsvc/go-user-accounts/app/observability/metrics"
	"github.com/identsvc/go-user-accounts/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// PGXQuerier is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepo defines the contract for user data persistence. Uniqueness of
// username, email and salt is enforced atomically by the database
// constraints; callers must never check-then-insert.
type UserRepo interface {
	// Create inserts a new user. Returns types.ErrConflict when username or
	// email is already taken, types.ErrValidation when the role is outside
	// the enumerated set.
	Create(ctx context.Context, params types.CreateUserParams) (*types.User, error)

	// GetByID retrieves a user by id. Absence is a normal outcome surfaced
	// as types.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)

	// GetByUsernameOrEmail retrieves a user matching the identifier on
	// either unique column.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*types.User, error)

	// UpdateByID applies a partial patch and returns the post-update record.
	UpdateByID(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error)

	// UpdateCredentials replaces the salt and password hash.
	UpdateCredentials(ctx context.Context, id uuid.UUID, salt, passwordHash string) error

	// UpdateRole sets the role and returns the post-update record.
	UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (*types.User, error)

	// DeleteByID removes the record. Returns types.ErrNotFound when no
	// record matches; success carries no data.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// List returns all users.
	List(ctx context.Context) ([]types.User, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	db     PGXQuerier
}

func NewPostgresUserRepo(db PGXQuerier, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = "id, username, email, password_hash, salt, role, created_at, updated_at"

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// mapPgError translates constraint violations into the shared error taxonomy.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			field := "username or email"
			switch pgErr.ConstraintName {
			case "users_username_key":
				field = "username"
			case "users_email_key":
				field = "email"
			}
			return fmt.Errorf("%w: %s already taken", types.ErrConflict, field)
		case "23514": // check_violation
			return fmt.Errorf("%w: role outside the enumerated set", types.ErrValidation)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: missing required field %s", types.ErrValidation, pgErr.ColumnName)
		}
	}
	return err
}

func (r *PostgresUserRepo) observe(ctx context.Context, start time.Time, err error) {
	m := metrics.Get()
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.DbQueryErrorsTotal.Add(ctx, 1)
	}
}

func (r *PostgresUserRepo) Create(ctx context.Context, params types.CreateUserParams) (*types.User, error) {
	if params.Username == "" || params.Email == "" || params.PasswordHash == "" || params.Salt == "" {
		return nil, fmt.Errorf("%w: missing required fields", types.ErrValidation)
	}
	if !types.ValidRole(string(params.Role)) {
		return nil, fmt.Errorf("%w: invalid role %q", types.ErrValidation, params.Role)
	}

	start := time.Now()
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, salt, role)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+userColumns,
		params.Username, params.Email, params.PasswordHash, params.Salt, params.Role)

	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	r.observe(ctx, start, err)
	return u, err
}

func (r *PostgresUserRepo) GetByUsernameOrEmail(ctx context.Context, identifier string) (*types.User, error) {
	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 OR email = $1", identifier))
	r.observe(ctx, start, err)
	return u, err
}

func (r *PostgresUserRepo) UpdateByID(ctx context.Context, id uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	setClauses := make([]string, 0, 4)
	args := make([]any, 0, 4)
	argID := 1

	addClause := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if params.Username != nil {
		addClause("username", strings.TrimSpace(*params.Username))
	}
	if params.Email != nil {
		addClause("email", strings.TrimSpace(*params.Email))
	}
	if params.Role != nil {
		// An explicit empty role is a validation error, not a request for the
		// default; the empty-default in ParseRole exists for registration's
		// omitted-role case only.
		if *params.Role == "" {
			return nil, fmt.Errorf("%w: role must not be empty", types.ErrValidation)
		}
		role, err := types.ParseRole(*params.Role)
		if err != nil {
			return nil, err
		}
		addClause("role", role)
	}

	if len(setClauses) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields provided", types.ErrValidation)
	}

	setClauses = append(setClauses, "updated_at = now()")
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argID, userColumns)
	args = append(args, id)

	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	r.observe(ctx, start, err)
	if err != nil {
		return nil, mapPgError(err)
	}
	return u, nil
}

func (r *PostgresUserRepo) UpdateCredentials(ctx context.Context, id uuid.UUID, salt, passwordHash string) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET salt = $1, password_hash = $2, updated_at = now() WHERE id = $3",
		salt, passwordHash, id)
	r.observe(ctx, start, err)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role types.Role) (*types.User, error) {
	if !types.ValidRole(string(role)) {
		return nil, fmt.Errorf("%w: invalid role %q", types.ErrValidation, role)
	}

	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx,
		"UPDATE users SET role = $1, updated_at = now() WHERE id = $2 RETURNING "+userColumns,
		role, id))
	r.observe(ctx, start, err)
	if err != nil {
		return nil, mapPgError(err)
	}
	return u, nil
}

func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	r.observe(ctx, start, err)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]types.User, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at")
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
