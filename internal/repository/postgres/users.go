package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/repository"
)

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a user repository over any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: newBuilder(),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	query := r.builder.Insert("finance.users").
		Columns("id", "name", "email", "password_hash", "status", "is_active", "created_at").
		Values(user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Status, user.IsActive, user.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail fetches a user by case-normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

// UpdateLastLogin stamps the user's most recent successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := r.builder.Update("finance.users").
		Set("last_login", at.UTC()).
		Where(squirrel.Eq{"id": id})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update last login: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) getBy(ctx context.Context, cond squirrel.Eq) (*domain.User, error) {
	query := r.builder.Select("id", "name", "email", "password_hash", "status", "is_active", "created_at", "last_login").
		From("finance.users").
		Where(cond).
		Limit(1)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var user domain.User
	row := r.exec.QueryRow(ctx, sql, args...)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Status, &user.IsActive, &user.CreatedAt, &user.LastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
