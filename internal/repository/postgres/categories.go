package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/repository"
)

// CategoryRepository implements port.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCategoryRepository wires a category repository over any executor that satisfies pgExecutor.
func NewCategoryRepository(exec pgExecutor) *CategoryRepository {
	repo := &CategoryRepository{
		exec:    exec,
		builder: newBuilder(),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new category row.
func (r *CategoryRepository) Create(ctx context.Context, category domain.Category) error {
	query := r.builder.Insert("finance.categories").
		Columns("id", "user_id", "name", "kind", "created_at").
		Values(category.ID, category.UserID, category.Name, category.Kind, category.CreatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert category: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert category: %w", err)
	}

	return nil
}

// GetByID fetches a category by primary key.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := r.builder.Select("id", "user_id", "name", "kind", "created_at").
		From("finance.categories").
		Where(squirrel.Eq{"id": id}).
		Limit(1)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select category: %w", err)
	}

	var category domain.Category
	row := r.exec.QueryRow(ctx, sql, args...)
	if err := row.Scan(&category.ID, &category.UserID, &category.Name, &category.Kind, &category.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}

	return &category, nil
}

// ListByUser returns the user's categories ordered by name.
func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]domain.Category, error) {
	query := r.builder.Select("id", "user_id", "name", "kind", "created_at").
		From("finance.categories").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("name ASC")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name, &category.Kind, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

var _ port.CategoryRepository = (*CategoryRepository)(nil)
