package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/repository"
)

const entryColumns = "id, user_id, category_id, kind, amount_cents, description, occurred_at, created_at, updated_at"

// EntryRepository implements port.EntryRepository using PostgreSQL.
type EntryRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewEntryRepository wires an entry repository over any executor that satisfies pgExecutor.
func NewEntryRepository(exec pgExecutor) *EntryRepository {
	repo := &EntryRepository{
		exec:    exec,
		builder: newBuilder(),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new entry row.
func (r *EntryRepository) Create(ctx context.Context, entry domain.Entry) error {
	query := r.builder.Insert("finance.entries").
		Columns("id", "user_id", "category_id", "kind", "amount_cents", "description", "occurred_at", "created_at", "updated_at").
		Values(entry.ID, entry.UserID, entry.CategoryID, entry.Kind, entry.AmountCents, entry.Description, entry.OccurredAt, entry.CreatedAt, entry.UpdatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert entry: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	return nil
}

// Update rewrites the mutable fields of an entry.
func (r *EntryRepository) Update(ctx context.Context, entry domain.Entry) error {
	query := r.builder.Update("finance.entries").
		Set("category_id", entry.CategoryID).
		Set("kind", entry.Kind).
		Set("amount_cents", entry.AmountCents).
		Set("description", entry.Description).
		Set("occurred_at", entry.OccurredAt).
		Set("updated_at", entry.UpdatedAt).
		Where(squirrel.Eq{"id": entry.ID})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update entry: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an entry by primary key.
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	query := r.builder.Delete("finance.entries").Where(squirrel.Eq{"id": id})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build delete entry: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID fetches an entry by primary key.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	query := r.builder.Select(entryColumns).
		From("finance.entries").
		Where(squirrel.Eq{"id": id}).
		Limit(1)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select entry: %w", err)
	}

	var entry domain.Entry
	row := r.exec.QueryRow(ctx, sql, args...)
	if err := scanEntry(row, &entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	return &entry, nil
}

// ListByUser returns the user's entries matching the filter, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, filter port.EntryFilter) ([]domain.Entry, error) {
	query := r.builder.Select(entryColumns).
		From("finance.entries").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("occurred_at DESC")

	if filter.CategoryID != "" {
		query = query.Where(squirrel.Eq{"category_id": filter.CategoryID})
	}
	if filter.Kind != "" {
		query = query.Where(squirrel.Eq{"kind": filter.Kind})
	}
	if !filter.From.IsZero() {
		query = query.Where(squirrel.GtOrEq{"occurred_at": filter.From})
	}
	if !filter.To.IsZero() {
		query = query.Where(squirrel.Lt{"occurred_at": filter.To})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	return r.list(ctx, query)
}

// ListByUserSince returns every entry for the user from since onwards,
// oldest first, feeding the forecast computation.
func (r *EntryRepository) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]domain.Entry, error) {
	query := r.builder.Select(entryColumns).
		From("finance.entries").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"occurred_at": since}).
		OrderBy("occurred_at ASC")

	return r.list(ctx, query)
}

func (r *EntryRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]domain.Entry, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list entries: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var entry domain.Entry
		if err := scanEntry(rows, &entry); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row, entry *domain.Entry) error {
	return row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.CategoryID,
		&entry.Kind,
		&entry.AmountCents,
		&entry.Description,
		&entry.OccurredAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
}

var _ port.EntryRepository = (*EntryRepository)(nil)
