package postgres

import (
	"context"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor abstracts pgxpool.Pool and pgx.Tx so repositories can run both
// standalone and inside transactions.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Repositories bundles every PostgreSQL-backed repository over one pool.
type Repositories struct {
	Users      *UserRepository
	Entries    *EntryRepository
	Categories *CategoryRepository
}

// NewRepositories wires all repositories against the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(pool),
		Entries:    NewEntryRepository(pool),
		Categories: NewCategoryRepository(pool),
	}
}
