package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/repository"
)

func TestCategoryRepository_CreateDuplicateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCategoryRepository(mock)

	mock.ExpectExec(`INSERT INTO finance\.categories`).
		WithArgs(
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	category := domain.Category{ID: "cat-dup", UserID: "user-1", Name: "Rent", Kind: domain.EntryKindExpense}
	if err := repo.Create(context.Background(), category); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCategoryRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM finance\.categories`).
		WithArgs("cat-missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "cat-missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCategoryRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewCategoryRepository(mock)

	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "name", "kind", "created_at",
	}).AddRow(
		"cat-groceries", "user-1", "Groceries", domain.EntryKindExpense, now,
	).AddRow(
		"cat-salary", "user-1", "Salary", domain.EntryKindIncome, now,
	)

	mock.ExpectQuery(`SELECT .*FROM finance\.categories`).
		WithArgs("user-1").
		WillReturnRows(rows)

	categories, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected two categories, got %d", len(categories))
	}
	if categories[0].Name != "Groceries" || categories[1].Name != "Salary" {
		t.Fatalf("unexpected category order: %+v", categories)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
