package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPGStore(db, time.Second), mock
}

func identityRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name",
		"role", "active", "verified", "token_version", "last_login_at", "created_at", "updated_at",
	})
}

func TestPGStoreFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select .+ from identities where email=\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(identityRows().AddRow(
			"id-1", "alice@example.com", "$2a$hash", "Alice", "Example",
			"user", true, true, int64(2), nil, now, now,
		))

	identity, err := store.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if identity.ID != "id-1" || identity.Role != RoleUser || identity.TokenVersion != 2 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.LastLoginAt != nil {
		t.Fatal("null last_login_at should scan to nil")
	}
}

func TestPGStoreFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select .+ from identities where id=\$1`).
		WithArgs("missing").
		WillReturnRows(identityRows())

	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGStoreCreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`insert into identities`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_email_idx"})

	err := store.Create(context.Background(), &Identity{
		ID:    "id-1",
		Email: "alice@example.com",
		Role:  RoleUser,
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("got %v, want ErrDuplicateEmail", err)
	}
}

func TestPGStoreBumpVersion(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`update identities set token_version = token_version + 1`)).
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(int64(3)))

	version, err := store.BumpVersion(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("BumpVersion: %v", err)
	}
	if version != 3 {
		t.Fatalf("version = %d, want 3", version)
	}
}

func TestPGStoreBumpVersionMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`update identities set token_version = token_version + 1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}))

	if _, err := store.BumpVersion(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGStoreSetRoleMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update identities set role=\$2`).
		WithArgs("missing", "admin").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.SetRole(context.Background(), "missing", RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGStoreSetActive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`update identities set active=\$2`).
		WithArgs("id-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SetActive(context.Background(), "id-1", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
}

func TestPGStoreTimeoutIsRetryable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select .+ from identities where id=\$1`).
		WithArgs("id-1").
		WillReturnError(context.DeadlineExceeded)

	_, err := store.Find(context.Background(), "id-1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("got %v, want ErrStoreUnavailable", err)
	}
}
