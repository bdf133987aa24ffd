package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ IdentityStore = (*PGStore)(nil)

const defaultStoreTimeout = 3 * time.Second

// PGStore implements IdentityStore on PostgreSQL. Every call carries a
// timeout; a deadline or connection failure surfaces as ErrStoreUnavailable so
// callers retry instead of treating it as an authorization failure.
type PGStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPGStore wraps db. A zero timeout selects the default per-call timeout.
func NewPGStore(db *sql.DB, timeout time.Duration) *PGStore {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &PGStore{db: db, timeout: timeout}
}

func (s *PGStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

const identityColumns = `id, email, password_hash, first_name, last_name, role, active, verified, token_version, last_login_at, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, id *Identity) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`insert into identities(id, email, password_hash, first_name, last_name, role, active, verified, token_version)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		id.ID, id.Email, id.PasswordHash, id.FirstName, id.LastName, string(id.Role), id.Active, id.Verified, id.TokenVersion,
	)
	return mapStoreError(err)
}

func (s *PGStore) Find(ctx context.Context, id string) (*Identity, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from identities where id=$1`, id)
	return scanIdentity(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from identities where email=$1`, email)
	return scanIdentity(row)
}

func (s *PGStore) BumpVersion(ctx context.Context, id string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var version int64
	err := s.db.QueryRowContext(ctx,
		`update identities set token_version = token_version + 1, updated_at = now()
		 where id=$1 returning token_version`, id).Scan(&version)
	if err != nil {
		return 0, mapStoreError(err)
	}
	return version, nil
}

func (s *PGStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.exec(ctx, `update identities set active=$2, updated_at = now() where id=$1`, id, active)
}

func (s *PGStore) SetVerified(ctx context.Context, id string, verified bool) error {
	return s.exec(ctx, `update identities set verified=$2, updated_at = now() where id=$1`, id, verified)
}

func (s *PGStore) SetRole(ctx context.Context, id string, role Role) error {
	return s.exec(ctx, `update identities set role=$2, updated_at = now() where id=$1`, id, string(role))
}

func (s *PGStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx, `update identities set last_login_at=$2 where id=$1`, id, at)
}

func (s *PGStore) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapStoreError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIdentity(row *sql.Row) (*Identity, error) {
	var (
		id        Identity
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(&id.ID, &id.Email, &id.PasswordHash, &id.FirstName, &id.LastName,
		&role, &id.Active, &id.Verified, &id.TokenVersion, &lastLogin, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return nil, mapStoreError(err)
	}
	id.Role = Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		id.LastLoginAt = &t
	}
	return &id, nil
}

const pgUniqueViolation = "23505"

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
