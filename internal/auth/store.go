package auth

import (
	"context"
	"time"
)

// Identity is the durable account record. The record's lifecycle (creation,
// deletion) belongs to the identity store; the auth core reads and bumps the
// revocation version and reads/writes the active and verified flags.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Active       bool
	Verified     bool
	TokenVersion int64
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public projection of an identity returned to clients. It
// never carries the password hash.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	Active    bool   `json:"is_active"`
	Verified  bool   `json:"is_verified"`
}

// Profile returns the client-facing view of the identity.
func (i *Identity) Profile() Profile {
	return Profile{
		ID:        i.ID,
		Email:     i.Email,
		FirstName: i.FirstName,
		LastName:  i.LastName,
		Role:      i.Role,
		Active:    i.Active,
		Verified:  i.Verified,
	}
}

// IdentityStore is the persistence collaborator for identities. Lookups return
// ErrNotFound for missing records, Create returns ErrDuplicateEmail on a
// normalized-email collision, and every method returns ErrStoreUnavailable
// (possibly wrapped) when the backing store cannot be reached in time.
type IdentityStore interface {
	Create(ctx context.Context, id *Identity) error
	Find(ctx context.Context, id string) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)

	// BumpVersion atomically increments the identity's revocation version and
	// returns the new value. The increment is committed before return, so a
	// caller that bumps and then answers its client is guaranteed every
	// subsequent validation sees the new version.
	BumpVersion(ctx context.Context, id string) (int64, error)

	SetActive(ctx context.Context, id string, active bool) error
	SetVerified(ctx context.Context, id string, verified bool) error
	SetRole(ctx context.Context, id string, role Role) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// Notifier delivers user-facing notifications for security-relevant events.
// Implemented by the notification collaborator; the core only hands off.
type Notifier interface {
	VerificationRequested(ctx context.Context, email, token string) error
}
