package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles. Adding a role means adding a
// constant here and a row to the capability table below.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// DefaultRole is assigned to newly registered identities.
const DefaultRole = RoleUser

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	case RoleGuest:
		return RoleGuest, nil
	default:
		return "", fmt.Errorf("auth: unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// Permission identifies a single capability a role may exercise.
type Permission string

const (
	PermUserRead         Permission = "user:read"
	PermUserUpdate       Permission = "user:update"
	PermUserDelete       Permission = "user:delete"
	PermUserManage       Permission = "user:manage"
	PermQuestionCreate   Permission = "question:create"
	PermQuestionUpdate   Permission = "question:update"
	PermQuestionDelete   Permission = "question:delete"
	PermQuestionModerate Permission = "question:moderate"
	PermAnswerCreate     Permission = "answer:create"
	PermAnswerUpdate     Permission = "answer:update"
	PermAnswerDelete     Permission = "answer:delete"
	PermAnswerModerate   Permission = "answer:moderate"
	PermSystemConfig     Permission = "system:config"
)

// Capability tiers. Each tier extends the one below it, so the superset chain
// admin > user > guest holds by construction.
var (
	guestPermissions = []Permission{
		PermUserRead,
		PermQuestionCreate,
		PermAnswerCreate,
	}

	userPermissions = append(guestPermissions[:len(guestPermissions):len(guestPermissions)],
		PermUserUpdate,
		PermQuestionUpdate,
		PermQuestionDelete,
		PermAnswerUpdate,
		PermAnswerDelete,
	)

	adminPermissions = append(userPermissions[:len(userPermissions):len(userPermissions)],
		PermUserDelete,
		PermUserManage,
		PermQuestionModerate,
		PermAnswerModerate,
		PermSystemConfig,
	)
)

// PermissionsFor resolves a role to its ordered capability set. Unknown roles
// resolve to nil, which authorizes nothing.
func PermissionsFor(role Role) []Permission {
	var perms []Permission
	switch role {
	case RoleAdmin:
		perms = adminPermissions
	case RoleUser:
		perms = userPermissions
	case RoleGuest:
		perms = guestPermissions
	default:
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the role's capability set includes perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range PermissionsFor(role) {
		if p == perm {
			return true
		}
	}
	return false
}
