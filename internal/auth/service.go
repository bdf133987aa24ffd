package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"askhub.org/internal/ids"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14
	defaultVerifyTTL  = 24 * time.Hour
)

// Service orchestrates credential verification, token issuance, revocation and
// role-based capability resolution.
type Service struct {
	store     IdentityStore
	blocklist Blocklist
	codec     *Codec
	hasher    *Hasher
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration
	verifyTTL  time.Duration

	registrationOpen bool
	allowedDomains   []string
	requireVerified  bool
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithVerifyTTL configures the email verification token lifetime.
func WithVerifyTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.verifyTTL = ttl
		}
		return nil
	}
}

// WithRegistrationOpen toggles open registration.
func WithRegistrationOpen(open bool) ServiceOption {
	return func(s *Service) error {
		s.registrationOpen = open
		return nil
	}
}

// WithAllowedEmailDomains restricts registration to the listed email domains.
// An empty list allows any domain.
func WithAllowedEmailDomains(domains []string) ServiceOption {
	return func(s *Service) error {
		for _, d := range domains {
			d = strings.TrimSpace(strings.ToLower(d))
			if d != "" {
				s.allowedDomains = append(s.allowedDomains, d)
			}
		}
		return nil
	}
}

// WithEmailVerification requires new registrations to verify their email
// before the account becomes active.
func WithEmailVerification(required bool) ServiceOption {
	return func(s *Service) error {
		s.requireVerified = required
		return nil
	}
}

// WithNotifier sets the notification collaborator.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) error {
		if n != nil {
			s.notifier = n
		}
		return nil
	}
}

// WithHasher overrides the credential hasher.
func WithHasher(h *Hasher) ServiceOption {
	return func(s *Service) error {
		if h != nil {
			s.hasher = h
		}
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the auth core. The secret signs every issued token.
func NewService(store IdentityStore, blocklist Blocklist, secret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	if blocklist == nil {
		return nil, errors.New("auth: blocklist is required")
	}
	codec, err := NewCodec(secret)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		store:            store,
		blocklist:        blocklist,
		codec:            codec,
		hasher:           NewHasher(0, 0),
		logger:           zap.NewNop(),
		now:              time.Now,
		accessTTL:        defaultAccessTTL,
		refreshTTL:       defaultRefreshTTL,
		verifyTTL:        defaultVerifyTTL,
		registrationOpen: true,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	svc.codec.now = svc.now
	if svc.notifier == nil {
		svc.notifier = logNotifier{logger: svc.logger}
	}
	return svc, nil
}

// logNotifier is the fallback notification collaborator: it only records that
// a handoff would have happened.
type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) VerificationRequested(_ context.Context, email, _ string) error {
	n.logger.Info("verification email requested", zap.String("email", email))
	return nil
}

// Principal is the authorized identity handed to collaborator endpoints.
type Principal struct {
	Subject     string
	Role        Role
	Permissions []Permission
}

// HasPermission reports whether the principal may exercise perm.
func (p Principal) HasPermission(perm Permission) bool {
	for _, have := range p.Permissions {
		if have == perm {
			return true
		}
	}
	return false
}

// Session is the bundle returned on successful login or registration.
type Session struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	Profile      Profile      `json:"user"`
	Permissions  []Permission `json:"permissions"`
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult is either an immediate session or a pending-verification
// marker, depending on deployment policy.
type RegisterResult struct {
	Session             *Session
	PendingVerification bool
	Email               string
}

// IssueAccess signs a fresh access token for the identity, stamping its
// current role and revocation version.
func (s *Service) IssueAccess(identity *Identity) (string, time.Duration, error) {
	version := identity.TokenVersion
	claims := Claims{
		Role:      identity.Role,
		Version:   &version,
		TokenType: TokenTypeAccess,
	}
	claims.Subject = identity.ID
	token, err := s.codec.Encode(claims, s.accessTTL)
	if err != nil {
		return "", 0, err
	}
	return token, s.accessTTL, nil
}

// IssueRefresh signs a refresh token. Refresh tokens carry only the subject
// and type: no role, no version.
func (s *Service) IssueRefresh(identityID string) (string, error) {
	claims := Claims{TokenType: TokenTypeRefresh}
	claims.Subject = identityID
	return s.codec.Encode(claims, s.refreshTTL)
}

// IssueVerifyEmail signs a single-purpose, short-lived verification token.
func (s *Service) IssueVerifyEmail(identityID string) (string, error) {
	claims := Claims{TokenType: TokenTypeVerifyEmail}
	claims.Subject = identityID
	return s.codec.Encode(claims, s.verifyTTL)
}

// ValidateAccess checks a presented access token against the codec, the
// blocklist and the identity's current revocation version. On success it
// returns the subject, role and resolved capability set.
func (s *Service) ValidateAccess(ctx context.Context, token string) (Principal, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return Principal{}, err
	}
	if claims.TokenType != TokenTypeAccess {
		return Principal{}, ErrWrongType
	}
	revoked, err := s.blocklist.IsRevoked(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		return Principal{}, ErrRevoked
	}
	identity, err := s.store.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}
	if claims.EmbeddedVersion() < identity.TokenVersion {
		return Principal{}, ErrStale
	}
	return Principal{
		Subject:     claims.Subject,
		Role:        claims.Role,
		Permissions: PermissionsFor(claims.Role),
	}, nil
}

// Authorize validates a bearer token and, when required roles are given,
// checks membership. Mandatory precondition on every privileged operation.
func (s *Service) Authorize(ctx context.Context, token string, requiredRoles ...Role) (Principal, error) {
	principal, err := s.ValidateAccess(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if len(requiredRoles) == 0 {
		return principal, nil
	}
	for _, role := range requiredRoles {
		if principal.Role == role {
			return principal, nil
		}
	}
	return Principal{}, ErrInsufficientRole
}

// Login verifies credentials and opens a session. A missing account and a
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	identity, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := s.hasher.Verify(ctx, password, identity.PasswordHash); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !identity.Active {
		return Session{}, ErrAccountInactive
	}
	session, err := s.openSession(identity)
	if err != nil {
		return Session{}, err
	}
	// Best effort: a failed last-login write must not fail the login.
	if err := s.store.RecordLogin(ctx, identity.ID, s.now().UTC()); err != nil {
		s.logger.Warn("record last login failed", zap.String("identity", identity.ID), zap.Error(err))
	}
	return session, nil
}

// Register creates an identity and either opens a session immediately or, when
// email verification is required, hands a verification token to the notifier.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if !s.registrationOpen {
		return RegisterResult{}, ErrRegistrationClosed
	}
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return RegisterResult{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if in.Password == "" {
		return RegisterResult{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if !s.domainAllowed(email) {
		return RegisterResult{}, ErrDomainNotAllowed
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return RegisterResult{}, err
	}
	now := s.now().UTC()
	identity := &Identity{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         DefaultRole,
		Active:       !s.requireVerified,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		return RegisterResult{}, err
	}

	if s.requireVerified {
		token, err := s.IssueVerifyEmail(identity.ID)
		if err != nil {
			return RegisterResult{}, err
		}
		if err := s.notifier.VerificationRequested(ctx, identity.Email, token); err != nil {
			s.logger.Warn("verification handoff failed", zap.String("identity", identity.ID), zap.Error(err))
		}
		return RegisterResult{PendingVerification: true, Email: identity.Email}, nil
	}

	session, err := s.openSession(identity)
	if err != nil {
		return RegisterResult{}, err
	}
	if err := s.store.RecordLogin(ctx, identity.ID, now); err != nil {
		s.logger.Warn("record last login failed", zap.String("identity", identity.ID), zap.Error(err))
	}
	return RegisterResult{Session: &session, Email: identity.Email}, nil
}

// Logout revokes the presented token until its natural expiry. Idempotent:
// revoking an already revoked or undecodable token succeeds silently.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMalformed
	}
	ttl := s.accessTTL
	if claims, err := s.codec.Decode(token); err == nil && claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Time.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.blocklist.Revoke(ctx, token, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new access token. The new token is
// stamped from the identity's CURRENT role and version, so a role change is
// reflected on the next refresh even though the refresh token carries no role.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Duration, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return "", 0, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", 0, ErrWrongType
	}
	identity, err := s.store.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", 0, ErrInvalidCredentials
		}
		return "", 0, err
	}
	if !identity.Active {
		return "", 0, ErrAccountInactive
	}
	return s.IssueAccess(identity)
}

// VerifyEmail consumes a verification token, marking the identity verified and
// active.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return err
	}
	if claims.TokenType != TokenTypeVerifyEmail {
		return ErrWrongType
	}
	if err := s.store.SetVerified(ctx, claims.Subject, true); err != nil {
		return err
	}
	return s.store.SetActive(ctx, claims.Subject, true)
}

// BumpVersion invalidates every previously issued access token for the
// identity by incrementing its revocation version.
func (s *Service) BumpVersion(ctx context.Context, identityID string) (int64, error) {
	return s.store.BumpVersion(ctx, identityID)
}

// SetActive flips the active flag. Deactivation also bumps the revocation
// version so outstanding access tokens stop validating before this call
// returns.
func (s *Service) SetActive(ctx context.Context, identityID string, active bool) error {
	if err := s.store.SetActive(ctx, identityID, active); err != nil {
		return err
	}
	if !active {
		if _, err := s.store.BumpVersion(ctx, identityID); err != nil {
			return err
		}
	}
	return nil
}

// ChangeRole reassigns the identity's role and bumps the revocation version so
// tokens carrying the old role stop validating.
func (s *Service) ChangeRole(ctx context.Context, identityID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if err := s.store.SetRole(ctx, identityID, role); err != nil {
		return err
	}
	_, err := s.store.BumpVersion(ctx, identityID)
	return err
}

// Identity returns the stored identity for an authorized subject.
func (s *Service) Identity(ctx context.Context, identityID string) (*Identity, error) {
	return s.store.Find(ctx, identityID)
}

// AccessTTL exposes the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

func (s *Service) openSession(identity *Identity) (Session, error) {
	access, ttl, err := s.IssueAccess(identity)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.IssueRefresh(identity.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    int64(ttl.Seconds()),
		RefreshToken: refresh,
		Profile:      identity.Profile(),
		Permissions:  PermissionsFor(identity.Role),
	}, nil
}

func (s *Service) domainAllowed(email string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, allowed := range s.allowedDomains {
		if domain == allowed {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
