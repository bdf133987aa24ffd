package httpapi

import (
	"errors"
	"net/http"

	"askhub.org/internal/audit"
	"askhub.org/internal/auth"
	"askhub.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.RecordLogin(loginOutcome(err))
		handleAuthError(w, r, err)
		return
	}
	obs.RecordLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"identity": session.Profile.ID,
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		obs.RecordRegistration(registrationOutcome(err))
		handleAuthError(w, r, err)
		return
	}
	obs.RecordRegistration("success")
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"email":   result.Email,
		"pending": result.PendingVerification,
	})

	if result.PendingVerification {
		writeJSON(w, http.StatusCreated, map[string]any{
			"email":   result.Email,
			"message": "registration successful, check your email to verify your account",
		})
		return
	}
	writeJSON(w, http.StatusCreated, result.Session)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		// A missing token is the client's mistake, not a server failure.
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.Logout(r.Context(), token); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	access, ttl, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": access,
		"token_type":   "bearer",
		"expires_in":   int64(ttl.Seconds()),
	})
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.VerifyEmail(r.Context(), req.Token); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.email_verified", nil)
	writeJSON(w, http.StatusOK, map[string]any{"message": "email verified"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	identity, err := a.auth.Identity(r.Context(), principal.Subject)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        identity.Profile(),
		"permissions": principal.Permissions,
	})
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrAccountInactive):
		return "inactive"
	case errors.Is(err, auth.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func registrationOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrRegistrationClosed):
		return "closed"
	case errors.Is(err, auth.ErrDomainNotAllowed):
		return "domain_not_allowed"
	case errors.Is(err, auth.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, auth.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
