package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"askhub.org/internal/auth"
	"askhub.org/internal/obs"
)

const (
	authHeader   = "Authorization"
	bearerScheme = "Bearer "
)

// withAuth validates the bearer token and attaches the resulting principal to
// the request context. Every failure is a rejection with the taxonomy's HTTP
// status; nothing here can take the process down.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.RecordTokenValidation("missing")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.auth.Authorize(r.Context(), token)
		if err != nil {
			obs.RecordTokenValidation(validationOutcome(err))
			handleAuthError(w, r, err)
			return
		}
		obs.RecordTokenValidation("success")

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route on role membership. Runs after withAuth.
func (a *API) requireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			handleAuthError(w, r, auth.ErrInsufficientRole)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerScheme)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrRevoked):
		return "revoked"
	case errors.Is(err, auth.ErrStale):
		return "stale"
	case errors.Is(err, auth.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, auth.ErrWrongType):
		return "wrong_type"
	case errors.Is(err, auth.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "malformed"
	}
}
