package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"askhub.org/internal/audit"
	"askhub.org/internal/auth"
)

// Admin endpoints back the user-management collaborator: role changes,
// deactivation and bulk token revocation. All of them sit behind
// requireRole(admin); the collaborator is responsible for notifying the
// affected identity afterwards.

type changeRoleRequest struct {
	Role string `json:"role"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (a *API) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.ChangeRole(r.Context(), id, role); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.role_changed", map[string]any{
		"identity": id,
		"role":     role.String(),
	})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "role": role})
}

func (a *API) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.SetActive(r.Context(), id, req.Active); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.active_changed", map[string]any{
		"identity": id,
		"active":   req.Active,
	})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": req.Active})
}

func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version, err := a.auth.BumpVersion(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.tokens_revoked", map[string]any{
		"identity": id,
		"version":  version,
	})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "version": version})
}
