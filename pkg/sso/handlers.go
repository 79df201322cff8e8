package sso

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/cove/pkg/apperr"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/httputil"
)

// Handlers handles SSO configuration HTTP requests
type Handlers struct {
	storage    Storage
	authorizer authz.Authorizer
}

// NewHandlers creates a new SSO handlers instance
func NewHandlers(storage Storage, authorizer authz.Authorizer) *Handlers {
	return &Handlers{storage: storage, authorizer: authorizer}
}

// RegisterRoutes registers SSO configuration routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organizations/{id}/sso", h.getConfig).Methods("GET")
	router.HandleFunc("/organizations/{id}/sso", h.putConfig).Methods("PUT")
	router.HandleFunc("/organizations/{id}/sso", h.deleteConfig).Methods("DELETE")
}

func (h *Handlers) checkPermission(r *http.Request, action authz.OrgAction, orgID string) error {
	actorID := httputil.Actor(r)
	if actorID == "" {
		return apperr.NotAuthenticated("user identity required")
	}
	return h.authorizer.CheckPermissionOnOrganization(r.Context(), actorID, action, orgID)
}

// getConfig handles GET /organizations/{id}/sso
func (h *Handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.checkPermission(r, authz.ActionReadSettings, orgID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	config, err := h.storage.FindByOrg(r.Context(), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, config)
}

// putConfig handles PUT /organizations/{id}/sso
func (h *Handlers) putConfig(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var update ConfigUpdate
	if !httputil.ParseJSONOrError(w, r, &update) {
		return
	}

	if err := h.checkPermission(r, authz.ActionWriteSettings, orgID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if err := update.Validate(); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	config, err := h.storage.Upsert(r.Context(), orgID, update)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, config)
}

// deleteConfig handles DELETE /organizations/{id}/sso
func (h *Handlers) deleteConfig(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.checkPermission(r, authz.ActionWriteSettings, orgID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if err := h.storage.Delete(r.Context(), orgID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
