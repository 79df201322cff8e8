package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/cove/pkg/httputil"
	"github.com/platinummonkey/cove/pkg/orgs"
)

// OrgHandlers handles organization HTTP requests
type OrgHandlers struct {
	service *orgs.Service
}

// NewOrgHandlers creates a new organization handlers instance
func NewOrgHandlers(service *orgs.Service) *OrgHandlers {
	return &OrgHandlers{service: service}
}

// RegisterRoutes registers organization routes
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organizations", h.createOrganization).Methods("POST")
	router.HandleFunc("/organizations", h.listOrganizations).Methods("GET")
	router.HandleFunc("/organizations/{id}", h.getOrganization).Methods("GET")
	router.HandleFunc("/organizations/{id}", h.updateOrganization).Methods("PUT")
	router.HandleFunc("/organizations/{id}", h.deleteOrganization).Methods("DELETE")

	router.HandleFunc("/organizations/{id}/members", h.listMembers).Methods("GET")
	router.HandleFunc("/organizations/{id}/members/{user_id}", h.addOrUpdateMember).Methods("PUT")
	router.HandleFunc("/organizations/{id}/members/{user_id}", h.removeMember).Methods("DELETE")

	router.HandleFunc("/organizations/{id}/invite", h.getOrCreateInvite).Methods("GET")
	router.HandleFunc("/organizations/{id}/invite", h.resetInvite).Methods("POST")
	router.HandleFunc("/invites/{invite_id}/join", h.joinOrganization).Methods("POST")

	router.HandleFunc("/organizations/{id}/settings", h.getSettings).Methods("GET")
	router.HandleFunc("/organizations/{id}/settings", h.updateSettings).Methods("PUT")
	router.HandleFunc("/organizations/{id}/workspace-classes", h.listWorkspaceClasses).Methods("GET")

	router.HandleFunc("/organizations/{id}/maintenance-mode", h.getMaintenanceMode).Methods("GET")
	router.HandleFunc("/organizations/{id}/maintenance-mode", h.setMaintenanceMode).Methods("PUT")
	router.HandleFunc("/organizations/{id}/maintenance-notification", h.getMaintenanceNotification).Methods("GET")
	router.HandleFunc("/organizations/{id}/maintenance-notification", h.setMaintenanceNotification).Methods("PUT")
}

// createOrganization handles POST /organizations
func (h *OrgHandlers) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.service.CreateOrganization(r.Context(), httputil.Actor(r), req.Name)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, org)
}

// listOrganizations handles GET /organizations
func (h *OrgHandlers) listOrganizations(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", 50)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	req := orgs.ListOrganizationsRequest{
		Limit:      limit,
		Offset:     offset,
		OrderBy:    httputil.ParseQueryString(r, "order_by", ""),
		OrderDir:   httputil.ParseQueryString(r, "order_dir", ""),
		SearchTerm: httputil.ParseQueryString(r, "search", ""),
		Scope:      httputil.ParseQueryString(r, "scope", ""),
	}
	res, err := h.service.ListOrganizations(r.Context(), httputil.Actor(r), req)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, res)
}

// getOrganization handles GET /organizations/{id}
func (h *OrgHandlers) getOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	org, err := h.service.GetOrganization(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// updateOrganization handles PUT /organizations/{id}
func (h *OrgHandlers) updateOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.service.UpdateOrganization(r.Context(), httputil.Actor(r), orgID, req.Name)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// deleteOrganization handles DELETE /organizations/{id}
func (h *OrgHandlers) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteOrganization(r.Context(), httputil.Actor(r), orgID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// listMembers handles GET /organizations/{id}/members
func (h *OrgHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// addOrUpdateMember handles PUT /organizations/{id}/members/{user_id}
func (h *OrgHandlers) addOrUpdateMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	member, err := h.service.AddOrUpdateMember(r.Context(), httputil.Actor(r), orgID, userID, orgs.OrgRole(req.Role), orgs.AddMemberOpts{})
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, member)
}

// removeMember handles DELETE /organizations/{id}/members/{user_id}
func (h *OrgHandlers) removeMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.service.RemoveOrganizationMember(r.Context(), httputil.Actor(r), orgID, userID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// getOrCreateInvite handles GET /organizations/{id}/invite
func (h *OrgHandlers) getOrCreateInvite(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	invite, err := h.service.GetOrCreateInvite(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, invite)
}

// resetInvite handles POST /organizations/{id}/invite
func (h *OrgHandlers) resetInvite(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	invite, err := h.service.ResetInvite(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, invite)
}

// joinOrganization handles POST /invites/{invite_id}/join
func (h *OrgHandlers) joinOrganization(w http.ResponseWriter, r *http.Request) {
	inviteID, ok := httputil.ParsePathStringOrError(w, r, "invite_id")
	if !ok {
		return
	}

	orgID, err := h.service.JoinOrganization(r.Context(), httputil.Actor(r), inviteID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"org_id": orgID})
}

// getSettings handles GET /organizations/{id}/settings
func (h *OrgHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	settings, err := h.service.GetSettings(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, settings)
}

// updateSettings handles PUT /organizations/{id}/settings
func (h *OrgHandlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	partial := &orgs.OrganizationSettings{}
	if !httputil.ParseJSONOrError(w, r, partial) {
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), httputil.Actor(r), orgID, partial)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, settings)
}

// listWorkspaceClasses handles GET /organizations/{id}/workspace-classes
func (h *OrgHandlers) listWorkspaceClasses(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	classes, err := h.service.ListWorkspaceClasses(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, classes)
}

// getMaintenanceMode handles GET /organizations/{id}/maintenance-mode
func (h *OrgHandlers) getMaintenanceMode(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	enabled, err := h.service.GetMaintenanceMode(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"enabled": enabled})
}

// setMaintenanceMode handles PUT /organizations/{id}/maintenance-mode
func (h *OrgHandlers) setMaintenanceMode(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	enabled, err := h.service.SetMaintenanceMode(r.Context(), httputil.Actor(r), orgID, req.Enabled)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"enabled": enabled})
}

// getMaintenanceNotification handles GET /organizations/{id}/maintenance-notification
func (h *OrgHandlers) getMaintenanceNotification(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	notification, err := h.service.GetMaintenanceNotification(r.Context(), httputil.Actor(r), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, notification)
}

// setMaintenanceNotification handles PUT /organizations/{id}/maintenance-notification
func (h *OrgHandlers) setMaintenanceNotification(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Enabled bool   `json:"enabled"`
		Message string `json:"message"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	notification, err := h.service.SetMaintenanceNotification(r.Context(), httputil.Actor(r), orgID, req.Enabled, req.Message)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, notification)
}
