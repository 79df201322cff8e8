package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/cove/pkg/analytics"
	"github.com/platinummonkey/cove/pkg/audit"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/billing"
	"github.com/platinummonkey/cove/pkg/catalog"
	"github.com/platinummonkey/cove/pkg/httputil"
	"github.com/platinummonkey/cove/pkg/observability"
	"github.com/platinummonkey/cove/pkg/orgs"
	"github.com/platinummonkey/cove/pkg/sso"
	"github.com/platinummonkey/cove/pkg/users"
)

type testServer struct {
	handler http.Handler
	users   *users.MemoryService
	service *orgs.Service
	audit   *audit.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := observability.NewNopLogger()
	userService := users.NewMemoryService()
	auditStore := audit.NewMemoryStore()
	authorizer := authz.NewAuthorizer(authz.NewMemoryRelationshipStore(), logger)
	installationCatalog := catalog.NewStaticCatalog(
		[]catalog.WorkspaceClass{
			{ID: "g1-standard", DisplayName: "Standard", IsDefault: true},
			{ID: "g1-large", DisplayName: "Large"},
		},
		catalog.DefaultEditors(),
		10,
	)

	service := orgs.NewService(orgs.ServiceDeps{
		Store:        orgs.NewMemoryStore(),
		Authorizer:   authorizer,
		Users:        userService,
		Billing:      billing.NewMemoryService(),
		Analytics:    analytics.NewMemoryTracker(),
		Projects:     orgs.NewMemoryProjects(),
		Classes:      installationCatalog,
		Editors:      installationCatalog,
		Entitlements: installationCatalog,
		Flags:        orgs.StaticFlags{},
		Logger:       logger,
		Metrics:      observability.NewMetrics(prometheus.NewRegistry()),
	})

	handler := NewRouter(RouterDeps{
		Service:    service,
		Authorizer: authorizer,
		SSO:        sso.NewMemoryStorage(),
		Audit:      auditStore,
		Logger:     logger,
	})

	return &testServer{
		handler: handler,
		users:   userService,
		service: service,
		audit:   auditStore,
	}
}

func (s *testServer) request(t *testing.T, method, path, actorID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	if actorID != "" {
		req.Header.Set(httputil.ActorHeader, actorID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seedUser(t *testing.T, id string) {
	t.Helper()
	s.users.Put(&users.User{ID: id, Name: "user-" + id, Email: id + "@example.com"})
}

func (s *testServer) createOrg(t *testing.T, ownerID, name string) *orgs.Organization {
	t.Helper()
	s.seedUser(t, ownerID)
	rec := s.request(t, "POST", "/organizations", ownerID, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	org := &orgs.Organization{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), org))
	return org
}

func TestCreateOrganizationHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		server := newTestServer(t)
		org := server.createOrg(t, "u1", "Acme")
		assert.Equal(t, "Acme", org.Name)
		assert.NotEmpty(t, org.ID)
	})

	t.Run("missing actor header", func(t *testing.T) {
		server := newTestServer(t)
		rec := server.request(t, "POST", "/organizations", "", map[string]string{"name": "Acme"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := newTestServer(t)
		server.seedUser(t, "u1")
		req := httptest.NewRequest("POST", "/organizations", bytes.NewBufferString("{not json"))
		req.Header.Set(httputil.ActorHeader, "u1")
		rec := httptest.NewRecorder()
		server.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty name", func(t *testing.T) {
		server := newTestServer(t)
		server.seedUser(t, "u1")
		rec := server.request(t, "POST", "/organizations", "u1", map[string]string{"name": "  "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetOrganizationHandler(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")

	t.Run("member reads org", func(t *testing.T) {
		rec := server.request(t, "GET", "/organizations/"+org.ID, "u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := &orgs.Organization{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), got))
		assert.Equal(t, org.ID, got.ID)
	})

	t.Run("non-member denied", func(t *testing.T) {
		server.seedUser(t, "outsider")
		rec := server.request(t, "GET", "/organizations/"+org.ID, "outsider", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("error body carries code", func(t *testing.T) {
		rec := server.request(t, "GET", "/organizations/"+org.ID, "outsider", nil)
		var body httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "permission_denied", body.Code)
	})
}

func TestUpdateOrganizationHandler(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")

	rec := server.request(t, "PUT", "/organizations/"+org.ID, "u1", map[string]string{"name": "Acme Corp"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := &orgs.Organization{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), got))
	assert.Equal(t, "Acme Corp", got.Name)
}

func TestDeleteOrganizationHandler(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")

	rec := server.request(t, "DELETE", "/organizations/"+org.ID, "u1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = server.request(t, "GET", "/organizations/"+org.ID, "u1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMemberHandlers(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")
	server.seedUser(t, "u2")

	t.Run("add member", func(t *testing.T) {
		rec := server.request(t, "PUT",
			fmt.Sprintf("/organizations/%s/members/u2", org.ID), "u1",
			map[string]string{"role": "member"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		member := &orgs.OrgMember{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), member))
		assert.Equal(t, orgs.RoleMember, member.Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		rec := server.request(t, "PUT",
			fmt.Sprintf("/organizations/%s/members/u2", org.ID), "u1",
			map[string]string{"role": "czar"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list members", func(t *testing.T) {
		rec := server.request(t, "GET", fmt.Sprintf("/organizations/%s/members", org.ID), "u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var members []*orgs.OrgMember
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
		assert.Len(t, members, 2)
	})

	t.Run("remove member", func(t *testing.T) {
		rec := server.request(t, "DELETE", fmt.Sprintf("/organizations/%s/members/u2", org.ID), "u1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("last owner removal conflicts", func(t *testing.T) {
		rec := server.request(t, "DELETE", fmt.Sprintf("/organizations/%s/members/u1", org.ID), "u1", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestInviteHandlers(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")

	rec := server.request(t, "GET", fmt.Sprintf("/organizations/%s/invite", org.ID), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	invite := &orgs.MembershipInvite{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), invite))
	require.NotEmpty(t, invite.ID)

	rec = server.request(t, "POST", fmt.Sprintf("/organizations/%s/invite", org.ID), "u1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	fresh := &orgs.MembershipInvite{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), fresh))
	assert.NotEqual(t, invite.ID, fresh.ID)

	server.seedUser(t, "u2")
	rec = server.request(t, "POST", "/invites/"+fresh.ID+"/join", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
	assert.Equal(t, org.ID, joined["org_id"])

	// The reset invalidated the earlier invite.
	server.seedUser(t, "u3")
	rec = server.request(t, "POST", "/invites/"+invite.ID+"/join", "u3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsHandlers(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")

	t.Run("update and read back", func(t *testing.T) {
		rec := server.request(t, "PUT", fmt.Sprintf("/organizations/%s/settings", org.ID), "u1",
			map[string]interface{}{"workspaceSharingDisabled": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = server.request(t, "GET", fmt.Sprintf("/organizations/%s/settings", org.ID), "u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		settings := &orgs.OrganizationSettings{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), settings))
		require.NotNil(t, settings.WorkspaceSharingDisabled)
		assert.True(t, *settings.WorkspaceSharingDisabled)
	})

	t.Run("validation failure maps to bad request", func(t *testing.T) {
		rec := server.request(t, "PUT", fmt.Sprintf("/organizations/%s/settings", org.ID), "u1",
			map[string]interface{}{"allowedWorkspaceClasses": []string{"nonexistent"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("workspace classes", func(t *testing.T) {
		rec := server.request(t, "GET", fmt.Sprintf("/organizations/%s/workspace-classes", org.ID), "u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var classes []catalog.WorkspaceClass
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &classes))
		assert.Len(t, classes, 2)
	})
}

func TestMaintenanceHandlers(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")

	rec := server.request(t, "PUT", fmt.Sprintf("/organizations/%s/maintenance-mode", org.ID), "u1",
		map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	var mode map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mode))
	assert.True(t, mode["enabled"])

	rec = server.request(t, "PUT", fmt.Sprintf("/organizations/%s/maintenance-notification", org.ID), "u1",
		map[string]interface{}{"enabled": true, "message": "upgrade window"})
	require.Equal(t, http.StatusOK, rec.Code)
	notification := &orgs.MaintenanceNotification{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), notification))
	assert.True(t, notification.Enabled)
	assert.Equal(t, "upgrade window", notification.Message)

	rec = server.request(t, "GET", fmt.Sprintf("/organizations/%s/maintenance-notification", org.ID), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)
	rec := server.request(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSSOConfigHandlers(t *testing.T) {
	server := newTestServer(t)
	org := server.createOrg(t, "u1", "Acme")
	path := fmt.Sprintf("/organizations/%s/sso", org.ID)

	t.Run("no config yet", func(t *testing.T) {
		rec := server.request(t, "GET", path, "u1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner configures", func(t *testing.T) {
		rec := server.request(t, "PUT", path, "u1",
			map[string]interface{}{"issuer": "https://idp.example.com", "client_id": "cove", "active": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		config := &sso.Config{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), config))
		assert.True(t, config.Active)
	})

	t.Run("invalid issuer rejected", func(t *testing.T) {
		rec := server.request(t, "PUT", path, "u1",
			map[string]interface{}{"issuer": "not-a-url", "client_id": "cove"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("member cannot configure", func(t *testing.T) {
		server.seedUser(t, "u2")
		rec := server.request(t, "PUT",
			fmt.Sprintf("/organizations/%s/members/u2", org.ID), "u1",
			map[string]string{"role": "member"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = server.request(t, "PUT", path, "u2",
			map[string]interface{}{"issuer": "https://idp.example.com", "client_id": "cove"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		// Members may read the active configuration.
		rec = server.request(t, "GET", path, "u2", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := server.request(t, "DELETE", path, "u1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = server.request(t, "GET", path, "u1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMutationsAudited(t *testing.T) {
	server := newTestServer(t)
	server.createOrg(t, "u1", "Acme")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := server.audit.FindByActor(context.Background(), "u1", 10)
		require.NoError(t, err)
		if len(entries) > 0 {
			assert.Equal(t, "POST", entries[0].Method)
			assert.Equal(t, "/organizations", entries[0].Path)
			assert.Equal(t, http.StatusCreated, entries[0].Status)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("audit entry was not recorded")
}
