package orgs

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/cove/pkg/analytics"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/billing"
	"github.com/platinummonkey/cove/pkg/catalog"
	"github.com/platinummonkey/cove/pkg/observability"
	"github.com/platinummonkey/cove/pkg/users"
)

// fixture wires the engine against in-memory collaborators.
type fixture struct {
	service  *Service
	store    *MemoryStore
	edges    *authz.MemoryRelationshipStore
	users    *users.MemoryService
	billing  *billing.MemoryService
	events   *analytics.MemoryTracker
	projects *MemoryProjects
	flags    StaticFlags
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	edges := authz.NewMemoryRelationshipStore()
	store := NewMemoryStore()
	userService := users.NewMemoryService()
	billingService := billing.NewMemoryService()
	events := analytics.NewMemoryTracker()
	projects := NewMemoryProjects()
	flags := StaticFlags{}
	logger := observability.NewNopLogger()

	installationCatalog := catalog.NewStaticCatalog(
		[]catalog.WorkspaceClass{
			{ID: "g1-standard", DisplayName: "Standard", IsDefault: true},
			{ID: "g1-large", DisplayName: "Large"},
		},
		catalog.DefaultEditors(),
		10,
	)

	service := NewService(ServiceDeps{
		Store:        store,
		Authorizer:   authz.NewAuthorizer(edges, logger),
		Users:        userService,
		Billing:      billingService,
		Analytics:    events,
		Projects:     projects,
		Classes:      installationCatalog,
		Editors:      installationCatalog,
		Entitlements: installationCatalog,
		Flags:        flags,
		Logger:       logger,
		Metrics:      observability.NewMetrics(prometheus.NewRegistry()),
	})

	return &fixture{
		service:  service,
		store:    store,
		edges:    edges,
		users:    userService,
		billing:  billingService,
		events:   events,
		projects: projects,
		flags:    flags,
	}
}

func (f *fixture) seedUser(t *testing.T, id string) {
	t.Helper()
	f.users.Put(&users.User{ID: id, Name: "user-" + id, Email: id + "@example.com", AvatarURL: "https://avatars.example.com/" + id})
}

// createOrg creates an organization through the service so edges, membership,
// and the generic invite are all established.
func (f *fixture) createOrg(t *testing.T, ownerID, name string) *Organization {
	t.Helper()
	f.seedUser(t, ownerID)
	org, err := f.service.CreateOrganization(context.Background(), ownerID, name)
	require.NoError(t, err)
	return org
}
