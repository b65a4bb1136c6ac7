package graph

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontology-store/backend/internal/model"
	apperrors "ontology-store/backend/pkg/errors"
)

// Integration tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD to point them somewhere other than localhost.
func newTestRepository(t *testing.T, opts ...Option) (*Repository, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Skipf("Neo4j not reachable: %v", err)
	}

	tenantID := "test-tenant-" + uuid.New().String()
	t.Cleanup(func() {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (e:Entity {tenantId: $tenantId}) DETACH DELETE e", map[string]interface{}{"tenantId": tenantID})
		_ = driver.Close(ctx)
	})

	return NewRepository(driver, opts...), tenantID
}

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := envOr("NEO4J_URI", "bolt://localhost:7687")
	user := envOr("NEO4J_USER", "neo4j")
	password := envOr("NEO4J_PASSWORD", "password")

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	return driver, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func createProject(t *testing.T, repo *Repository, tenantID, name string) *model.Entity {
	t.Helper()
	e := model.NewEntity("Project", tenantID, "d1", model.Attributes{"name": model.String(name)})
	created, err := repo.Create(context.Background(), e)
	require.NoError(t, err)
	return created
}

func TestRepository_TenantRequired(t *testing.T) {
	repo := NewRepository(nil)
	ctx := context.Background()

	_, err := repo.Create(ctx, model.NewEntity("Project", "", "", nil))
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, _, err = repo.GetByID(ctx, "id", "Project", "")
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.Query(ctx, model.Filter{EntityType: "Project"})
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.Count(ctx, model.Filter{EntityType: "Project"})
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.QueryPage(ctx, model.Filter{EntityType: "Project"})
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.Update(ctx, model.NewEntity("Project", "", "", nil))
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.Delete(ctx, "id", "Project", "", true)
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.CreateRelationship(ctx, model.NewRelationship("OWNS", "a", "b", "", "", nil))
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.GetRelationships(ctx, "", "a", "", model.DirectionBoth)
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = repo.DeleteRelationship(ctx, "", "r1")
	assert.ErrorIs(t, err, ErrTenantRequired)

	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestRepository_CreateStampsVersionOne(t *testing.T) {
	repo, tenantID := newTestRepository(t)

	created := createProject(t, repo, tenantID, "Alpha")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Metadata.Version)
	assert.False(t, created.Metadata.IsDeleted)
	assert.Nil(t, created.Metadata.DeletedAt)
	assert.False(t, created.Metadata.CreatedAt.IsZero())
	assert.Contains(t, created.Labels, "Entity")
	assert.Contains(t, created.Labels, "Project")
	name, ok := created.Attributes.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "Alpha", name)
}

func TestRepository_CreateRoundTripsAllValueKinds(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	attrs := model.Attributes{
		"name":     model.String("Alpha"),
		"budget":   model.Int(1200),
		"ratio":    model.Float(0.25),
		"active":   model.Bool(true),
		"due":      model.Time(due),
		"seen":     model.Time(time.Now()),
		"tags":     model.List(model.String("a"), model.String("b")),
		"mixed":    model.List(model.String("a"), model.Int(1)),
		"settings": model.Map(map[string]model.Value{"depth": model.Int(2), "owner": model.String("ops")}),
		"note":     model.Null(),
	}
	created, err := repo.Create(ctx, model.NewEntity("Project", tenantID, "d1", attrs))
	require.NoError(t, err)

	got, found, err := repo.GetByID(ctx, created.ID, "Project", tenantID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, attrs.Equal(got.Attributes), "attributes changed on the way through the store: %v", got.Attributes)
}

func TestRepository_UpdateReplacesAttributes(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	created := createProject(t, repo, tenantID, "Alpha")

	next := created.Clone()
	next.Attributes = model.Attributes{"name": model.String("Beta")}
	updated, err := repo.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Metadata.Version)
	assert.True(t, created.Metadata.CreatedAt.Equal(updated.Metadata.CreatedAt))

	got, found, err := repo.GetByID(ctx, created.ID, "Project", tenantID)
	require.NoError(t, err)
	require.True(t, found)
	name, _ := got.Attributes.GetString("name")
	assert.Equal(t, "Beta", name)
	assert.Len(t, got.Attributes, 1)
	assert.Equal(t, int64(2), got.Metadata.Version)
}

func TestRepository_UpdateKeepsDomain(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	created := createProject(t, repo, tenantID, "Alpha")

	next := created.Clone()
	next.DomainID = ""
	next.Attributes = model.Attributes{"name": model.String("Beta")}
	updated, err := repo.Update(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "d1", updated.DomainID)

	found, err := repo.Query(ctx, model.Filter{EntityType: "Project", TenantID: tenantID, DomainID: "d1"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)
}

func TestRepository_UpdateConflict(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	created := createProject(t, repo, tenantID, "Alpha")

	first := created.Clone()
	first.Attributes["name"] = model.String("Beta")
	_, err := repo.Update(ctx, first)
	require.NoError(t, err)

	stale := created.Clone()
	stale.Attributes["name"] = model.String("Gamma")
	_, err = repo.Update(ctx, stale)
	require.Error(t, err)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(1), conflict.Expected)
	assert.Equal(t, int64(2), conflict.Actual)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	got, _, err := repo.GetByID(ctx, created.ID, "Project", tenantID)
	require.NoError(t, err)
	name, _ := got.Attributes.GetString("name")
	assert.Equal(t, "Beta", name)
}

func TestRepository_UpdateLastWriteWins(t *testing.T) {
	repo, tenantID := newTestRepository(t, WithLastWriteWins(true))
	ctx := context.Background()

	created := createProject(t, repo, tenantID, "Alpha")

	first := created.Clone()
	first.Attributes["name"] = model.String("Beta")
	_, err := repo.Update(ctx, first)
	require.NoError(t, err)

	stale := created.Clone()
	stale.Attributes["name"] = model.String("Gamma")
	updated, err := repo.Update(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Metadata.Version)
	name, _ := updated.Attributes.GetString("name")
	assert.Equal(t, "Gamma", name)
}

func TestRepository_UpdateMissingEntity(t *testing.T) {
	repo, tenantID := newTestRepository(t)

	_, err := repo.Update(context.Background(), model.NewEntity("Project", tenantID, "d1", nil))
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.Equal(t, apperrors.CodeEntityNotFound, apperrors.CodeFor(err))
}

func TestRepository_QueryContains(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	createProject(t, repo, tenantID, "Alpha")
	createProject(t, repo, tenantID, "Bravo")

	results, err := repo.Query(ctx, model.Filter{
		EntityType: "Project",
		TenantID:   tenantID,
		AttributeFilters: map[string]model.AttributeFilter{
			"name": {Operator: model.OpContains, Value: model.String("Al")},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	name, _ := results[0].Attributes.GetString("name")
	assert.Equal(t, "Alpha", name)
}

func TestRepository_QueryIgnoresUnknownOperators(t *testing.T) {
	repo, tenantID := newTestRepository(t)

	createProject(t, repo, tenantID, "Alpha")
	createProject(t, repo, tenantID, "Bravo")

	results, err := repo.Query(context.Background(), model.Filter{
		EntityType: "Project",
		TenantID:   tenantID,
		AttributeFilters: map[string]model.AttributeFilter{
			"name": {Operator: "regex", Value: model.String("^A")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRepository_TenantIsolation(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	created := createProject(t, repo, tenantID, "Alpha")
	otherTenant := "other-" + tenantID

	_, found, err := repo.GetByID(ctx, created.ID, "Project", otherTenant)
	require.NoError(t, err)
	assert.False(t, found)

	results, err := repo.Query(ctx, model.Filter{EntityType: "Project", TenantID: otherTenant})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	count, err := repo.Count(ctx, model.Filter{EntityType: "Project", TenantID: otherTenant})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	deleted, err := repo.Delete(ctx, created.ID, "Project", otherTenant, false)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, found, err = repo.GetByID(ctx, created.ID, "Project", tenantID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRepository_QueryPage(t *testing.T) {
	repo, tenantID := newTestRepository(t)

	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"} {
		createProject(t, repo, tenantID, name)
	}

	page, err := repo.QueryPage(context.Background(), model.Filter{
		EntityType: "Project",
		TenantID:   tenantID,
		SortBy:     "name",
		Limit:      2,
		Offset:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.TotalPages())
	require.Len(t, page.Items, 2)
	name, _ := page.Items[0].Attributes.GetString("name")
	assert.Equal(t, "Charlie", name)
}

func TestRepository_SoftThenHardDelete(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	project := createProject(t, repo, tenantID, "Alpha")
	owner := createProject(t, repo, tenantID, "Owner")
	rel, err := repo.CreateRelationship(ctx, model.NewRelationship("OWNS", owner.ID, project.ID, tenantID, "d1", nil))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, project.ID, "Project", tenantID, true)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, found, err := repo.GetByID(ctx, project.ID, "Project", tenantID)
	require.NoError(t, err)
	assert.False(t, found)

	count, err := repo.Count(ctx, model.Filter{EntityType: "Project", TenantID: tenantID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	again, err := repo.Delete(ctx, project.ID, "Project", tenantID, true)
	require.NoError(t, err)
	assert.False(t, again)

	// soft delete keeps the edge
	rels, err := repo.GetRelationships(ctx, tenantID, owner.ID, "OWNS", model.DirectionOutgoing)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, rel.ID, rels[0].ID)

	deleted, err = repo.Delete(ctx, project.ID, "Project", tenantID, false)
	require.NoError(t, err)
	assert.True(t, deleted)

	rels, err = repo.GetRelationships(ctx, tenantID, owner.ID, "", model.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRepository_CreateRelationshipMissingEndpoint(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	project := createProject(t, repo, tenantID, "Alpha")

	_, err := repo.CreateRelationship(ctx, model.NewRelationship("OWNS", "missing", project.ID, tenantID, "d1", nil))
	require.Error(t, err)
	var endpoint *EndpointNotFoundError
	require.True(t, errors.As(err, &endpoint))
	assert.Equal(t, "missing", endpoint.FromID)

	rels, err := repo.GetRelationships(ctx, tenantID, project.ID, "", model.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRepository_RelationshipDirections(t *testing.T) {
	repo, tenantID := newTestRepository(t)
	ctx := context.Background()

	a := createProject(t, repo, tenantID, "A")
	b := createProject(t, repo, tenantID, "B")

	created, err := repo.CreateRelationship(ctx, model.NewRelationship("DEPENDS_ON", a.ID, b.ID, tenantID, "d1",
		model.Attributes{"weight": model.Int(3)}))
	require.NoError(t, err)
	assert.Equal(t, "Project", created.FromEntityType)
	assert.Equal(t, "Project", created.ToEntityType)
	assert.Equal(t, int64(1), created.Metadata.Version)

	out, err := repo.GetRelationships(ctx, tenantID, a.ID, "DEPENDS_ON", model.DirectionOutgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, a.ID, out[0].FromEntityID)
	assert.Equal(t, b.ID, out[0].ToEntityID)
	weight, _ := out[0].Properties.GetInt("weight")
	assert.Equal(t, int64(3), weight)

	in, err := repo.GetRelationships(ctx, tenantID, a.ID, "DEPENDS_ON", model.DirectionIncoming)
	require.NoError(t, err)
	assert.Empty(t, in)

	both, err := repo.GetRelationships(ctx, tenantID, b.ID, "", model.ParseDirection("sideways"))
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, a.ID, both[0].FromEntityID)

	other, err := repo.GetRelationships(ctx, tenantID, a.ID, "OWNS", model.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, other)

	removed, err := repo.DeleteRelationship(ctx, "other-"+tenantID, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.DeleteRelationship(ctx, tenantID, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.DeleteRelationship(ctx, tenantID, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRepository_EnsureIndexesIsIdempotent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureIndexes(ctx))
	require.NoError(t, repo.EnsureIndexes(ctx))
}
