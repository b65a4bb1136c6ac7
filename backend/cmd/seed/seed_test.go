package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontology-store/backend/internal/model"
)

type fakeWriter struct {
	mu       sync.Mutex
	entities map[string]*model.Entity
	rels     []*model.Relationship
	failOn   string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{entities: map[string]*model.Entity{}}
}

func (f *fakeWriter) Create(_ context.Context, e *model.Entity) (*model.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, _ := e.Attributes.GetString("name"); name == f.failOn {
		return nil, errors.New("write refused")
	}
	f.entities[e.ID] = e
	return e, nil
}

func (f *fakeWriter) CreateRelationship(_ context.Context, r *model.Relationship) (*model.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entities[r.FromEntityID] == nil || f.entities[r.ToEntityID] == nil {
		return nil, errors.New("endpoint missing")
	}
	f.rels = append(f.rels, r)
	return r, nil
}

func TestLoadFixture(t *testing.T) {
	fx, err := LoadFixture("testdata/projects.yaml")
	require.NoError(t, err)

	assert.Equal(t, "engineering", fx.Domain)
	require.Len(t, fx.Entities, 3)
	assert.Len(t, fx.Relationships, 2)

	entities, rels, err := fx.Records("t1", "")
	require.NoError(t, err)

	alpha := entities[0]
	assert.Equal(t, "t1", alpha.TenantID)
	assert.Equal(t, "engineering", alpha.DomainID)
	assert.Equal(t, []string{"Entity", "Project", "Tracked"}, alpha.Labels)
	budget, ok := alpha.Attributes.GetInt("budget")
	assert.True(t, ok)
	assert.Equal(t, int64(1200), budget)
	assert.True(t, model.List(model.String("core"), model.String("q3")).Equal(alpha.Attributes["tags"]))
	settings, ok := alpha.Attributes["settings"].AsMap()
	require.True(t, ok)
	assert.True(t, model.Int(2).Equal(settings["depth"]))

	assert.Equal(t, "person-ada", entities[2].ID)
	assert.Equal(t, alpha.ID, rels[0].FromEntityID)
	assert.Equal(t, entities[1].ID, rels[0].ToEntityID)
	assert.Equal(t, "person-ada", rels[1].FromEntityID)
}

func TestRecords_DomainOverride(t *testing.T) {
	fx, err := LoadFixture("testdata/projects.yaml")
	require.NoError(t, err)

	entities, rels, err := fx.Records("t1", "sales")
	require.NoError(t, err)
	assert.Equal(t, "sales", entities[0].DomainID)
	assert.Equal(t, "sales", rels[0].DomainID)
}

func TestParseFixture_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing key", "entities:\n  - type: Project\n", "key is required"},
		{"missing type", "entities:\n  - key: a\n", "type is required"},
		{"duplicate key", "entities:\n  - {key: a, type: P}\n  - {key: a, type: P}\n", "duplicate key"},
		{"reserved attribute", "entities:\n  - key: a\n    type: P\n    attributes: {tenantId: x}\n", "reserved"},
		{"unknown endpoint", "entities:\n  - {key: a, type: P}\nrelationships:\n  - {type: R, from: a, to: b}\n", "unknown to key"},
		{"unknown field", "entities:\n  - {key: a, type: P, colour: red}\n", "colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeed(t *testing.T) {
	fx, err := LoadFixture("testdata/projects.yaml")
	require.NoError(t, err)
	w := newFakeWriter()

	summary, err := seed(context.Background(), w, fx, "t1", "", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Entities)
	assert.Equal(t, 2, summary.Relationships)
	assert.Len(t, w.rels, 2)
}

func TestSeed_StopsBeforeRelationshipsOnEntityFailure(t *testing.T) {
	fx, err := LoadFixture("testdata/projects.yaml")
	require.NoError(t, err)
	w := newFakeWriter()
	w.failOn = "Bravo"

	summary, err := seed(context.Background(), w, fx, "t1", "", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write refused")
	assert.Equal(t, 0, summary.Relationships)
	assert.Empty(t, w.rels)
	assert.Less(t, summary.Entities, 3)
}
