package model

import (
	"time"

	"github.com/google/uuid"

	"ontology-store/backend/internal/constants"
)

// Attributes maps attribute or property names to values
type Attributes map[string]Value

// GetString returns the attribute as a string when it holds one
func (a Attributes) GetString(name string) (string, bool) {
	v, ok := a[name]
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (a Attributes) GetInt(name string) (int64, bool) {
	v, ok := a[name]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

func (a Attributes) GetFloat(name string) (float64, bool) {
	v, ok := a[name]
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

func (a Attributes) GetBool(name string) (bool, bool) {
	v, ok := a[name]
	if !ok {
		return false, false
	}
	return v.AsBool()
}

func (a Attributes) GetTime(name string) (time.Time, bool) {
	v, ok := a[name]
	if !ok {
		return time.Time{}, false
	}
	return v.AsTime()
}

// Equal reports whether both maps hold the same keys with equal values
func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Metadata tracks lifecycle information shared by entities and relationships
type Metadata struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	Version   int64      `json:"version"`
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Entity is one domain object of a tenant-defined type
type Entity struct {
	ID         string     `json:"id"`
	EntityType string     `json:"entity_type"`
	TenantID   string     `json:"tenant_id"`
	DomainID   string     `json:"domain_id"`
	Attributes Attributes `json:"attributes"`
	Metadata   Metadata   `json:"metadata"`
	Labels     []string   `json:"labels"`
}

// NewEntity creates an entity with a generated id
func NewEntity(entityType, tenantID, domainID string, attrs Attributes) *Entity {
	if attrs == nil {
		attrs = Attributes{}
	}
	return &Entity{
		ID:         uuid.New().String(),
		EntityType: entityType,
		TenantID:   tenantID,
		DomainID:   domainID,
		Attributes: attrs,
		Metadata:   Metadata{Version: 1},
	}
}

// NormalizeLabels makes sure the generic entity label and the entity type lead the label set,
// dropping blanks and duplicates.
func (e *Entity) NormalizeLabels() {
	labels := make([]string, 0, len(e.Labels)+2)
	seen := make(map[string]bool, len(e.Labels)+2)
	add := func(l string) {
		if l == "" || seen[l] {
			return
		}
		seen[l] = true
		labels = append(labels, l)
	}
	add(constants.EntityLabel)
	add(e.EntityType)
	for _, l := range e.Labels {
		add(l)
	}
	e.Labels = labels
}

// Clone returns a copy that shares no mutable state with e
func (e *Entity) Clone() *Entity {
	cp := *e
	cp.Attributes = make(Attributes, len(e.Attributes))
	for k, v := range e.Attributes {
		cp.Attributes[k] = v
	}
	cp.Labels = append([]string(nil), e.Labels...)
	if e.Metadata.DeletedAt != nil {
		t := *e.Metadata.DeletedAt
		cp.Metadata.DeletedAt = &t
	}
	return &cp
}

// Relationship is a directed, typed edge between two entities of the same tenant
type Relationship struct {
	ID               string     `json:"id"`
	RelationshipType string     `json:"relationship_type"`
	FromEntityID     string     `json:"from_entity_id"`
	ToEntityID       string     `json:"to_entity_id"`
	FromEntityType   string     `json:"from_entity_type"`
	ToEntityType     string     `json:"to_entity_type"`
	Properties       Attributes `json:"properties"`
	Metadata         Metadata   `json:"metadata"`
	TenantID         string     `json:"tenant_id"`
	DomainID         string     `json:"domain_id"`
}

// NewRelationship creates a relationship with a generated id
func NewRelationship(relType, fromID, toID, tenantID, domainID string, props Attributes) *Relationship {
	if props == nil {
		props = Attributes{}
	}
	return &Relationship{
		ID:               uuid.New().String(),
		RelationshipType: relType,
		FromEntityID:     fromID,
		ToEntityID:       toID,
		Properties:       props,
		Metadata:         Metadata{Version: 1},
		TenantID:         tenantID,
		DomainID:         domainID,
	}
}
