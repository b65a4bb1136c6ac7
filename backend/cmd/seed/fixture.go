package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"ontology-store/backend/internal/model"
)

// Fixture is a YAML description of entities and the relationships between them.
// Relationships refer to entities by their fixture key, not by stored id.
type Fixture struct {
	Domain        string                `yaml:"domain"`
	Entities      []FixtureEntity       `yaml:"entities"`
	Relationships []FixtureRelationship `yaml:"relationships"`
}

type FixtureEntity struct {
	Key        string         `yaml:"key"`
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Labels     []string       `yaml:"labels"`
	Attributes map[string]any `yaml:"attributes"`
}

type FixtureRelationship struct {
	Type       string         `yaml:"type"`
	From       string         `yaml:"from"`
	To         string         `yaml:"to"`
	Properties map[string]any `yaml:"properties"`
}

// LoadFixture reads and validates a fixture file
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return ParseFixture(f)
}

func ParseFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks keys are unique and every relationship endpoint names a fixture entity
func (fx *Fixture) Validate() error {
	keys := make(map[string]bool, len(fx.Entities))
	for i, e := range fx.Entities {
		if e.Key == "" {
			return fmt.Errorf("entity %d: key is required", i)
		}
		if e.Type == "" {
			return fmt.Errorf("entity %q: type is required", e.Key)
		}
		if keys[e.Key] {
			return fmt.Errorf("entity %q: duplicate key", e.Key)
		}
		keys[e.Key] = true
		for name := range e.Attributes {
			if model.IsReservedEntityKey(name) {
				return fmt.Errorf("entity %q: attribute %q is reserved", e.Key, name)
			}
		}
	}
	for i, r := range fx.Relationships {
		if r.Type == "" {
			return fmt.Errorf("relationship %d: type is required", i)
		}
		if !keys[r.From] {
			return fmt.Errorf("relationship %d: unknown from key %q", i, r.From)
		}
		if !keys[r.To] {
			return fmt.Errorf("relationship %d: unknown to key %q", i, r.To)
		}
	}
	return nil
}

// Records converts the fixture into entity and relationship records for tenantID, with
// relationship endpoints resolved from fixture keys to entity ids. domainID overrides the
// fixture's domain when set.
func (fx *Fixture) Records(tenantID, domainID string) ([]*model.Entity, []*model.Relationship, error) {
	if domainID == "" {
		domainID = fx.Domain
	}

	ids := make(map[string]string, len(fx.Entities))
	entities := make([]*model.Entity, 0, len(fx.Entities))
	for _, fe := range fx.Entities {
		attrs, err := toAttributes(fe.Attributes)
		if err != nil {
			return nil, nil, fmt.Errorf("entity %q: %w", fe.Key, err)
		}
		e := model.NewEntity(fe.Type, tenantID, domainID, attrs)
		if fe.ID != "" {
			e.ID = fe.ID
		}
		e.Labels = fe.Labels
		e.NormalizeLabels()
		ids[fe.Key] = e.ID
		entities = append(entities, e)
	}

	rels := make([]*model.Relationship, 0, len(fx.Relationships))
	for i, fr := range fx.Relationships {
		props, err := toAttributes(fr.Properties)
		if err != nil {
			return nil, nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		rels = append(rels, model.NewRelationship(fr.Type, ids[fr.From], ids[fr.To], tenantID, domainID, props))
	}
	return entities, rels, nil
}

func toAttributes(raw map[string]any) (model.Attributes, error) {
	attrs := make(model.Attributes, len(raw))
	for k, v := range raw {
		value, err := model.FromNative(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = value
	}
	return attrs, nil
}
