package model

import (
	"fmt"
	"sort"
	"time"
)

// Property keys reserved for scoping and metadata
const (
	KeyID               = "id"
	KeyEntityType       = "entityType"
	KeyRelationshipType = "relationshipType"
	KeyTenantID         = "tenantId"
	KeyDomainID         = "domainId"
	KeyCreatedAt        = "createdAt"
	KeyUpdatedAt        = "updatedAt"
	KeyCreatedBy        = "createdBy"
	KeyUpdatedBy        = "updatedBy"
	KeyVersion          = "version"
	KeyIsDeleted        = "isDeleted"
	KeyDeletedAt        = "deletedAt"

	// KeyEncoded lists the attribute keys whose values are stored as tagged JSON
	KeyEncoded = "_encoded"
)

var metadataKeys = []string{
	KeyID, KeyTenantID, KeyDomainID, KeyCreatedAt, KeyUpdatedAt,
	KeyCreatedBy, KeyUpdatedBy, KeyVersion, KeyIsDeleted, KeyDeletedAt, KeyEncoded,
}

var (
	entityReserved       = reservedSet(KeyEntityType)
	relationshipReserved = reservedSet(KeyRelationshipType)
)

func reservedSet(extra string) map[string]bool {
	set := make(map[string]bool, len(metadataKeys)+1)
	for _, k := range metadataKeys {
		set[k] = true
	}
	set[extra] = true
	return set
}

// IsReservedEntityKey reports whether name collides with a scoping or metadata key
func IsReservedEntityKey(name string) bool { return entityReserved[name] }

// ToStorageMap flattens the entity into a single property map. Attributes are merged at the
// top level; scoping and metadata keys are written last and take precedence on collision.
func (e *Entity) ToStorageMap() (map[string]any, error) {
	props, err := flattenAttributes(e.Attributes)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", e.ID, err)
	}
	props[KeyEntityType] = e.EntityType
	putScope(props, e.ID, e.TenantID, e.DomainID)
	putMetadata(props, e.Metadata)
	return props, nil
}

// EntityFromStorageMap rebuilds an entity from stored node properties
func EntityFromStorageMap(props map[string]any, labels []string) (*Entity, error) {
	attrs, err := unflattenAttributes(props, entityReserved)
	if err != nil {
		return nil, err
	}
	meta, err := readMetadata(props)
	if err != nil {
		return nil, err
	}
	return &Entity{
		ID:         stringProp(props, KeyID),
		EntityType: stringProp(props, KeyEntityType),
		TenantID:   stringProp(props, KeyTenantID),
		DomainID:   stringProp(props, KeyDomainID),
		Attributes: attrs,
		Metadata:   meta,
		Labels:     append([]string(nil), labels...),
	}, nil
}

// ToStorageMap flattens the relationship into edge properties; endpoints are topology, not properties
func (r *Relationship) ToStorageMap() (map[string]any, error) {
	props, err := flattenAttributes(r.Properties)
	if err != nil {
		return nil, fmt.Errorf("relationship %s: %w", r.ID, err)
	}
	props[KeyRelationshipType] = r.RelationshipType
	putScope(props, r.ID, r.TenantID, r.DomainID)
	putMetadata(props, r.Metadata)
	return props, nil
}

// RelationshipFromStorageMap rebuilds the scoping, metadata and properties of a relationship.
// Endpoint ids and types are resolved by the caller from the matched nodes.
func RelationshipFromStorageMap(props map[string]any) (*Relationship, error) {
	attrs, err := unflattenAttributes(props, relationshipReserved)
	if err != nil {
		return nil, err
	}
	meta, err := readMetadata(props)
	if err != nil {
		return nil, err
	}
	return &Relationship{
		ID:               stringProp(props, KeyID),
		RelationshipType: stringProp(props, KeyRelationshipType),
		TenantID:         stringProp(props, KeyTenantID),
		DomainID:         stringProp(props, KeyDomainID),
		Properties:       attrs,
		Metadata:         meta,
	}, nil
}

func putScope(props map[string]any, id, tenantID, domainID string) {
	props[KeyID] = id
	props[KeyTenantID] = tenantID
	props[KeyDomainID] = domainID
}

func putMetadata(props map[string]any, m Metadata) {
	props[KeyCreatedAt] = m.CreatedAt
	props[KeyUpdatedAt] = m.UpdatedAt
	props[KeyVersion] = m.Version
	props[KeyIsDeleted] = m.IsDeleted
	if m.CreatedBy != "" {
		props[KeyCreatedBy] = m.CreatedBy
	}
	if m.UpdatedBy != "" {
		props[KeyUpdatedBy] = m.UpdatedBy
	}
	if m.DeletedAt != nil {
		props[KeyDeletedAt] = *m.DeletedAt
	}
}

func flattenAttributes(attrs Attributes) (map[string]any, error) {
	props := make(map[string]any, len(attrs)+len(metadataKeys)+1)
	var encoded []string
	for k, v := range attrs {
		if v.storableNatively() {
			props[k] = v.Native()
			continue
		}
		raw, err := v.marshalTagged()
		if err != nil {
			return nil, fmt.Errorf("encode attribute %q: %w", k, err)
		}
		props[k] = string(raw)
		encoded = append(encoded, k)
	}
	if len(encoded) > 0 {
		sort.Strings(encoded)
		props[KeyEncoded] = encoded
	}
	return props, nil
}

func unflattenAttributes(props map[string]any, reserved map[string]bool) (Attributes, error) {
	encoded := make(map[string]bool)
	if raw, ok := props[KeyEncoded]; ok {
		switch keys := raw.(type) {
		case []string:
			for _, k := range keys {
				encoded[k] = true
			}
		case []any:
			for _, k := range keys {
				if s, ok := k.(string); ok {
					encoded[s] = true
				}
			}
		}
	}

	attrs := make(Attributes, len(props))
	for k, raw := range props {
		if reserved[k] {
			continue
		}
		if encoded[k] {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("attribute %q: encoded value is %T, not string", k, raw)
			}
			v, err := unmarshalTagged([]byte(s))
			if err != nil {
				return nil, fmt.Errorf("decode attribute %q: %w", k, err)
			}
			attrs[k] = v
			continue
		}
		v, err := FromNative(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = v
	}
	return attrs, nil
}

func readMetadata(props map[string]any) (Metadata, error) {
	var m Metadata
	var err error
	if m.CreatedAt, err = timeProp(props, KeyCreatedAt); err != nil {
		return m, err
	}
	if m.UpdatedAt, err = timeProp(props, KeyUpdatedAt); err != nil {
		return m, err
	}
	m.CreatedBy = stringProp(props, KeyCreatedBy)
	m.UpdatedBy = stringProp(props, KeyUpdatedBy)
	m.Version = int64Prop(props, KeyVersion, 1)
	if b, ok := props[KeyIsDeleted].(bool); ok {
		m.IsDeleted = b
	}
	if _, ok := props[KeyDeletedAt]; ok {
		t, err := timeProp(props, KeyDeletedAt)
		if err != nil {
			return m, err
		}
		m.DeletedAt = &t
	}
	return m, nil
}

func stringProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

func int64Prop(props map[string]any, key string, defaultValue int64) int64 {
	switch n := props[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return defaultValue
}

func timeProp(props map[string]any, key string) (time.Time, error) {
	switch t := props[key].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", key, err)
		}
		return parsed, nil
	case interface{ Time() time.Time }:
		return t.Time(), nil
	}
	return time.Time{}, fmt.Errorf("%s: unexpected type %T", key, props[key])
}
