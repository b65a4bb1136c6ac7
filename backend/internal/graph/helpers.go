package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"ontology-store/backend/internal/model"
)

// ============================================================================
// Record Mapping
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

// versionFromRecord treats a missing version property as 1, matching the reverse mapping
func versionFromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 1
	}
	return getInt64FromRecord(record, key)
}

// carryStoredFields copies what an update may not change from the locked row onto e.
// Creation metadata is only filled in when the caller left it empty.
func carryStoredFields(e *model.Entity, current *neo4j.Record) {
	e.DomainID = getStringFromRecord(current, "domainId")
	if e.Metadata.CreatedAt.IsZero() {
		if createdAt, ok := current.Get("createdAt"); ok {
			if t, ok := createdAt.(time.Time); ok {
				e.Metadata.CreatedAt = t
			}
		}
	}
	if e.Metadata.CreatedBy == "" {
		e.Metadata.CreatedBy = getStringFromRecord(current, "createdBy")
	}
}

func entityFromRecord(record *neo4j.Record, key string) (*model.Entity, error) {
	val, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no %q column", key)
	}
	node, ok := val.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("column %q is %T, not a node", key, val)
	}
	return model.EntityFromStorageMap(node.Props, node.Labels)
}

func relationshipFromRecord(record *neo4j.Record, key string) (*model.Relationship, error) {
	val, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no %q column", key)
	}
	edge, ok := val.(neo4j.Relationship)
	if !ok {
		return nil, fmt.Errorf("column %q is %T, not a relationship", key, val)
	}
	rel, err := model.RelationshipFromStorageMap(edge.Props)
	if err != nil {
		return nil, err
	}
	rel.FromEntityID = getStringFromRecord(record, "fromId")
	rel.ToEntityID = getStringFromRecord(record, "toId")
	rel.FromEntityType = getStringFromRecord(record, "fromType")
	rel.ToEntityType = getStringFromRecord(record, "toType")
	return rel, nil
}

func entitiesFromRecords(records []*neo4j.Record) ([]*model.Entity, error) {
	entities := make([]*model.Entity, 0, len(records))
	for _, record := range records {
		e, err := entityFromRecord(record, "entity")
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
