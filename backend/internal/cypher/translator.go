// Package cypher translates entity records and filters into parameterized Cypher.
// Nothing here performs I/O. Caller-supplied values only ever reach the database as
// parameters; identifiers that Cypher cannot parameterize (labels, property keys) are
// backtick-quoted.
package cypher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ontology-store/backend/internal/constants"
	"ontology-store/backend/internal/model"
)

// Query is a Cypher statement with its named parameters
type Query struct {
	Text   string
	Params map[string]any
	// Dropped lists attribute filters left out because their operator was not recognised
	Dropped []string
}

// QuoteIdentifier escapes a label or property key for inclusion in query text
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func labelExpr(labels []string) string {
	if len(labels) == 0 {
		labels = []string{constants.EntityLabel}
	}
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(":")
		b.WriteString(QuoteIdentifier(l))
	}
	return b.String()
}

func notDeleted(v string) string {
	return fmt.Sprintf("coalesce(%s.isDeleted, false) = false", v)
}

var entityLabel = QuoteIdentifier(constants.EntityLabel)
var edgeType = QuoteIdentifier(constants.RelationshipEdgeType)

// EntityFilter builds a listing query, or a scalar count query when countOnly is set.
// Counting ignores sort and pagination.
func EntityFilter(f model.Filter, countOnly bool) Query {
	f = f.Normalized()
	params := map[string]any{}
	var where []string

	if f.EntityType != "" {
		where = append(where, "e.entityType = $entityType")
		params["entityType"] = f.EntityType
	}
	if f.TenantID != "" {
		where = append(where, "e.tenantId = $tenantId")
		params["tenantId"] = f.TenantID
	}
	if f.DomainID != "" {
		where = append(where, "e.domainId = $domainId")
		params["domainId"] = f.DomainID
	}
	where = append(where, notDeleted("e"))

	names := make([]string, 0, len(f.AttributeFilters))
	for name := range f.AttributeFilters {
		names = append(names, name)
	}
	sort.Strings(names)

	var dropped []string
	for i, name := range names {
		clause, ok := attributeClause("e."+QuoteIdentifier(name), fmt.Sprintf("attr%d", i), f.AttributeFilters[name], params)
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		where = append(where, clause)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (e:%s)\n", entityLabel)
	fmt.Fprintf(&b, "WHERE %s\n", strings.Join(where, " AND "))
	if countOnly {
		b.WriteString("RETURN count(e) AS count")
		return Query{Text: b.String(), Params: params, Dropped: dropped}
	}

	b.WriteString("RETURN e AS entity\n")
	if f.SortBy != "" {
		fmt.Fprintf(&b, "ORDER BY entity.%s %s\n", QuoteIdentifier(f.SortBy), strings.ToUpper(f.SortOrder))
	}
	b.WriteString("SKIP $offset\nLIMIT $limit")
	params["offset"] = int64(f.Offset)
	params["limit"] = int64(f.Limit)
	return Query{Text: b.String(), Params: params, Dropped: dropped}
}

func attributeClause(prop, param string, af model.AttributeFilter, params map[string]any) (string, bool) {
	var op string
	switch af.Operator.Normalize() {
	case model.OpEquals:
		op = "="
	case model.OpNotEquals:
		op = "<>"
	case model.OpContains:
		op = "CONTAINS"
	case model.OpGT:
		op = ">"
	case model.OpLT:
		op = "<"
	case model.OpGTE:
		op = ">="
	case model.OpLTE:
		op = "<="
	case model.OpIn:
		params[param] = nativeList(af.Values)
		return fmt.Sprintf("%s IN $%s", prop, param), true
	case model.OpBetween:
		if len(af.Values) != 2 {
			return "", false
		}
		params[param+"_lo"] = af.Values[0].Native()
		params[param+"_hi"] = af.Values[1].Native()
		return fmt.Sprintf("(%s >= $%s_lo AND %s <= $%s_hi)", prop, param, prop, param), true
	default:
		return "", false
	}
	params[param] = af.Value.Native()
	return fmt.Sprintf("%s %s $%s", prop, op, param), true
}

func nativeList(values []model.Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.Native()
	}
	return out
}

// CreateEntity creates a node tagged with the entity's labels and carrying its flattened record
func CreateEntity(e *model.Entity) (Query, error) {
	props, err := e.ToStorageMap()
	if err != nil {
		return Query{}, err
	}
	return Query{
		Text:   fmt.Sprintf("CREATE (e%s $properties)\nRETURN e AS entity", labelExpr(e.Labels)),
		Params: map[string]any{"properties": props},
	}, nil
}

// GetEntity matches one live entity by id, type and tenant
func GetEntity(id, entityType, tenantID string) Query {
	return Query{
		Text: fmt.Sprintf(`MATCH (e:%s {id: $id, tenantId: $tenantId})
WHERE e.entityType = $entityType AND %s
RETURN e AS entity`, entityLabel, notDeleted("e")),
		Params: map[string]any{"id": id, "entityType": entityType, "tenantId": tenantID},
	}
}

// LockEntity reads the stored version of a live entity while taking its write lock, so a
// following statement in the same transaction sees no interleaved writer.
func LockEntity(id, entityType, tenantID string) Query {
	return Query{
		Text: fmt.Sprintf(`MATCH (e:%s {id: $id, tenantId: $tenantId})
WHERE e.entityType = $entityType AND %s
SET e._lock = true
REMOVE e._lock
RETURN e.version AS version, e.domainId AS domainId, e.createdAt AS createdAt, e.createdBy AS createdBy`, entityLabel, notDeleted("e")),
		Params: map[string]any{"id": id, "entityType": entityType, "tenantId": tenantID},
	}
}

// ReplaceEntity overwrites the whole stored property set; keys absent from the record are removed
func ReplaceEntity(e *model.Entity) (Query, error) {
	props, err := e.ToStorageMap()
	if err != nil {
		return Query{}, err
	}
	return Query{
		Text: fmt.Sprintf(`MATCH (e:%s {id: $id, tenantId: $tenantId})
SET e = $properties
RETURN e AS entity`, entityLabel),
		Params: map[string]any{"id": e.ID, "tenantId": e.TenantID, "properties": props},
	}, nil
}

// SoftDeleteEntity flags a live entity as deleted and keeps the node and its edges
func SoftDeleteEntity(id, entityType, tenantID string, now time.Time) Query {
	return Query{
		Text: fmt.Sprintf(`MATCH (e:%s {id: $id, tenantId: $tenantId})
WHERE e.entityType = $entityType AND %s
SET e.isDeleted = true, e.deletedAt = $now, e.updatedAt = $now
RETURN e.id AS id`, entityLabel, notDeleted("e")),
		Params: map[string]any{"id": id, "entityType": entityType, "tenantId": tenantID, "now": now},
	}
}

// HardDeleteEntity removes the node and every incident edge, live or soft-deleted
func HardDeleteEntity(id, entityType, tenantID string) Query {
	return Query{
		Text: fmt.Sprintf(`MATCH (e:%s {id: $id, tenantId: $tenantId})
WHERE e.entityType = $entityType
WITH e, e.id AS id
DETACH DELETE e
RETURN count(id) AS deleted`, entityLabel),
		Params: map[string]any{"id": id, "entityType": entityType, "tenantId": tenantID},
	}
}

// CreateRelationship matches both live endpoints under the tenant before creating the edge.
// When either match fails the statement yields no rows and writes nothing.
func CreateRelationship(r *model.Relationship) (Query, error) {
	props, err := r.ToStorageMap()
	if err != nil {
		return Query{}, err
	}
	return Query{
		Text: fmt.Sprintf(`MATCH (from:%[1]s {id: $fromId, tenantId: $tenantId})
WHERE %[2]s
MATCH (to:%[1]s {id: $toId, tenantId: $tenantId})
WHERE %[3]s
CREATE (from)-[r:%[4]s]->(to)
SET r = $properties
RETURN r AS relationship, from.entityType AS fromType, to.entityType AS toType`,
			entityLabel, notDeleted("from"), notDeleted("to"), edgeType),
		Params: map[string]any{
			"fromId":     r.FromEntityID,
			"toId":       r.ToEntityID,
			"tenantId":   r.TenantID,
			"properties": props,
		},
	}, nil
}

// Relationships lists the edges of an entity in the given direction. An empty
// relationship type matches every type.
func Relationships(tenantID, entityID, relType string, dir model.Direction) Query {
	var pattern string
	switch dir {
	case model.DirectionOutgoing:
		pattern = "(e)-[r:%s]->(other:%s)"
	case model.DirectionIncoming:
		pattern = "(e)<-[r:%s]-(other:%s)"
	default:
		pattern = "(e)-[r:%s]-(other:%s)"
	}
	params := map[string]any{"entityId": entityID, "tenantId": tenantID}
	where := []string{"r.tenantId = $tenantId", "other.tenantId = $tenantId"}
	if relType != "" {
		where = append(where, "r.relationshipType = $relationshipType")
		params["relationshipType"] = relType
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (e:%s {id: $entityId, tenantId: $tenantId})\n", entityLabel)
	fmt.Fprintf(&b, "MATCH "+pattern+"\n", edgeType, entityLabel)
	fmt.Fprintf(&b, "WHERE %s\n", strings.Join(where, " AND "))
	b.WriteString(`WITH DISTINCT r
RETURN r AS relationship,
       startNode(r).id AS fromId, endNode(r).id AS toId,
       startNode(r).entityType AS fromType, endNode(r).entityType AS toType
ORDER BY relationship.createdAt, relationship.id`)
	return Query{Text: b.String(), Params: params}
}

// DeleteRelationship removes a single edge by id within the tenant
func DeleteRelationship(tenantID, id string) Query {
	return Query{
		Text: fmt.Sprintf(`MATCH ()-[r:%s {id: $id, tenantId: $tenantId}]->()
WITH r, r.id AS id
DELETE r
RETURN count(id) AS deleted`, edgeType),
		Params: map[string]any{"id": id, "tenantId": tenantID},
	}
}

// SchemaStatements returns the idempotent constraint and index statements for the store
func SchemaStatements() []string {
	return []string{
		fmt.Sprintf("CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (e:%s) REQUIRE e.id IS UNIQUE", entityLabel),
		fmt.Sprintf("CREATE INDEX entity_tenant IF NOT EXISTS FOR (e:%s) ON (e.tenantId)", entityLabel),
		fmt.Sprintf("CREATE INDEX entity_tenant_type IF NOT EXISTS FOR (e:%s) ON (e.tenantId, e.entityType)", entityLabel),
		fmt.Sprintf("CREATE INDEX relationship_id IF NOT EXISTS FOR ()-[r:%s]-() ON (r.id)", edgeType),
	}
}
