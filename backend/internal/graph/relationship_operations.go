package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"ontology-store/backend/internal/cypher"
	"ontology-store/backend/internal/model"
)

// ============================================================================
// Relationship Operations
// ============================================================================

// CreateRelationship stores a directed edge between two live entities of the same tenant.
// When either endpoint is missing nothing is written and *EndpointNotFoundError is returned.
func (r *Repository) CreateRelationship(ctx context.Context, rel *model.Relationship) (created *model.Relationship, err error) {
	start := time.Now()
	defer func() { r.observe(opCreateRelationship, start, err, true) }()

	if err := requireTenant(rel.TenantID); err != nil {
		return nil, err
	}

	stamped := *rel
	if stamped.ID == "" {
		stamped.ID = r.newID()
	}
	now := r.now()
	stamped.Metadata = model.Metadata{
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: rel.Metadata.CreatedBy,
		UpdatedBy: rel.Metadata.CreatedBy,
		Version:   1,
	}

	fields := []zap.Field{
		zap.String("relationship_id", stamped.ID),
		zap.String("relationship_type", stamped.RelationshipType),
		zap.String("from_entity_id", stamped.FromEntityID),
		zap.String("to_entity_id", stamped.ToEntityID),
		zap.String("tenant_id", stamped.TenantID),
	}

	q, err := cypher.CreateRelationship(&stamped)
	if err != nil {
		return nil, r.fail(opCreateRelationship, err, fields...)
	}

	out, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, NewEndpointNotFound(stamped.FromEntityID, stamped.ToEntityID, stamped.TenantID)
		}
		record := res.Record()
		return [2]string{getStringFromRecord(record, "fromType"), getStringFromRecord(record, "toType")}, nil
	})
	if err != nil {
		return nil, r.fail(opCreateRelationship, err, fields...)
	}

	types := out.([2]string)
	stamped.FromEntityType, stamped.ToEntityType = types[0], types[1]
	r.logger.Debug("Created relationship", fields...)
	return &stamped, nil
}

// GetRelationships lists the edges of an entity in the given direction. An empty
// relationship type matches every type. Endpoint ids and types are always resolved from
// the edge's start and end nodes.
func (r *Repository) GetRelationships(ctx context.Context, tenantID, entityID, relType string, direction model.Direction) (rels []*model.Relationship, err error) {
	start := time.Now()
	defer func() { r.observe(opGetRelationships, start, err, true) }()

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	q := cypher.Relationships(tenantID, entityID, relType, direction)
	out, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rels := make([]*model.Relationship, 0, len(records))
		for _, record := range records {
			rel, err := relationshipFromRecord(record, "relationship")
			if err != nil {
				return nil, err
			}
			rels = append(rels, rel)
		}
		return rels, nil
	})
	if err != nil {
		return nil, r.fail(opGetRelationships, err,
			zap.String("entity_id", entityID),
			zap.String("relationship_type", relType),
			zap.String("direction", string(direction)),
			zap.String("tenant_id", tenantID))
	}
	return out.([]*model.Relationship), nil
}

// DeleteRelationship removes one edge by id and reports whether it existed
func (r *Repository) DeleteRelationship(ctx context.Context, tenantID, id string) (deleted bool, err error) {
	start := time.Now()
	defer func() { r.observe(opDeleteRelationship, start, err, deleted) }()

	if err := requireTenant(tenantID); err != nil {
		return false, err
	}

	q := cypher.DeleteRelationship(tenantID, id)
	out, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt64FromRecord(record, "deleted") > 0, nil
	})
	if err != nil {
		return false, r.fail(opDeleteRelationship, err, zap.String("relationship_id", id), zap.String("tenant_id", tenantID))
	}
	return out.(bool), nil
}
