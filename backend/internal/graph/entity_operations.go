package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ontology-store/backend/internal/cypher"
	"ontology-store/backend/internal/model"
)

// Operation names used in logs and metrics
const (
	opCreate             = "create"
	opGetByID            = "get_by_id"
	opQuery              = "query"
	opUpdate             = "update"
	opDelete             = "delete"
	opCount              = "count"
	opCreateRelationship = "create_relationship"
	opGetRelationships   = "get_relationships"
	opDeleteRelationship = "delete_relationship"
)

func entityFields(id, entityType, tenantID string) []zap.Field {
	return []zap.Field{zap.String("entity_id", id), zap.String("entity_type", entityType), zap.String("tenant_id", tenantID)}
}

// Create stores a new entity at version 1 and returns the record read back from the store
func (r *Repository) Create(ctx context.Context, entity *model.Entity) (result *model.Entity, err error) {
	start := time.Now()
	defer func() { r.observe(opCreate, start, err, true) }()

	if err := requireTenant(entity.TenantID); err != nil {
		return nil, err
	}

	e := entity.Clone()
	if e.ID == "" {
		e.ID = r.newID()
	}
	now := r.now()
	e.Metadata.CreatedAt = now
	e.Metadata.UpdatedAt = now
	e.Metadata.Version = 1
	e.Metadata.IsDeleted = false
	e.Metadata.DeletedAt = nil
	e.NormalizeLabels()

	q, err := cypher.CreateEntity(e)
	if err != nil {
		return nil, r.fail(opCreate, err, entityFields(e.ID, e.EntityType, e.TenantID)...)
	}

	out, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return entityFromRecord(record, "entity")
	})
	if err != nil {
		return nil, r.fail(opCreate, err, entityFields(e.ID, e.EntityType, e.TenantID)...)
	}

	created := out.(*model.Entity)
	r.logger.Debug("Created entity", entityFields(created.ID, created.EntityType, created.TenantID)...)
	return created, nil
}

// GetByID returns the live entity matching id, type and tenant. A missing entity is
// reported as found == false with a nil error.
func (r *Repository) GetByID(ctx context.Context, id, entityType, tenantID string) (entity *model.Entity, found bool, err error) {
	start := time.Now()
	defer func() { r.observe(opGetByID, start, err, found) }()

	if err := requireTenant(tenantID); err != nil {
		return nil, false, err
	}

	q := cypher.GetEntity(id, entityType, tenantID)
	out, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}
		return entityFromRecord(res.Record(), "entity")
	})
	if err != nil {
		return nil, false, r.fail(opGetByID, err, entityFields(id, entityType, tenantID)...)
	}
	if out == nil {
		return nil, false, nil
	}
	return out.(*model.Entity), true, nil
}

// Query lists live entities matching the filter. The result is never nil.
func (r *Repository) Query(ctx context.Context, filter model.Filter) (entities []*model.Entity, err error) {
	start := time.Now()
	defer func() { r.observe(opQuery, start, err, true) }()

	if err := requireTenant(filter.TenantID); err != nil {
		return nil, err
	}

	q := r.translateFilter(filter, false)
	out, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return entitiesFromRecords(records)
	})
	if err != nil {
		return nil, r.fail(opQuery, err, zap.String("entity_type", filter.EntityType), zap.String("tenant_id", filter.TenantID))
	}
	return out.([]*model.Entity), nil
}

// Count returns how many live entities match the filter, ignoring sort and pagination
func (r *Repository) Count(ctx context.Context, filter model.Filter) (count int64, err error) {
	start := time.Now()
	defer func() { r.observe(opCount, start, err, true) }()

	if err := requireTenant(filter.TenantID); err != nil {
		return 0, err
	}

	q := r.translateFilter(filter, true)
	out, err := r.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt64FromRecord(record, "count"), nil
	})
	if err != nil {
		return 0, r.fail(opCount, err, zap.String("entity_type", filter.EntityType), zap.String("tenant_id", filter.TenantID))
	}
	return out.(int64), nil
}

// QueryPage runs the listing and the count concurrently and combines them into one page
func (r *Repository) QueryPage(ctx context.Context, filter model.Filter) (*model.PagedResult[*model.Entity], error) {
	filter = r.withDefaultLimit(filter).Normalized()

	var (
		items []*model.Entity
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = r.Query(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = r.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return model.NewPagedResult(items, total, filter), nil
}

// Update replaces the stored property set of a live entity with the supplied record.
// The domain is fixed at creation and always kept from the stored node.
// The caller's Metadata.Version is the version it read: inside the same write transaction
// the stored version is compared against it and a mismatch fails with *ConflictError,
// unless the repository runs with last-write-wins. The stored version becomes the
// caller's version plus one.
func (r *Repository) Update(ctx context.Context, entity *model.Entity) (updated *model.Entity, err error) {
	start := time.Now()
	defer func() { r.observe(opUpdate, start, err, true) }()

	if err := requireTenant(entity.TenantID); err != nil {
		return nil, err
	}

	expected := entity.Metadata.Version
	e := entity.Clone()
	e.Metadata.UpdatedAt = r.now()
	e.Metadata.Version = expected + 1
	e.Metadata.IsDeleted = false
	e.Metadata.DeletedAt = nil

	lock := cypher.LockEntity(e.ID, e.EntityType, e.TenantID)
	out, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, lock.Text, lock.Params)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, NewEntityNotFound(e.ID, e.EntityType, e.TenantID)
		}
		current := res.Record()
		stored := versionFromRecord(current, "version")
		if stored != expected && !r.lastWriteWins {
			return nil, NewConflict(e.ID, e.TenantID, expected, stored)
		}

		next := e.Clone()
		carryStoredFields(next, current)

		replace, err := cypher.ReplaceEntity(next)
		if err != nil {
			return nil, err
		}
		res, err = tx.Run(ctx, replace.Text, replace.Params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return entityFromRecord(record, "entity")
	})
	if err != nil {
		return nil, r.fail(opUpdate, err, append(entityFields(e.ID, e.EntityType, e.TenantID), zap.Int64("expected_version", expected))...)
	}

	updated = out.(*model.Entity)
	r.logger.Debug("Updated entity",
		append(entityFields(updated.ID, updated.EntityType, updated.TenantID), zap.Int64("version", updated.Metadata.Version))...)
	return updated, nil
}

// Delete soft-deletes (flag flip, node and edges kept) or hard-deletes (node and every
// incident edge removed) an entity. It reports whether a matching entity was acted upon;
// soft-deleting an already deleted entity reports false.
func (r *Repository) Delete(ctx context.Context, id, entityType, tenantID string, soft bool) (deleted bool, err error) {
	start := time.Now()
	defer func() { r.observe(opDelete, start, err, deleted) }()

	if err := requireTenant(tenantID); err != nil {
		return false, err
	}

	var q cypher.Query
	if soft {
		q = cypher.SoftDeleteEntity(id, entityType, tenantID, r.now())
	} else {
		q = cypher.HardDeleteEntity(id, entityType, tenantID)
	}

	out, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		if soft {
			records, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			return len(records) > 0, nil
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt64FromRecord(record, "deleted") > 0, nil
	})
	if err != nil {
		return false, r.fail(opDelete, err, append(entityFields(id, entityType, tenantID), zap.Bool("soft", soft))...)
	}

	deleted = out.(bool)
	if deleted {
		r.logger.Debug("Deleted entity", append(entityFields(id, entityType, tenantID), zap.Bool("soft", soft))...)
	}
	return deleted, nil
}

func (r *Repository) withDefaultLimit(filter model.Filter) model.Filter {
	if filter.Limit <= 0 {
		filter.Limit = r.defaultLimit
	}
	return filter
}

// translateFilter builds the Cypher for a filter and reports what the translation left out
func (r *Repository) translateFilter(filter model.Filter, countOnly bool) cypher.Query {
	q := cypher.EntityFilter(r.withDefaultLimit(filter), countOnly)
	if len(q.Dropped) > 0 {
		r.logger.Warn("Ignoring attribute filters with unsupported operators",
			zap.Strings("attributes", q.Dropped),
			zap.String("entity_type", filter.EntityType),
			zap.String("tenant_id", filter.TenantID))
	}
	if filter.SearchQuery != "" {
		r.logger.Debug("Search query has no matching semantics yet and was not applied",
			zap.String("tenant_id", filter.TenantID))
	}
	return q
}
