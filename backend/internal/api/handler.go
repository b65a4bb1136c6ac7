// Package api exposes the entity store over HTTP. Every route is scoped by the
// :tenant path segment, which is passed explicitly to the store on each call.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ontology-store/backend/internal/constants"
	"ontology-store/backend/internal/graph"
	"ontology-store/backend/internal/model"
	apperrors "ontology-store/backend/pkg/errors"
)

// EntityStore is the subset of the graph repository the HTTP layer depends on
type EntityStore interface {
	Create(ctx context.Context, entity *model.Entity) (*model.Entity, error)
	GetByID(ctx context.Context, id, entityType, tenantID string) (*model.Entity, bool, error)
	QueryPage(ctx context.Context, filter model.Filter) (*model.PagedResult[*model.Entity], error)
	Count(ctx context.Context, filter model.Filter) (int64, error)
	Update(ctx context.Context, entity *model.Entity) (*model.Entity, error)
	Delete(ctx context.Context, id, entityType, tenantID string, soft bool) (bool, error)
	CreateRelationship(ctx context.Context, rel *model.Relationship) (*model.Relationship, error)
	GetRelationships(ctx context.Context, tenantID, entityID, relType string, direction model.Direction) ([]*model.Relationship, error)
	DeleteRelationship(ctx context.Context, tenantID, id string) (bool, error)
}

// Handler serves the entity and relationship routes
type Handler struct {
	store EntityStore
	log   *zap.Logger
}

func NewHandler(store EntityStore, log *zap.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// NewRouter builds the gin engine. metrics is mounted at /metrics when non-nil.
func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(h.log))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	tenant := router.Group("/api/tenants/:tenant")
	{
		tenant.POST("/entities", h.createEntity)
		tenant.POST("/entities/query", h.queryEntities)
		tenant.POST("/entities/count", h.countEntities)
		tenant.GET("/entities/:type/:id", h.getEntity)
		tenant.PUT("/entities/:type/:id", h.updateEntity)
		tenant.DELETE("/entities/:type/:id", h.deleteEntity)
		tenant.GET("/entities/:type/:id/relationships", h.getRelationships)

		tenant.POST("/relationships", h.createRelationship)
		tenant.DELETE("/relationships/:id", h.deleteRelationship)
	}

	return router
}

type createEntityRequest struct {
	ID         string           `json:"id"`
	EntityType string           `json:"entity_type" binding:"required"`
	DomainID   string           `json:"domain_id"`
	Attributes model.Attributes `json:"attributes"`
	Labels     []string         `json:"labels"`
	CreatedBy  string           `json:"created_by"`
}

// updateEntityRequest carries the complete attribute set; attributes left out are removed.
// The domain is fixed at creation. Timestamps sent back as plain JSON strings are stored
// as strings; send {"$time": "<RFC3339>"} to keep a time attribute temporal.
type updateEntityRequest struct {
	Attributes model.Attributes `json:"attributes"`
	Labels     []string         `json:"labels"`
	Version    int64            `json:"version" binding:"required,min=1"`
	UpdatedBy  string           `json:"updated_by"`
}

type createRelationshipRequest struct {
	ID               string           `json:"id"`
	RelationshipType string           `json:"relationship_type" binding:"required"`
	FromEntityID     string           `json:"from_entity_id" binding:"required"`
	ToEntityID       string           `json:"to_entity_id" binding:"required"`
	DomainID         string           `json:"domain_id"`
	Properties       model.Attributes `json:"properties"`
	CreatedBy        string           `json:"created_by"`
}

func (h *Handler) createEntity(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	entity := model.NewEntity(req.EntityType, c.Param("tenant"), req.DomainID, req.Attributes)
	if req.ID != "" {
		entity.ID = req.ID
	}
	entity.Labels = req.Labels
	entity.Metadata.CreatedBy = req.CreatedBy
	entity.Metadata.UpdatedBy = req.CreatedBy

	created, err := h.store.Create(c.Request.Context(), entity)
	if err != nil {
		h.writeError(c, "create entity", err)
		return
	}

	h.publish(constants.EventEntityCreated, created.TenantID, zap.String("entity_id", created.ID), zap.String("entity_type", created.EntityType))
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) getEntity(c *gin.Context) {
	tenantID, entityType, id := c.Param("tenant"), c.Param("type"), c.Param("id")

	entity, found, err := h.store.GetByID(c.Request.Context(), id, entityType, tenantID)
	if err != nil {
		h.writeError(c, "get entity", err)
		return
	}
	if !found {
		h.writeError(c, "get entity", graph.NewEntityNotFound(id, entityType, tenantID))
		return
	}

	c.JSON(http.StatusOK, entity)
}

func (h *Handler) updateEntity(c *gin.Context) {
	var req updateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	entity := &model.Entity{
		ID:         c.Param("id"),
		EntityType: c.Param("type"),
		TenantID:   c.Param("tenant"),
		Attributes: req.Attributes,
		Labels:     req.Labels,
		Metadata:   model.Metadata{Version: req.Version, UpdatedBy: req.UpdatedBy},
	}
	if entity.Attributes == nil {
		entity.Attributes = model.Attributes{}
	}

	updated, err := h.store.Update(c.Request.Context(), entity)
	if err != nil {
		h.writeError(c, "update entity", err)
		return
	}

	h.publish(constants.EventEntityUpdated, updated.TenantID,
		zap.String("entity_id", updated.ID),
		zap.String("entity_type", updated.EntityType),
		zap.Int64("version", updated.Metadata.Version))
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteEntity(c *gin.Context) {
	tenantID, entityType, id := c.Param("tenant"), c.Param("type"), c.Param("id")

	hard, err := strconv.ParseBool(c.DefaultQuery("hard", "false"))
	if err != nil {
		h.badRequest(c, fmt.Errorf("hard: %w", err))
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), id, entityType, tenantID, !hard)
	if err != nil {
		h.writeError(c, "delete entity", err)
		return
	}
	if !deleted {
		h.writeError(c, "delete entity", graph.NewEntityNotFound(id, entityType, tenantID))
		return
	}

	h.publish(constants.EventEntityDeleted, tenantID,
		zap.String("entity_id", id),
		zap.String("entity_type", entityType),
		zap.Bool("hard", hard))
	c.Status(http.StatusNoContent)
}

// queryEntities answers with one page of results. The tenant always comes from the path.
func (h *Handler) queryEntities(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	page, err := h.store.QueryPage(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "query entities", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":             page.Items,
		"total_count":       page.TotalCount,
		"page":              page.Page,
		"page_size":         page.PageSize,
		"total_pages":       page.TotalPages(),
		"has_next_page":     page.HasNextPage(),
		"has_previous_page": page.HasPreviousPage(),
	})
}

func (h *Handler) countEntities(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	count, err := h.store.Count(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "count entities", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) bindFilter(c *gin.Context) (model.Filter, bool) {
	var filter model.Filter
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&filter); err != nil {
			h.badRequest(c, err)
			return filter, false
		}
	}
	filter.TenantID = c.Param("tenant")
	return filter, true
}

func (h *Handler) createRelationship(c *gin.Context) {
	var req createRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	rel := model.NewRelationship(req.RelationshipType, req.FromEntityID, req.ToEntityID, c.Param("tenant"), req.DomainID, req.Properties)
	if req.ID != "" {
		rel.ID = req.ID
	}
	rel.Metadata.CreatedBy = req.CreatedBy

	created, err := h.store.CreateRelationship(c.Request.Context(), rel)
	if err != nil {
		h.writeError(c, "create relationship", err)
		return
	}

	h.publish(constants.EventRelationshipCreated, created.TenantID,
		zap.String("relationship_id", created.ID),
		zap.String("relationship_type", created.RelationshipType),
		zap.String("from_entity_id", created.FromEntityID),
		zap.String("to_entity_id", created.ToEntityID))
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) getRelationships(c *gin.Context) {
	tenantID, entityType, id := c.Param("tenant"), c.Param("type"), c.Param("id")
	ctx := c.Request.Context()

	_, found, err := h.store.GetByID(ctx, id, entityType, tenantID)
	if err != nil {
		h.writeError(c, "get relationships", err)
		return
	}
	if !found {
		h.writeError(c, "get relationships", graph.NewEntityNotFound(id, entityType, tenantID))
		return
	}

	rels, err := h.store.GetRelationships(ctx, tenantID, id, c.Query("type"), model.ParseDirection(c.Query("direction")))
	if err != nil {
		h.writeError(c, "get relationships", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"relationships": rels, "count": len(rels)})
}

func (h *Handler) deleteRelationship(c *gin.Context) {
	tenantID, id := c.Param("tenant"), c.Param("id")

	deleted, err := h.store.DeleteRelationship(c.Request.Context(), tenantID, id)
	if err != nil {
		h.writeError(c, "delete relationship", err)
		return
	}
	if !deleted {
		h.writeError(c, "delete relationship", apperrors.NewBaseError(apperrors.ErrorTypeNotFound,
			apperrors.CodeRelationshipNotFound, fmt.Sprintf("relationship %s not found", id), nil))
		return
	}

	h.publish(constants.EventRelationshipDeleted, tenantID, zap.String("relationship_id", id))
	c.Status(http.StatusNoContent)
}

// publish records a change event once the store call has succeeded
func (h *Handler) publish(event, tenantID string, fields ...zap.Field) {
	h.log.Info("Store event",
		append([]zap.Field{zap.String("event", event), zap.String("tenant_id", tenantID), zap.Time("at", time.Now().UTC())}, fields...)...)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.writeError(c, "bind request", apperrors.NewBaseError(apperrors.ErrorTypeValidation, apperrors.CodeValidationFailed, err.Error(), err))
}

// writeError maps err onto a status and a client-facing code. Internal failures keep
// their detail in the log only.
func (h *Handler) writeError(c *gin.Context, operation string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.NewContextCancelled(operation, err)
	}

	status := apperrors.HTTPStatus(err)
	message := "internal server error"
	if base, ok := apperrors.AsBase(err); ok && status < http.StatusInternalServerError {
		message = base.Message
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", zap.String("operation", operation), zap.Int("status", status), zap.Error(err))
	}

	c.JSON(status, gin.H{"error": message, "code": apperrors.CodeFor(err)})
}
