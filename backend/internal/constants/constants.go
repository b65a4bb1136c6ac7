package constants

// Graph labels and edge types
const (
	// EntityLabel is carried by every entity node regardless of its type
	EntityLabel = "Entity"

	// RelationshipEdgeType is the single edge type used for all typed relationships;
	// the domain-level type is stored in the relationshipType property
	RelationshipEdgeType = "RELATIONSHIP"
)

// Pagination constants
const (
	// DefaultQueryLimit bounds listing queries that do not specify a limit
	DefaultQueryLimit = 100

	// MaxQueryLimit caps caller-supplied limits to prevent unbounded scans
	MaxQueryLimit = 1000
)

// Sort orders
const (
	SortAscending  = "asc"
	SortDescending = "desc"
)

// Event types published by callers after a successful store operation
const (
	EventEntityCreated       = "entity.created"
	EventEntityUpdated       = "entity.updated"
	EventEntityDeleted       = "entity.deleted"
	EventRelationshipCreated = "relationship.created"
	EventRelationshipDeleted = "relationship.deleted"
)
