package model

import (
	"strings"

	"ontology-store/backend/internal/constants"
)

// Operator is an attribute predicate operator
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
	OpGT        Operator = "gt"
	OpLT        Operator = "lt"
	OpGTE       Operator = "gte"
	OpLTE       Operator = "lte"
	OpIn        Operator = "in"
	OpBetween   Operator = "between"
)

// Normalize lower-cases and trims the operator
func (o Operator) Normalize() Operator {
	return Operator(strings.ToLower(strings.TrimSpace(string(o))))
}

// AttributeFilter is a single predicate on one attribute.
// OpIn and OpBetween read Values; every other operator reads Value.
type AttributeFilter struct {
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
	Values   []Value  `json:"values,omitempty"`
}

// Filter describes which entities to list or count
type Filter struct {
	EntityType       string                     `json:"entity_type,omitempty"`
	TenantID         string                     `json:"tenant_id,omitempty"`
	DomainID         string                     `json:"domain_id,omitempty"`
	AttributeFilters map[string]AttributeFilter `json:"attribute_filters,omitempty"`
	// SearchQuery is reserved for a full-text layer and does not constrain results yet
	SearchQuery string `json:"search_query,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
	SortBy      string `json:"sort_by,omitempty"`
	SortOrder   string `json:"sort_order,omitempty"`
}

// Normalized returns a copy with pagination and sort defaults applied
func (f Filter) Normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = constants.DefaultQueryLimit
	}
	if f.Limit > constants.MaxQueryLimit {
		f.Limit = constants.MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	order := strings.ToLower(strings.TrimSpace(f.SortOrder))
	if order != constants.SortDescending {
		order = constants.SortAscending
	}
	f.SortOrder = order
	return f
}

// Direction selects which edges of an entity to traverse
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// ParseDirection maps anything other than outgoing or incoming to DirectionBoth
func ParseDirection(s string) Direction {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionOutgoing:
		return DirectionOutgoing
	case DirectionIncoming:
		return DirectionIncoming
	}
	return DirectionBoth
}

// PagedResult is one page of a listing together with the total match count
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

// NewPagedResult derives the page number from a normalized filter
func NewPagedResult[T any](items []T, total int64, f Filter) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	page := 0
	if f.Limit > 0 {
		page = f.Offset / f.Limit
	}
	return &PagedResult[T]{Items: items, TotalCount: total, Page: page, PageSize: f.Limit}
}

func (p *PagedResult[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.TotalCount + int64(p.PageSize) - 1) / int64(p.PageSize))
}

func (p *PagedResult[T]) HasNextPage() bool     { return p.Page < p.TotalPages()-1 }
func (p *PagedResult[T]) HasPreviousPage() bool { return p.Page > 0 }
