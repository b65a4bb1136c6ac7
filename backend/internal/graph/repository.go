package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"ontology-store/backend/internal/constants"
	"ontology-store/backend/internal/cypher"
	"ontology-store/backend/internal/metrics"
	apperrors "ontology-store/backend/pkg/errors"
	"ontology-store/backend/pkg/logger"
)

// Repository is the store gateway: it owns every interaction with Neo4j.
// Each operation opens one session, runs one managed transaction and closes the session
// on every exit path. It holds no mutable state of its own, so it is safe for concurrent use.
type Repository struct {
	driver        neo4j.DriverWithContext
	logger        *zap.Logger
	metrics       *metrics.StoreMetrics
	database      string
	defaultLimit  int
	lastWriteWins bool
	now           func() time.Time
	newID         func() string
}

// Option configures a Repository
type Option func(*Repository)

func WithLogger(l *zap.Logger) Option { return func(r *Repository) { r.logger = l } }

func WithMetrics(m *metrics.StoreMetrics) Option { return func(r *Repository) { r.metrics = m } }

// WithDatabase targets a named database instead of the server default
func WithDatabase(name string) Option { return func(r *Repository) { r.database = name } }

// WithDefaultLimit sets the page size used when a filter carries no limit
func WithDefaultLimit(limit int) Option {
	return func(r *Repository) {
		if limit > 0 {
			r.defaultLimit = limit
		}
	}
}

// WithLastWriteWins skips the stored-version comparison on update
func WithLastWriteWins(enabled bool) Option { return func(r *Repository) { r.lastWriteWins = enabled } }

func WithClock(now func() time.Time) Option { return func(r *Repository) { r.now = now } }

func WithIDGenerator(gen func() string) Option { return func(r *Repository) { r.newID = gen } }

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, opts ...Option) *Repository {
	r := &Repository{
		driver:       driver,
		logger:       logger.Named("graph"),
		defaultLimit: constants.DefaultQueryLimit,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// VerifyConnectivity checks that the database is reachable with the configured credentials
func (r *Repository) VerifyConnectivity(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// EnsureIndexes creates the uniqueness constraint and lookup indexes if they are missing
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	var errs []error
	for _, stmt := range cypher.SchemaStatements() {
		result, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			r.logger.Warn("Failed to apply schema statement", zap.String("statement", stmt), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

// write runs work in a single write transaction on a fresh session
func (r *Repository) write(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

// read runs work in a single read transaction on a fresh session
func (r *Repository) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

func (r *Repository) observe(operation string, start time.Time, err error, found bool) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case !found:
		outcome = metrics.OutcomeNotFound
	}
	r.metrics.Observe(operation, outcome, start)
}

// fail logs the failure context (never attribute values). Store-level typed errors are
// returned as is; storage errors are wrapped so errors.Is/As still reach the driver error.
func (r *Repository) fail(operation string, err error, fields ...zap.Field) error {
	fields = append([]zap.Field{zap.String("operation", operation), zap.Error(err)}, fields...)
	if _, ok := apperrors.AsBase(err); ok {
		r.logger.Warn("Store operation rejected", fields...)
		return err
	}
	r.logger.Error("Store operation failed", fields...)
	return fmt.Errorf("%s failed: %w", operation, err)
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	return nil
}
