package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ontology-store/backend/internal/graph"
	"ontology-store/backend/internal/model"
	"ontology-store/backend/pkg/config"
	"ontology-store/backend/pkg/logger"
)

// writer is the part of the repository the seeder needs
type writer interface {
	Create(ctx context.Context, entity *model.Entity) (*model.Entity, error)
	CreateRelationship(ctx context.Context, rel *model.Relationship) (*model.Relationship, error)
}

func main() {
	file := flag.String("file", "", "Path to the YAML fixture")
	tenantID := flag.String("tenant", "", "Tenant to seed into")
	domainID := flag.String("domain", "", "Domain id, overrides the fixture's domain")
	ensureIndexes := flag.Bool("ensure-indexes", true, "Create constraints and indexes before seeding")
	workers := flag.Int("workers", 8, "Concurrent writes")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	if *file == "" || *tenantID == "" {
		flag.Usage()
		os.Exit(2)
	}

	fx, err := LoadFixture(*file)
	if err != nil {
		log.Fatal("Failed to load fixture", zap.String("file", *file), zap.Error(err))
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}

	repo := graph.NewRepository(driver, graph.WithDatabase(cfg.Neo4jDatabase), graph.WithLogger(log.Named("graph")))
	defer repo.Close(context.Background())

	// Verify connection
	ctx := context.Background()
	if err := repo.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	if *ensureIndexes {
		log.Info("Creating constraints and indexes...")
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to create some constraints or indexes", zap.Error(err))
		}
	}

	log.Info("Starting database seeding...",
		zap.String("file", *file),
		zap.String("tenant_id", *tenantID),
		zap.Int("entities", len(fx.Entities)),
		zap.Int("relationships", len(fx.Relationships)),
	)

	summary, err := seed(ctx, repo, fx, *tenantID, *domainID, *workers)
	if err != nil {
		log.Fatal("Seeding failed",
			zap.Int("entities_created", summary.Entities),
			zap.Int("relationships_created", summary.Relationships),
			zap.Error(err))
	}

	log.Info("Seeding complete",
		zap.Int("entities_created", summary.Entities),
		zap.Int("relationships_created", summary.Relationships),
	)
}

type seedSummary struct {
	Entities      int
	Relationships int
}

// seed writes every entity before any relationship so endpoints always exist.
// Each phase fans out over at most workers concurrent writes and stops at the first error.
func seed(ctx context.Context, w writer, fx *Fixture, tenantID, domainID string, workers int) (seedSummary, error) {
	var summary seedSummary
	if workers <= 0 {
		workers = 1
	}

	entities, rels, err := fx.Records(tenantID, domainID)
	if err != nil {
		return summary, err
	}

	created := make([]bool, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entities {
		g.Go(func() error {
			if _, err := w.Create(gctx, e); err != nil {
				return fmt.Errorf("entity %s (%s): %w", e.ID, e.EntityType, err)
			}
			created[i] = true
			return nil
		})
	}
	err = g.Wait()
	summary.Entities = countTrue(created)
	if err != nil {
		return summary, err
	}

	linked := make([]bool, len(rels))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, r := range rels {
		g.Go(func() error {
			if _, err := w.CreateRelationship(gctx, r); err != nil {
				return fmt.Errorf("relationship %s %s->%s: %w", r.RelationshipType, r.FromEntityID, r.ToEntityID, err)
			}
			linked[i] = true
			return nil
		})
	}
	err = g.Wait()
	summary.Relationships = countTrue(linked)
	return summary, err
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
