package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ariastack/aria-engine/internal/cache"
	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/utils"
)

// Neo4jGraph resolves blast radii from a Neo4j dependency graph. The driver
// is opened lazily on first use and shared across runs; Close releases it at
// process shutdown.
type Neo4jGraph struct {
	uri      string
	username string
	password string
	database string
	depth    int
	timeout  time.Duration

	once     sync.Once
	driver   neo4j.DriverWithContext
	driverMu sync.Mutex
	initErr  error

	cacheProvider cache.Provider
	cacheTTL      time.Duration
	logger        *slog.Logger
}

// GraphConfig collects the Neo4j connection settings.
type GraphConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Depth    int
	Timeout  time.Duration
}

// NewNeo4jGraph constructs a graph connector. cacheProvider may be nil.
func NewNeo4jGraph(cfg GraphConfig, cacheProvider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *Neo4jGraph {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &Neo4jGraph{
		uri:           cfg.URI,
		username:      cfg.Username,
		password:      cfg.Password,
		database:      cfg.Database,
		depth:         cfg.Depth,
		timeout:       cfg.Timeout,
		cacheProvider: cacheProvider,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

func (g *Neo4jGraph) getDriver() (neo4j.DriverWithContext, error) {
	g.once.Do(func() {
		driver, err := neo4j.NewDriverWithContext(
			g.uri,
			neo4j.BasicAuth(g.username, g.password, ""),
			func(c *neo4j.Config) {
				c.MaxConnectionLifetime = 5 * time.Minute
				c.MaxConnectionPoolSize = 50
				c.ConnectionAcquisitionTimeout = g.timeout
			},
		)
		if err != nil {
			g.initErr = err
			return
		}
		g.driverMu.Lock()
		g.driver = driver
		g.driverMu.Unlock()
	})
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.driverMu.Lock()
	defer g.driverMu.Unlock()
	return g.driver, nil
}

// FetchBlastRadius returns services within the bounded traversal depth both
// downstream (impacted) and upstream of the affected service.
func (g *Neo4jGraph) FetchBlastRadius(ctx context.Context, service string) (models.DependencyGraph, error) {
	const op = "graph.FetchBlastRadius"

	cacheKey := "blast:" + service
	if data, err := g.cacheProvider.Get(ctx, cacheKey); err == nil {
		var cached models.DependencyGraph
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	driver, err := g.getDriver()
	if err != nil {
		return models.DependencyGraph{}, utils.NewAppError(op, utils.KindUnavailable, "open graph driver", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer session.Close(ctx)

	downQuery := fmt.Sprintf(`
		MATCH (down:Service)-[:DEPENDS_ON*1..%d]->(s:Service {name: $service})
		RETURN DISTINCT down.name AS serviceName
		LIMIT 25`, g.depth)
	upQuery := fmt.Sprintf(`
		MATCH (s:Service {name: $service})-[:DEPENDS_ON*1..%d]->(up:Service)
		RETURN DISTINCT up.name AS serviceName
		LIMIT 25`, g.depth)

	impacted, err := g.collectNames(ctx, session, downQuery, service)
	if err != nil {
		return models.DependencyGraph{}, utils.NewAppError(op, utils.KindUnavailable, "downstream traversal", err)
	}
	upstream, err := g.collectNames(ctx, session, upQuery, service)
	if err != nil {
		return models.DependencyGraph{}, utils.NewAppError(op, utils.KindUnavailable, "upstream traversal", err)
	}

	result := models.DependencyGraph{
		ImpactedServices: impacted,
		UpstreamServices: upstream,
		Mode:             models.ModeLive,
	}

	if data, err := json.Marshal(result); err == nil {
		if err := g.cacheProvider.Set(ctx, cacheKey, data, g.cacheTTL); err != nil {
			g.logger.Debug("blast radius cache write failed", slog.Any("error", err))
		}
	}

	return result, nil
}

func (g *Neo4jGraph) collectNames(ctx context.Context, session neo4j.SessionWithContext, query, service string) ([]string, error) {
	result, err := session.Run(ctx, query, map[string]any{"service": service})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for result.Next(ctx) {
		record := result.Record()
		if len(record.Values) == 0 {
			continue
		}
		if name, ok := record.Values[0].(string); ok && name != "" {
			seen[name] = struct{}{}
		}
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close releases the underlying driver if it was ever opened.
func (g *Neo4jGraph) Close(ctx context.Context) error {
	g.driverMu.Lock()
	driver := g.driver
	g.driverMu.Unlock()
	if driver == nil {
		return nil
	}
	return driver.Close(ctx)
}
