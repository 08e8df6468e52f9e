package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ariastack/aria-engine/internal/cache"
	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/utils"
)

// MongoRunbooks retrieves historical incident runbooks from a MongoDB
// collection. The client is opened lazily on first use; Close releases it at
// process shutdown.
type MongoRunbooks struct {
	uri        string
	database   string
	collection string
	timeout    time.Duration

	once    sync.Once
	mu      sync.Mutex
	client  *mongo.Client
	initErr error

	cacheProvider cache.Provider
	cacheTTL      time.Duration
	logger        *slog.Logger
}

// RunbooksConfig collects the runbook store connection settings.
type RunbooksConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// NewMongoRunbooks constructs a runbook connector. cacheProvider may be nil.
func NewMongoRunbooks(cfg RunbooksConfig, cacheProvider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *MongoRunbooks {
	if cfg.Database == "" {
		cfg.Database = "aria"
	}
	if cfg.Collection == "" {
		cfg.Collection = "runbooks"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &MongoRunbooks{
		uri:           cfg.URI,
		database:      cfg.Database,
		collection:    cfg.Collection,
		timeout:       cfg.Timeout,
		cacheProvider: cacheProvider,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// Mode reports the connector mode.
func (r *MongoRunbooks) Mode() models.ConnectorMode { return models.ModeLive }

func (r *MongoRunbooks) getCollection(ctx context.Context) (*mongo.Collection, error) {
	r.once.Do(func() {
		connectCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(r.uri))
		if err != nil {
			r.initErr = err
			return
		}
		r.mu.Lock()
		r.client = client
		r.mu.Unlock()
	})
	if r.initErr != nil {
		return nil, r.initErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Database(r.database).Collection(r.collection), nil
}

type runbookDoc struct {
	Title           string   `bson:"title"`
	Summary         string   `bson:"summary"`
	Steps           []string `bson:"steps"`
	LastUsedAt      string   `bson:"lastUsedAt"`
	SimilarityScore float64  `bson:"similarityScore"`
}

// FetchRunbooks returns up to limit runbooks matching the service, ordered by
// similarity score descending.
func (r *MongoRunbooks) FetchRunbooks(ctx context.Context, service, summary string, limit int) ([]models.Runbook, error) {
	const op = "runbooks.FetchRunbooks"
	if limit <= 0 {
		limit = 3
	}

	cacheKey := fmt.Sprintf("runbooks:%s:%d", service, limit)
	if data, err := r.cacheProvider.Get(ctx, cacheKey); err == nil {
		var cached []models.Runbook
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	col, err := r.getCollection(ctx)
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindUnavailable, "open runbook store", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"$or": []bson.M{{"service": service}, {"tags": service}}}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "similarityScore", Value: -1}})

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindUnavailable, "runbook query", err)
	}
	defer cursor.Close(ctx)

	books := make([]models.Runbook, 0, limit)
	for cursor.Next(ctx) {
		var doc runbookDoc
		if err := cursor.Decode(&doc); err != nil {
			r.logger.Warn("skipping undecodable runbook", slog.Any("error", err))
			continue
		}
		books = append(books, models.Runbook{
			Title:           doc.Title,
			Summary:         doc.Summary,
			Steps:           doc.Steps,
			LastUsedAt:      doc.LastUsedAt,
			SimilarityScore: doc.SimilarityScore,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(op, utils.KindUnavailable, "runbook cursor", err)
	}

	if data, err := json.Marshal(books); err == nil {
		if err := r.cacheProvider.Set(ctx, cacheKey, data, r.cacheTTL); err != nil {
			r.logger.Debug("runbook cache write failed", slog.Any("error", err))
		}
	}

	return books, nil
}

// Close releases the underlying client if it was ever opened.
func (r *MongoRunbooks) Close(ctx context.Context) error {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
