package storage

import (
	"log/slog"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of articles.
	Store(articles []*types.Article) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the storage backend named by the configuration.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "mongodb":
		return NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	default:
		return NewFileStorage(cfg.Type, cfg.OutputPath, logger)
	}
}

// articleDoc flattens an article and its provenance metadata into one
// map for JSON and Mongo encoding.
func articleDoc(art *types.Article) map[string]any {
	doc := make(map[string]any, len(art.Fields)+3)
	doc["_source_url"] = art.SourceURL
	doc["_position"] = art.Position
	doc["_parsed_at"] = art.ParsedAt
	for k, v := range art.Fields {
		doc[k] = v
	}
	return doc
}
