package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/veltrane/ragchat/internal/config"
)

// Entry is one indexed chunk: its embedding plus the payload returned on a hit.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// Result is a similarity-search hit, higher score means closer.
type Result struct {
	Text     string
	Metadata map[string]string
	Score    float32
}

type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, topK int) ([]Result, error)
}

// FactoryArgs carries the shared collection name, an optional sql handle for
// database-backed stores, and the store-specific config blob.
type FactoryArgs struct {
	Collection string
	DB         *sql.DB
	Data       interface{}
}

type Factory func(args FactoryArgs) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.VectorStoreConfig, db *sql.DB) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
	return factory(FactoryArgs{
		Collection: cfg.Collection,
		DB:         db,
		Data:       cfg.Data,
	})
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector store config: %w", err)
	}
	return nil
}
