package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// memoryStore keeps everything in process. Meant for tests and local
// development without postgres or qdrant.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]Entry)}
}

func newMemoryStore(args FactoryArgs) (Store, error) {
	return NewMemoryStore(), nil
}

func (s *memoryStore) Upsert(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.entries[entry.ID] = entry
	}
	return nil
}

func (s *memoryStore) Query(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 4
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]Result, 0, len(s.entries))
	for _, entry := range s.entries {
		results = append(results, Result{
			Text:     entry.Text,
			Metadata: entry.Metadata,
			Score:    cosineSimilarity(vector, entry.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Len reports the number of stored entries.
func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func init() {
	Register("memory", newMemoryStore)
}
