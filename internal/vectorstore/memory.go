package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/recallkit/recallkit/internal/domain"
)

// MemoryStore is an in-memory Store used by tests and dry runs.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	points    map[string]Point
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection]
	if !ok {
		s.collections[collection] = &memoryCollection{
			dimension: dimension,
			points:    make(map[string]Point),
		}
		return nil
	}
	if existing.dimension != dimension {
		return domain.NewConfigurationError("EMBEDDING_DIMENSION",
			fmt.Sprintf("collection %s has dimension %d, requested %d", collection, existing.dimension, dimension))
	}
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, points ...Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return domain.NewPermanentError("vector store", fmt.Errorf("collection %s does not exist", collection))
	}

	for _, p := range points {
		if len(p.Vector) != col.dimension {
			return domain.NewPermanentError("vector store",
				fmt.Errorf("point %s has dimension %d, collection %s expects %d", p.ID, len(p.Vector), collection, col.dimension))
		}
		col.points[p.ID] = clonePoint(p)
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, vector []float32, limit int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, domain.NewPermanentError("vector store", fmt.Errorf("collection %s does not exist", collection))
	}

	var matches []Match
	for _, p := range col.points {
		if p.IsDeprecated() {
			continue
		}
		matches = append(matches, Match{Point: clonePoint(p), Score: CosineSimilarity(vector, p.Vector)})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemoryStore) FindByField(_ context.Context, collection, field string, value interface{}) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, domain.NewPermanentError("vector store", fmt.Errorf("collection %s does not exist", collection))
	}

	var found []Point
	for _, p := range col.points {
		if p.Payload[field] == value {
			found = append(found, clonePoint(p))
		}
	}
	return found, nil
}

func (s *MemoryStore) SetPayloadFields(_ context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return domain.NewPermanentError("vector store", fmt.Errorf("collection %s does not exist", collection))
	}

	p, ok := col.points[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	for k, v := range fields {
		p.Payload[k] = v
	}
	col.points[id] = p
	return nil
}

func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return 0, domain.NewPermanentError("vector store", fmt.Errorf("collection %s does not exist", collection))
	}
	return len(col.points), nil
}

// CosineSimilarity computes the cosine of the angle between two
// vectors. Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clonePoint(p Point) Point {
	clone := Point{
		ID:      p.ID,
		Content: p.Content,
		Vector:  append([]float32(nil), p.Vector...),
		Payload: make(map[string]interface{}, len(p.Payload)),
	}
	for k, v := range p.Payload {
		clone.Payload[k] = v
	}
	return clone
}
