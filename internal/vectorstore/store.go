// Package vectorstore abstracts the vector database behind the small
// set of primitives the pipeline needs. Implementations must be safe
// for concurrent use.
package vectorstore

import "context"

// Payload field names shared by every implementation
const (
	FieldUniqueID    = "unique_id"
	FieldContentHash = "content_hash"
	FieldDeprecated  = "deprecated"
)

// Point is a stored vector with its content and metadata payload.
type Point struct {
	ID      string
	Content string
	Vector  []float32
	Payload map[string]interface{}
}

// Match is a similarity search hit. Score is cosine similarity in
// [-1, 1]; higher is closer.
type Match struct {
	Point Point
	Score float64
}

// Store is the vector database collaborator.
type Store interface {
	// EnsureCollection creates the collection if missing and verifies
	// its dimension if it already exists.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert writes points into a collection, replacing any point
	// with the same ID.
	Upsert(ctx context.Context, collection string, points ...Point) error

	// Search returns the top limit points by cosine similarity to the
	// query vector, most similar first. Deprecated points are skipped.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error)

	// FindByField returns the points whose payload field equals value.
	FindByField(ctx context.Context, collection, field string, value interface{}) ([]Point, error)

	// SetPayloadFields merges fields into the payload of an existing
	// point. Used to deprecate entries without rewriting vectors.
	SetPayloadFields(ctx context.Context, collection, id string, fields map[string]interface{}) error

	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (int, error)
}

// UniqueID extracts the unique_id payload field from a point.
func (p Point) UniqueID() string {
	s, _ := p.Payload[FieldUniqueID].(string)
	return s
}

// IsDeprecated reports whether the point's payload marks it deprecated.
func (p Point) IsDeprecated() bool {
	b, _ := p.Payload[FieldDeprecated].(bool)
	return b
}
