package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/recallkit/recallkit/internal/domain"
)

// PGStore implements Store on Postgres with the pgvector extension.
// All collections share the points table, keyed by (collection, id).
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore over an existing connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	var existing int
	err := s.pool.QueryRow(ctx,
		`SELECT dimension FROM collections WHERE name = $1`,
		collection,
	).Scan(&existing)

	if err == nil {
		if existing != dimension {
			return domain.NewConfigurationError("EMBEDDING_DIMENSION",
				fmt.Sprintf("collection %s has dimension %d, requested %d", collection, existing, dimension))
		}
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.NewTransientError("vector store", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO collections (name, dimension) VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING`,
		collection, dimension,
	)
	if err != nil {
		return domain.NewTransientError("vector store", err)
	}
	return nil
}

func (s *PGStore) Upsert(ctx context.Context, collection string, points ...Point) error {
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return domain.NewPermanentError("vector store", fmt.Errorf("marshal payload for %s: %w", p.ID, err))
		}

		_, err = s.pool.Exec(ctx,
			`INSERT INTO points (collection, id, content, embedding, payload, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, now(), now())
			 ON CONFLICT (collection, id)
			 DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding,
			               payload = EXCLUDED.payload, updated_at = now()`,
			collection, p.ID, p.Content, pgvector.NewVector(p.Vector), payload,
		)
		if err != nil {
			return domain.NewTransientError("vector store", err)
		}
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 1
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, embedding, payload, 1 - (embedding <=> $2) AS score
		 FROM points
		 WHERE collection = $1
		   AND COALESCE((payload->>'deprecated')::boolean, false) = false
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		collection, pgvector.NewVector(vector), limit,
	)
	if err != nil {
		return nil, domain.NewTransientError("vector store", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			p       Point
			vec     pgvector.Vector
			payload []byte
			score   float64
		)
		if err := rows.Scan(&p.ID, &p.Content, &vec, &payload, &score); err != nil {
			return nil, domain.NewTransientError("vector store", err)
		}
		p.Vector = vec.Slice()
		if err := json.Unmarshal(payload, &p.Payload); err != nil {
			return nil, domain.NewPermanentError("vector store", fmt.Errorf("unmarshal payload for %s: %w", p.ID, err))
		}
		matches = append(matches, Match{Point: p, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewTransientError("vector store", err)
	}
	return matches, nil
}

func (s *PGStore) FindByField(ctx context.Context, collection, field string, value interface{}) ([]Point, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, embedding, payload
		 FROM points
		 WHERE collection = $1 AND payload->>$2 = $3`,
		collection, field, fmt.Sprintf("%v", value),
	)
	if err != nil {
		return nil, domain.NewTransientError("vector store", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p       Point
			vec     pgvector.Vector
			payload []byte
		)
		if err := rows.Scan(&p.ID, &p.Content, &vec, &payload); err != nil {
			return nil, domain.NewTransientError("vector store", err)
		}
		p.Vector = vec.Slice()
		if err := json.Unmarshal(payload, &p.Payload); err != nil {
			return nil, domain.NewPermanentError("vector store", fmt.Errorf("unmarshal payload for %s: %w", p.ID, err))
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *PGStore) SetPayloadFields(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return domain.NewPermanentError("vector store", fmt.Errorf("marshal payload patch: %w", err))
	}

	cmdTag, err := s.pool.Exec(ctx,
		`UPDATE points SET payload = payload || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, patch,
	)
	if err != nil {
		return domain.NewTransientError("vector store", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (s *PGStore) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM points WHERE collection = $1`,
		collection,
	).Scan(&count)
	if err != nil {
		return 0, domain.NewTransientError("vector store", err)
	}
	return count, nil
}
