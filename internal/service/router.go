package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/vectorstore"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// StoreResult describes where and how an entry was persisted.
type StoreResult struct {
	PointID    string
	Collection string
	Version    int
	Superseded string
}

// StorageRouter maps entry types to collections and persists entries.
// Routing is a pure lookup built once from config; nothing downstream
// branches on entry type.
type StorageRouter struct {
	store    vectorstore.Store
	routes   map[domain.EntryType]string
	strategy config.UpdateStrategy
	uuidGen  UUIDGenerator
	now      Clock
}

// NewStorageRouter creates a StorageRouter from configuration.
func NewStorageRouter(store vectorstore.Store, cfg *config.Config) *StorageRouter {
	routes := make(map[domain.EntryType]string, len(domain.AllEntryTypes()))
	for _, et := range domain.AllEntryTypes() {
		routes[et] = cfg.CollectionFor(et)
	}
	return &StorageRouter{
		store:    store,
		routes:   routes,
		strategy: config.UpdateStrategy(cfg.UpdateStrategy),
		uuidGen:  &DefaultUUIDGenerator{},
		now:      time.Now,
	}
}

// NewStorageRouterWithDeps creates a StorageRouter with explicit
// dependencies (for testing).
func NewStorageRouterWithDeps(store vectorstore.Store, cfg *config.Config, uuidGen UUIDGenerator, now Clock) *StorageRouter {
	r := NewStorageRouter(store, cfg)
	if uuidGen != nil {
		r.uuidGen = uuidGen
	}
	if now != nil {
		r.now = now
	}
	return r
}

// CollectionFor resolves the target collection for an entry type.
func (r *StorageRouter) CollectionFor(t domain.EntryType) (string, error) {
	collection, ok := r.routes[t]
	if !ok {
		return "", domain.ErrInvalidEntryType
	}
	return collection, nil
}

// Store persists a new entry: routed by type, upserted with its
// embedding and full metadata payload.
func (r *StorageRouter) Store(ctx context.Context, e *domain.Entry, embedding []float32) (*StoreResult, error) {
	collection, err := r.CollectionFor(e.Metadata.Type)
	if err != nil {
		return nil, err
	}

	version := e.Metadata.Version
	if version < 1 {
		version = 1
	}

	point := vectorstore.Point{
		ID:      r.uuidGen.NewString(),
		Content: e.Content,
		Vector:  embedding,
		Payload: buildPayload(e.Metadata, version, r.now()),
	}

	if err := r.store.Upsert(ctx, collection, point); err != nil {
		return nil, err
	}

	return &StoreResult{PointID: point.ID, Collection: collection, Version: version}, nil
}

// Update resolves a unique_id collision against an existing point
// using the configured strategy. With the versioned strategy the new
// content becomes a fresh point and the prior one is deprecated with
// a superseded_by link; in_place overwrites the existing point.
// Either way the version increments and nothing is silently lost.
func (r *StorageRouter) Update(ctx context.Context, e *domain.Entry, embedding []float32, existing vectorstore.Point) (*StoreResult, error) {
	collection, err := r.CollectionFor(e.Metadata.Type)
	if err != nil {
		return nil, err
	}

	newVersion := payloadVersion(existing.Payload) + 1
	payload := buildPayload(e.Metadata, newVersion, r.now())

	switch r.strategy {
	case config.UpdateStrategyInPlace:
		point := vectorstore.Point{
			ID:      existing.ID,
			Content: e.Content,
			Vector:  embedding,
			Payload: payload,
		}
		if err := r.store.Upsert(ctx, collection, point); err != nil {
			return nil, err
		}
		return &StoreResult{PointID: point.ID, Collection: collection, Version: newVersion}, nil

	case config.UpdateStrategyVersioned:
		point := vectorstore.Point{
			ID:      r.uuidGen.NewString(),
			Content: e.Content,
			Vector:  embedding,
			Payload: payload,
		}
		if err := r.store.Upsert(ctx, collection, point); err != nil {
			return nil, err
		}
		if err := r.store.SetPayloadFields(ctx, collection, existing.ID, map[string]interface{}{
			vectorstore.FieldDeprecated: true,
			"superseded_by":             point.ID,
		}); err != nil {
			return nil, err
		}
		return &StoreResult{
			PointID:    point.ID,
			Collection: collection,
			Version:    newVersion,
			Superseded: existing.ID,
		}, nil

	default:
		return nil, domain.NewConfigurationError("UPDATE_STRATEGY",
			fmt.Sprintf("unknown strategy %q", r.strategy))
	}
}

// Deprecate marks an active point deprecated, optionally linking its
// successor.
func (r *StorageRouter) Deprecate(ctx context.Context, t domain.EntryType, pointID, supersededBy string) error {
	collection, err := r.CollectionFor(t)
	if err != nil {
		return err
	}
	fields := map[string]interface{}{vectorstore.FieldDeprecated: true}
	if supersededBy != "" {
		fields["superseded_by"] = supersededBy
	}
	return r.store.SetPayloadFields(ctx, collection, pointID, fields)
}

func buildPayload(m domain.Metadata, version int, storedAt time.Time) map[string]interface{} {
	payload := make(map[string]interface{}, 12+len(m.Extra))
	for k, v := range m.Extra {
		payload[k] = v
	}

	payload[vectorstore.FieldUniqueID] = m.UniqueID
	payload[vectorstore.FieldContentHash] = m.ContentHash
	payload["type"] = string(m.Type)
	payload["component"] = m.Component
	payload["importance"] = string(m.Importance)
	payload["created_at"] = m.CreatedAt
	payload["stored_at"] = storedAt.UTC().Format(time.RFC3339)
	payload["version"] = version
	payload[vectorstore.FieldDeprecated] = false

	if len(m.Affects) > 0 {
		payload["affects"] = m.Affects
	}
	if len(m.Keywords) > 0 {
		payload["keywords"] = m.Keywords
	}
	if len(m.RelatedIDs) > 0 {
		payload["related_ids"] = m.RelatedIDs
	}
	if m.Confidence > 0 {
		payload["confidence"] = m.Confidence
	}

	return payload
}
