package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/pagination"
	"github.com/recallkit/recallkit/internal/service"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InventoryRepository persists the ledger of stored entries.
type InventoryRepository struct {
	db dbtx
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: pool}
}

func NewInventoryRepositoryWithTx(tx pgx.Tx) *InventoryRepository {
	return &InventoryRepository{db: tx}
}

// Upsert inserts a ledger row or refreshes it on unique_id conflict.
// A refresh reactivates a previously deprecated row: the entry came
// back through the pipeline, so the ledger reflects the new version.
func (r *InventoryRepository) Upsert(ctx context.Context, rec *domain.InventoryRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO inventory (unique_id, type, component, importance, content_hash, version, deprecated, created_at, stored_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $9)
		 ON CONFLICT (unique_id) DO UPDATE SET
		   type = EXCLUDED.type,
		   component = EXCLUDED.component,
		   importance = EXCLUDED.importance,
		   content_hash = EXCLUDED.content_hash,
		   version = EXCLUDED.version,
		   deprecated = false,
		   superseded_by = NULL,
		   deprecation_reason = NULL,
		   updated_at = EXCLUDED.updated_at`,
		rec.UniqueID, rec.Type, rec.Component, rec.Importance, rec.ContentHash,
		rec.Version, rec.CreatedAt, rec.StoredAt, rec.UpdatedAt,
	)
	return err
}

func (r *InventoryRepository) GetByUniqueID(ctx context.Context, uniqueID string) (*domain.InventoryRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT unique_id, type, component, importance, content_hash, version, deprecated, superseded_by, deprecation_reason, created_at, stored_at, updated_at
		 FROM inventory WHERE unique_id = $1`,
		uniqueID,
	)
	rec, err := scanInventoryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *InventoryRepository) MarkDeprecated(ctx context.Context, uniqueID, supersededBy, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE inventory
		 SET deprecated = true, superseded_by = NULLIF($2, ''), deprecation_reason = NULLIF($3, ''), updated_at = now()
		 WHERE unique_id = $1`,
		uniqueID, supersededBy, reason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *InventoryRepository) Summary(ctx context.Context) (*domain.InventorySummary, error) {
	summary := &domain.InventorySummary{
		ByType:       make(map[domain.EntryType]int),
		ByImportance: make(map[domain.Importance]int),
		ByComponent:  make(map[string]int),
	}

	err := r.db.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE NOT deprecated), count(*) FILTER (WHERE deprecated)
		 FROM inventory`,
	).Scan(&summary.Total, &summary.Active, &summary.DeprecatedCount)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT type, importance, component, count(*)
		 FROM inventory
		 WHERE NOT deprecated
		 GROUP BY type, importance, component`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entryType, importance, component string
		var count int
		if err := rows.Scan(&entryType, &importance, &component, &count); err != nil {
			return nil, err
		}
		summary.ByType[domain.EntryType(entryType)] += count
		summary.ByImportance[domain.Importance(importance)] += count
		summary.ByComponent[component] += count
	}
	return summary, rows.Err()
}

func (r *InventoryRepository) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.InventoryRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT unique_id, type, component, importance, content_hash, version, deprecated, superseded_by, deprecation_reason, created_at, stored_at, updated_at
		 FROM inventory
		 WHERE NOT deprecated AND updated_at < $1
		 ORDER BY updated_at ASC`,
		olderThan,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInventoryRows(rows)
}

func (r *InventoryRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.InventoryPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT unique_id, type, component, importance, content_hash, version, deprecated, superseded_by, deprecation_reason, created_at, stored_at, updated_at
			 FROM inventory
			 WHERE (updated_at, unique_id) < ($1, $2)
			 ORDER BY updated_at DESC, unique_id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT unique_id, type, component, importance, content_hash, version, deprecated, superseded_by, deprecation_reason, created_at, stored_at, updated_at
			 FROM inventory
			 ORDER BY updated_at DESC, unique_id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanInventoryRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.UniqueID, lastItem.UpdatedAt)
	}

	return &service.InventoryPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanInventoryRow(row pgx.Row) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	var supersededBy, reason *string
	err := row.Scan(
		&rec.UniqueID, &rec.Type, &rec.Component, &rec.Importance, &rec.ContentHash,
		&rec.Version, &rec.Deprecated, &supersededBy, &reason,
		&rec.CreatedAt, &rec.StoredAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if supersededBy != nil {
		rec.SupersededBy = *supersededBy
	}
	if reason != nil {
		rec.DeprecationReason = *reason
	}
	return &rec, nil
}

func scanInventoryRows(rows pgx.Rows) ([]*domain.InventoryRecord, error) {
	var items []*domain.InventoryRecord
	for rows.Next() {
		rec, err := scanInventoryRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
