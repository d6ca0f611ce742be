package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recallkit/recallkit/internal/api"
	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/service"
)

type InventoryService interface {
	Get(ctx context.Context, uniqueID string) (*domain.InventoryRecord, error)
	Summary(ctx context.Context) (*domain.InventorySummary, error)
	Stale(ctx context.Context) ([]*domain.InventoryRecord, error)
	List(ctx context.Context, input service.ListInput) (*service.ListOutput, error)
}

type InventoryHandler struct {
	svc InventoryService
}

func NewInventoryHandler(svc InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

type InventoryRecordResponse struct {
	UniqueID          string `json:"unique_id"`
	Type              string `json:"type"`
	Component         string `json:"component"`
	Importance        string `json:"importance"`
	ContentHash       string `json:"content_hash"`
	Version           int    `json:"version"`
	Deprecated        bool   `json:"deprecated"`
	SupersededBy      string `json:"superseded_by,omitempty"`
	DeprecationReason string `json:"deprecation_reason,omitempty"`
	CreatedAt         string `json:"created_at"`
	StoredAt          string `json:"stored_at"`
	UpdatedAt         string `json:"updated_at"`
}

func inventoryRecordToResponse(rec *domain.InventoryRecord) *InventoryRecordResponse {
	return &InventoryRecordResponse{
		UniqueID:          rec.UniqueID,
		Type:              string(rec.Type),
		Component:         rec.Component,
		Importance:        string(rec.Importance),
		ContentHash:       rec.ContentHash,
		Version:           rec.Version,
		Deprecated:        rec.Deprecated,
		SupersededBy:      rec.SupersededBy,
		DeprecationReason: rec.DeprecationReason,
		CreatedAt:         rec.CreatedAt,
		StoredAt:          rec.StoredAt.Format(time.RFC3339),
		UpdatedAt:         rec.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uniqueID")
	if uniqueID == "" {
		api.Error(w, http.StatusBadRequest, "unique_id is required")
		return
	}

	rec, err := h.svc.Get(r.Context(), uniqueID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, inventoryRecordToResponse(rec))
}

type InventorySummaryResponse struct {
	Total        int            `json:"total"`
	Active       int            `json:"active"`
	Deprecated   int            `json:"deprecated"`
	ByType       map[string]int `json:"by_type"`
	ByImportance map[string]int `json:"by_importance"`
	ByComponent  map[string]int `json:"by_component"`
}

func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := InventorySummaryResponse{
		Total:        summary.Total,
		Active:       summary.Active,
		Deprecated:   summary.DeprecatedCount,
		ByType:       make(map[string]int, len(summary.ByType)),
		ByImportance: make(map[string]int, len(summary.ByImportance)),
		ByComponent:  summary.ByComponent,
	}
	for k, v := range summary.ByType {
		resp.ByType[string(k)] = v
	}
	for k, v := range summary.ByImportance {
		resp.ByImportance[string(k)] = v
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *InventoryHandler) Stale(w http.ResponseWriter, r *http.Request) {
	stale, err := h.svc.Stale(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*InventoryRecordResponse, len(stale))
	for i, rec := range stale {
		responses[i] = inventoryRecordToResponse(rec)
	}

	api.Success(w, http.StatusOK, responses)
}

type InventoryListResponse struct {
	Items   []*InventoryRecordResponse `json:"items"`
	Cursor  string                     `json:"cursor,omitempty"`
	HasMore bool                       `json:"has_more"`
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListInput{Cursor: cursor, Limit: limit})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*InventoryRecordResponse, len(output.Items))
	for i, rec := range output.Items {
		responses[i] = inventoryRecordToResponse(rec)
	}

	api.Success(w, http.StatusOK, InventoryListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}
