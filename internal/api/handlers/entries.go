package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recallkit/recallkit/internal/api"
	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/service"
)

type SubmitService interface {
	Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitOutput, error)
}

type DeprecateService interface {
	Deprecate(ctx context.Context, uniqueID, supersededBy, reason string) (*domain.InventoryRecord, error)
}

type EntriesHandler struct {
	submitter  SubmitService
	deprecator DeprecateService
}

func NewEntriesHandler(submitter SubmitService, deprecator DeprecateService) *EntriesHandler {
	return &EntriesHandler{submitter: submitter, deprecator: deprecator}
}

type SubmitEntryRequest struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Decision string                 `json:"decision,omitempty"`
}

type SubmitEntryResponse struct {
	Status     string             `json:"status"`
	UniqueID   string             `json:"unique_id"`
	PointID    string             `json:"point_id,omitempty"`
	Collection string             `json:"collection,omitempty"`
	Hash       string             `json:"content_hash,omitempty"`
	Version    int                `json:"version,omitempty"`
	MatchID    string             `json:"match_id,omitempty"`
	Score      float64            `json:"score,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

func submitToResponse(out *service.SubmitOutput) *SubmitEntryResponse {
	return &SubmitEntryResponse{
		Status:     string(out.Status),
		UniqueID:   out.UniqueID,
		PointID:    out.PointID,
		Collection: out.Collection,
		Hash:       out.Hash,
		Version:    out.Version,
		MatchID:    out.MatchID,
		Score:      out.Score,
		Violations: out.Violations,
		Warnings:   out.Warnings,
	}
}

// entryFromRequest splits the raw metadata map into the typed core
// fields and the free-form remainder. Unknown keys are preserved, not
// rejected.
func entryFromRequest(req SubmitEntryRequest) domain.Entry {
	meta := domain.Metadata{Extra: map[string]interface{}{}}

	str := func(key string) string {
		v, _ := req.Metadata[key].(string)
		return v
	}
	strs := func(key string) []string {
		raw, ok := req.Metadata[key].([]interface{})
		if !ok {
			return nil
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}

	meta.UniqueID = str("unique_id")
	meta.Type = domain.EntryType(str("type"))
	meta.Component = str("component")
	meta.Importance = domain.Importance(str("importance"))
	meta.CreatedAt = str("created_at")
	meta.Affects = strs("affects")
	meta.Keywords = strs("keywords")
	meta.RelatedIDs = strs("related_ids")
	meta.SupersededBy = str("superseded_by")
	if v, ok := req.Metadata["confidence"].(float64); ok {
		meta.Confidence = v
	}
	if v, ok := req.Metadata["version"].(float64); ok {
		meta.Version = int(v)
	}
	if v, ok := req.Metadata["deprecated"].(bool); ok {
		meta.Deprecated = v
	}

	known := map[string]bool{
		"unique_id": true, "type": true, "component": true, "importance": true,
		"created_at": true, "content_hash": true, "affects": true, "keywords": true,
		"related_ids": true, "superseded_by": true, "confidence": true,
		"version": true, "deprecated": true,
	}
	for k, v := range req.Metadata {
		if !known[k] {
			meta.Extra[k] = v
		}
	}

	return domain.Entry{Content: req.Content, Metadata: meta}
}

func (h *EntriesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.SubmitInput{
		Entry:    entryFromRequest(req),
		Decision: service.NearDuplicateDecision(req.Decision),
	}

	out, err := h.submitter.Submit(r.Context(), input)
	if err != nil {
		if _, ok := domain.AsValidationError(err); ok && out != nil {
			api.JSON(w, http.StatusBadRequest, api.SuccessResponse{Data: submitToResponse(out)})
			return
		}
		api.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	switch out.Status {
	case service.SubmitStatusSkippedExact, service.SubmitStatusSkippedNear, service.SubmitStatusNeedsDecision:
		status = http.StatusOK
	case service.SubmitStatusUpdated:
		status = http.StatusOK
	}

	api.Success(w, status, submitToResponse(out))
}

type DeprecateEntryRequest struct {
	SupersededBy string `json:"superseded_by,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func (h *EntriesHandler) Deprecate(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uniqueID")
	if uniqueID == "" {
		api.Error(w, http.StatusBadRequest, "unique_id is required")
		return
	}

	var req DeprecateEntryRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	rec, err := h.deprecator.Deprecate(r.Context(), uniqueID, req.SupersededBy, req.Reason)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, inventoryRecordToResponse(rec))
}
