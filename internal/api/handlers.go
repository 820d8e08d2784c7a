// Package api exposes HTTP handlers for the slice service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kevicsalazar/appactions-kotlin/internal/auth"
	"github.com/kevicsalazar/appactions-kotlin/internal/deeplink"
	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
	"github.com/kevicsalazar/appactions-kotlin/internal/events"
	"github.com/kevicsalazar/appactions-kotlin/internal/persistence"
	"github.com/kevicsalazar/appactions-kotlin/internal/slice"
)

// ImpressionSink records slice impressions without blocking the bind path.
type ImpressionSink interface {
	EmitAsync(ctx context.Context, viewed events.SliceViewed)
}

// Handler coordinates HTTP requests with the domain service and slice host.
type Handler struct {
	service     *domain.Service
	host        *slice.Host
	impressions ImpressionSink
	// baseCtx outlives individual requests; pinned views keep fetching
	// after the bind that created them returns.
	baseCtx context.Context
}

// NewHandler builds a Handler. impressions may be nil.
func NewHandler(baseCtx context.Context, service *domain.Service, host *slice.Host, impressions ImpressionSink) *Handler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Handler{
		service:     service,
		host:        host,
		impressions: impressions,
		baseCtx:     baseCtx,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/slices", h.bindSlice)
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) bindSlice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSlicesRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope slices:read required")
		return
	}

	rawTarget := r.URL.Query().Get("uri")
	if strings.TrimSpace(rawTarget) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing uri parameter")
		return
	}

	target, err := deeplink.ParseTarget(rawTarget)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid slice uri")
		return
	}

	rendered := h.host.Bind(h.baseCtx, claims.TenantID, target)

	if h.impressions != nil {
		h.impressions.EmitAsync(h.baseCtx, events.SliceViewed{
			SliceURI:     target.Raw,
			TenantID:     claims.TenantID,
			UserID:       target.UserID,
			ActivityType: string(target.Filter),
			State:        string(rendered.State),
			ViewedAt:     time.Now().UTC(),
		})
	}

	writeJSON(w, http.StatusOK, rendered)
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.recordActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:write required")
		return
	}

	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	record, replay, err := h.service.RecordActivity(r.Context(), domain.RecordActivityInput{
		TenantID:       claims.TenantID,
		UserID:         req.UserID,
		Type:           domain.ParseActivityType(req.ActivityType),
		StartedAt:      req.StartedAt,
		DurationMillis: req.DurationMillis,
		DistanceMeters: req.DistanceMeters,
		Source:         req.Source,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	// New data invalidates pending slices for this tenant.
	if !replay {
		h.host.Changes().Broadcast()
	}

	resp := RecordActivityResponse{
		RecordID: record.ID,
		Replay:   replay,
	}

	status := http.StatusAccepted
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeActivitiesRead) && !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope activities:read required")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursorToken := r.URL.Query().Get("cursor")
	cursor, err := persistence.DecodeCursor(cursorToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.ListActivities(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ActivityView, 0, len(records))
	for _, record := range records {
		items = append(items, toActivityView(record))
	}

	resp := ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	}
	writeJSON(w, http.StatusOK, resp)
}

// RecordActivityRequest is the payload for POST /v1/activities.
type RecordActivityRequest struct {
	UserID         string    `json:"user_id"`
	ActivityType   string    `json:"activity_type"`
	StartedAt      time.Time `json:"started_at"`
	DurationMillis int64     `json:"duration_millis"`
	DistanceMeters float64   `json:"distance_meters"`
	Source         string    `json:"source"`
}

// Validate ensures request correctness.
func (r RecordActivityRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if r.StartedAt.IsZero() {
		return errors.New("started_at is required")
	}
	if r.DurationMillis < 0 {
		return errors.New("duration_millis must be >= 0")
	}
	if r.DistanceMeters < 0 {
		return errors.New("distance_meters must be >= 0")
	}
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("source is required")
	}
	return nil
}

// RecordActivityResponse describes the response body for create.
type RecordActivityResponse struct {
	RecordID string `json:"record_id"`
	Replay   bool   `json:"idempotent_replay"`
}

// ActivityView exposes full details about an activity record.
type ActivityView struct {
	RecordID       string    `json:"record_id"`
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	ActivityType   string    `json:"activity_type"`
	StartedAt      time.Time `json:"started_at"`
	DurationMillis int64     `json:"duration_millis"`
	DistanceMeters float64   `json:"distance_meters"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(record domain.ActivityRecord) ActivityView {
	return ActivityView{
		RecordID:       record.ID,
		TenantID:       record.TenantID,
		UserID:         record.UserID,
		ActivityType:   string(record.Type),
		StartedAt:      record.StartedAt,
		DurationMillis: record.DurationMillis,
		DistanceMeters: record.DistanceMeters,
		Source:         record.Source,
		CreatedAt:      record.CreatedAt,
	}
}
