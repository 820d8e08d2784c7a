package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevicsalazar/appactions-kotlin/internal/auth"
	"github.com/kevicsalazar/appactions-kotlin/internal/deeplink"
	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
	"github.com/kevicsalazar/appactions-kotlin/internal/events"
	"github.com/kevicsalazar/appactions-kotlin/internal/slice"
)

func newTestHandler(t *testing.T, repo *mockRepo, sink ImpressionSink) *Handler {
	t.Helper()

	loop := slice.NewRenderLoop()
	t.Cleanup(loop.Close)
	host := slice.NewHost(repo, loop, slice.NewBroadcaster(), 5, nil)
	return NewHandler(context.Background(), domain.NewService(repo), host, sink)
}

func authedRequest(method, target string, body *strings.Reader, scopes ...string) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}

	scopeSet := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		scopeSet[scope] = struct{}{}
	}
	claims := &auth.Claims{
		Subject:   "tester",
		TenantID:  "tenant-1",
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestBindSliceRendersContent(t *testing.T) {
	started := time.Date(2025, time.November, 3, 7, 30, 0, 0, time.UTC)
	repo := &mockRepo{
		recent: []domain.ActivityRecord{
			{
				ID:             "rec-1",
				TenantID:       "tenant-1",
				UserID:         "user-1",
				Type:           domain.ActivityTypeRun,
				StartedAt:      started,
				DurationMillis: 600000,
				DistanceMeters: 5000,
			},
		},
	}
	sink := &captureSink{}
	handler := newTestHandler(t, repo, sink)

	target := url.QueryEscape(deeplink.SliceURI("user-1", domain.ActivityTypeRun))

	// The fetch is asynchronous: the first bind may render the loading
	// placeholder, later binds deliver content.
	var resp slice.Slice
	deadline := time.Now().Add(2 * time.Second)
	for {
		rr := httptest.NewRecorder()
		handler.bindSlice(rr, authedRequest(http.MethodGet, "/v1/slices?uri="+target, nil, auth.ScopeSlicesRead))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.State == slice.StateContent || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if resp.State != slice.StateContent {
		t.Fatalf("slice never rendered content")
	}
	if resp.Header.Title != "Running" {
		t.Fatalf("unexpected title %q", resp.Header.Title)
	}
	if resp.Aggregate == nil || resp.Aggregate.Activities != "1 Activities" ||
		resp.Aggregate.Duration != "10.00 Minutes" || resp.Aggregate.Distance != "5.00 Km" {
		t.Fatalf("unexpected aggregate %+v", resp.Aggregate)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].Title != "5.00 Km" {
		t.Fatalf("unexpected rows %+v", resp.Rows)
	}

	if sink.count() == 0 {
		t.Fatal("expected at least one impression")
	}
	if first := sink.first(); first.TenantID != "tenant-1" || first.ActivityType != "RUN" {
		t.Fatalf("unexpected impression %+v", first)
	}
}

func TestBindSliceRequiresScope(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{}, nil)

	rr := httptest.NewRecorder()
	handler.bindSlice(rr, authedRequest(http.MethodGet, "/v1/slices?uri=x", nil, auth.ScopeActivitiesRead))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestBindSliceRequiresURI(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{}, nil)

	rr := httptest.NewRecorder()
	handler.bindSlice(rr, authedRequest(http.MethodGet, "/v1/slices", nil, auth.ScopeSlicesRead))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestRecordActivityValidation(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{}, nil)

	body := strings.NewReader(`{"user_id":"user-1","activity_type":"RUN"}`)
	rr := httptest.NewRecorder()
	handler.recordActivity(rr, authedRequest(http.MethodPost, "/v1/activities", body, auth.ScopeActivitiesWrite))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRecordActivityAccepted(t *testing.T) {
	repo := &mockRepo{}
	handler := newTestHandler(t, repo, nil)

	body := strings.NewReader(`{"user_id":"user-1","activity_type":"RUN","started_at":"2025-11-03T07:30:00Z","duration_millis":600000,"distance_meters":5000,"source":"mobile"}`)
	rr := httptest.NewRecorder()
	handler.recordActivity(rr, authedRequest(http.MethodPost, "/v1/activities", body, auth.ScopeActivitiesWrite))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RecordActivityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RecordID == "" || resp.Replay {
		t.Fatalf("unexpected response %+v", resp)
	}

	created := repo.lastCreated()
	if created == nil || created.Type != domain.ActivityTypeRun || created.TenantID != "tenant-1" {
		t.Fatalf("unexpected created record %+v", created)
	}
}

func TestRecordActivityIdempotentReplay(t *testing.T) {
	existing := domain.ActivityRecord{ID: "rec-1", TenantID: "tenant-1", UserID: "user-1", Type: domain.ActivityTypeRun}
	repo := &mockRepo{existing: &existing}
	handler := newTestHandler(t, repo, nil)

	body := strings.NewReader(`{"user_id":"user-1","activity_type":"RUN","started_at":"2025-11-03T07:30:00Z","duration_millis":600000,"distance_meters":5000,"source":"mobile"}`)
	req := authedRequest(http.MethodPost, "/v1/activities", body, auth.ScopeActivitiesWrite)
	req.Header.Set("Idempotency-Key", "key-1")

	rr := httptest.NewRecorder()
	handler.recordActivity(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay got %d", rr.Code)
	}

	var resp RecordActivityResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RecordID != "rec-1" || !resp.Replay {
		t.Fatalf("unexpected replay response %+v", resp)
	}
}

func TestListActivities(t *testing.T) {
	now := time.Date(2025, time.November, 3, 20, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		recent: []domain.ActivityRecord{
			{ID: "rec-1", TenantID: "tenant-1", UserID: "user-1", Type: domain.ActivityTypeRun, StartedAt: now},
			{ID: "rec-2", TenantID: "tenant-1", UserID: "user-1", Type: domain.ActivityTypeWalk, StartedAt: now.Add(-time.Hour)},
		},
	}
	handler := newTestHandler(t, repo, nil)

	rr := httptest.NewRecorder()
	handler.listActivities(rr, authedRequest(http.MethodGet, "/v1/activities?user_id=user-1", nil, auth.ScopeActivitiesRead))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ListActivitiesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(resp.Items))
	}
	if resp.Items[0].RecordID != "rec-1" || resp.Items[0].ActivityType != "RUN" {
		t.Fatalf("unexpected first item %+v", resp.Items[0])
	}
}

func TestListActivitiesRequiresUserID(t *testing.T) {
	handler := newTestHandler(t, &mockRepo{}, nil)

	rr := httptest.NewRecorder()
	handler.listActivities(rr, authedRequest(http.MethodGet, "/v1/activities", nil, auth.ScopeActivitiesRead))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

type mockRepo struct {
	mu       sync.Mutex
	recent   []domain.ActivityRecord
	existing *domain.ActivityRecord
	created  []domain.ActivityRecord
}

func (m *mockRepo) FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.ActivityRecord, error) {
	if idempotencyKey == "" {
		return nil, nil
	}
	return m.existing, nil
}

func (m *mockRepo) Create(ctx context.Context, record domain.ActivityRecord, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, record)
	return nil
}

func (m *mockRepo) FetchRecent(ctx context.Context, tenantID, userID string, count int, filter domain.ActivityType) ([]domain.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ActivityRecord, 0, count)
	for _, record := range m.recent {
		if filter != domain.ActivityTypeUnknown && record.Type != filter {
			continue
		}
		out = append(out, record)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

func (m *mockRepo) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.recent) {
		limit = len(m.recent)
	}
	out := make([]domain.ActivityRecord, limit)
	copy(out, m.recent[:limit])
	return out, nil, nil
}

func (m *mockRepo) lastCreated() *domain.ActivityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.created) == 0 {
		return nil
	}
	record := m.created[len(m.created)-1]
	return &record
}

type captureSink struct {
	mu     sync.Mutex
	viewed []events.SliceViewed
}

func (s *captureSink) EmitAsync(ctx context.Context, viewed events.SliceViewed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewed = append(s.viewed, viewed)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewed)
}

func (s *captureSink) first() events.SliceViewed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewed[0]
}
