package planlogs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/chargeflex/core/model"
	"github.com/kilianp07/chargeflex/core/planlog"
)

type memStore struct {
	recs []planlog.LogRecord
	err  error
}

func (m *memStore) Append(_ context.Context, r planlog.LogRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q planlog.LogQuery) ([]planlog.LogRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var res []planlog.LogRecord
	for _, r := range m.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestLogHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	for i, u := range []string{"alice", "bob", "alice"} {
		_ = store.Append(context.Background(), planlog.LogRecord{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Action:    planlog.ActionCommitted,
			UserID:    u,
			Plan:      model.ChargingPlan{UserID: u},
		})
	}
	h := NewLogHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/plans/logs?user_id=alice&end=2024-06-03T10:30:00Z", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []planlog.LogRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].UserID != "alice" {
		t.Fatalf("expected 1 record, got %+v", out)
	}

	req = httptest.NewRequest("GET", "/api/plans/logs", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestLogHandler_NoTokenEmptyAndErrors(t *testing.T) {
	store := &memStore{}
	h := NewLogHandler(store, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/plans/logs", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "[]\n" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/plans/logs?start=yesterday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}

	store.err = errors.New("disk full")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/plans/logs", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/plans/logs", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}
