package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"relentless-frontier/internal/frontier"
	"relentless-frontier/internal/models"
	"relentless-frontier/internal/store"
	"relentless-frontier/mocks"
)

func newTestServer(t *testing.T) (*server, *mocks.MockFrontier) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := mocks.NewMockFrontier(ctrl)
	return newServer(f, zap.NewNop()), f
}

func TestPrepareNeverForcesReset(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().Initialize(gomock.Any(), false).Return(nil)

	if err := srv.prepare(context.Background()); err != nil {
		t.Fatalf("prepare returned error: %v", err)
	}
}

func TestPreparePropagatesError(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().Initialize(gomock.Any(), false).Return(store.ErrNotConnected)

	if err := srv.prepare(context.Background()); !errors.Is(err, store.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestHandleCreateEntry(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().AddEntry(gomock.Any(), "https://a.com").Return(models.DomainEntry{
		ID:        1,
		Key:       "NODE_ENTRY:1",
		URL:       "https://a.com",
		CreatedAt: 1700000000,
		Status:    models.StatusUnassigned,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/entries?url=https://a.com", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	var payload models.DomainEntry
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Key != "NODE_ENTRY:1" || payload.Status != models.StatusUnassigned {
		t.Fatalf("unexpected entry: %+v", payload)
	}
}

func TestHandleCreateEntryMissingURL(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().AddEntry(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/entries", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleCreateEntryInvalidURL(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().AddEntry(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodPost, "/entries?url=ftp://a.com", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleCreateEntryMethodNotAllowed(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().AddEntry(gomock.Any(), gomock.Any()).Times(0)

	req := httptest.NewRequest(http.MethodGet, "/entries?url=https://a.com", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestHandleCreateEntryStoreDown(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().AddEntry(gomock.Any(), "https://a.com").
		Return(models.DomainEntry{}, &store.OperationError{Op: "incr", Key: frontier.KeyEntryCounter, Err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodPost, "/entries?url=https://a.com", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
}

func TestHandleGetEntry(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().Get(gomock.Any(), "NODE_ENTRY:7").Return(models.DomainEntry{
		ID:             7,
		Key:            "NODE_ENTRY:7",
		URL:            "https://b.com",
		Status:         models.StatusAssigned,
		AssignedWorker: "w1",
	}, true, nil)

	req := httptest.NewRequest(http.MethodGet, "/entries/NODE_ENTRY:7", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var payload models.DomainEntry
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.AssignedWorker != "w1" {
		t.Fatalf("unexpected assigned worker: %s", payload.AssignedWorker)
	}
}

func TestHandleGetEntryNotFound(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().Get(gomock.Any(), "99").Return(models.DomainEntry{}, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/entries/99", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleGetEntryBadKey(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().Get(gomock.Any(), "abc").
		Return(models.DomainEntry{}, false, fmt.Errorf("%w %q", frontier.ErrInvalidKey, "abc"))

	req := httptest.NewRequest(http.MethodGet, "/entries/abc", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().Stats(gomock.Any()).Return(frontier.Stats{LastID: 3, Unassigned: 1, Assigned: 2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var payload frontier.Stats
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.LastID != 3 || payload.Unassigned != 1 || payload.Assigned != 2 {
		t.Fatalf("unexpected stats: %+v", payload)
	}
}

func TestHandleStatsNotConnected(t *testing.T) {
	srv, f := newTestServer(t)
	f.EXPECT().Stats(gomock.Any()).Return(frontier.Stats{}, store.ErrNotConnected)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.routes(prometheus.NewRegistry()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
}

func TestRoutesServeMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	reg := prometheus.NewRegistry()
	up := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_up", Help: "test"})
	up.Set(1)
	reg.MustRegister(up)

	ts := httptest.NewServer(srv.routes(reg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	if !strings.Contains(string(body), "test_up 1") {
		t.Fatalf("metrics output missing gauge: %s", body)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{frontier.ErrInvalidURL, http.StatusBadRequest},
		{store.ErrNotConnected, http.StatusBadGateway},
		{&store.OperationError{Op: "hgetall", Err: errors.New("x")}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
