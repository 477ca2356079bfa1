package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/proxydeck/internal/cache"
	"github.com/MrSnakeDoc/proxydeck/internal/domain"
	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/proxydeck/internal/logger"
	"github.com/MrSnakeDoc/proxydeck/internal/titles"
)

type stubFetcher struct {
	records []domain.RawRecord
}

func (s stubFetcher) Fetch(_ context.Context) ([]domain.RawRecord, error) {
	return s.records, nil
}

func testDeps(t *testing.T, records ...domain.RawRecord) deps.Deps {
	t.Helper()

	c := cache.New(cache.Config{
		PageTitle:       "Services",
		PublicHTTPPort:  80,
		PublicHTTPSPort: 443,
	}, stubFetcher{records: records}, nil, logger.Nop())

	ts := titles.NewStore(filepath.Join(t.TempDir(), "titles.json"))
	if err := ts.Load(); err != nil {
		t.Fatalf("titles Load() error: %v", err)
	}

	return deps.Deps{
		Logger:    logger.Nop(),
		StartTime: time.Now(),
		Version:   "test",
		Cache:     c,
		Titles:    ts,
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(testDeps(t))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestReadyzBeforeAndAfterFirstPoll(t *testing.T) {
	d := testDeps(t)
	h := Readyz(d)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before first poll = %d, want 503", rec.Code)
	}

	if err := d.Cache.ForcePoll(context.Background()); err != nil {
		t.Fatalf("ForcePoll() error: %v", err)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status after first poll = %d, want 200", rec.Code)
	}
}

func TestSnapshotHandler(t *testing.T) {
	d := testDeps(t, domain.RawRecord{
		Kind: domain.KindProxy, ID: 1, Enabled: 1, Domains: []string{"a.example.com"},
	})
	if err := d.Cache.ForcePoll(context.Background()); err != nil {
		t.Fatalf("ForcePoll() error: %v", err)
	}

	rec := httptest.NewRecorder()
	Snapshot(d)(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if snap.Version != "1" {
		t.Errorf("Version = %q, want 1", snap.Version)
	}
	if len(snap.Services) != 1 {
		t.Errorf("len(Services) = %d, want 1", len(snap.Services))
	}
}

func TestServicesHandlerFiltersAndOverrides(t *testing.T) {
	d := testDeps(t,
		domain.RawRecord{Kind: domain.KindProxy, ID: 1, Enabled: 1, Remark: "one"},
		domain.RawRecord{Kind: domain.KindProxy, ID: 2, Enabled: 0, Remark: "two"},
	)
	if err := d.Cache.ForcePoll(context.Background()); err != nil {
		t.Fatalf("ForcePoll() error: %v", err)
	}
	if _, err := d.Titles.Set("1", "Renamed"); err != nil {
		t.Fatalf("titles Set() error: %v", err)
	}

	rec := httptest.NewRecorder()
	Services(d)(rec, httptest.NewRequest(http.MethodGet, "/api/services", nil))

	var body struct {
		Proxies []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"proxies"`
		TitlesVersion uint64 `json:"titles_version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.Proxies) != 1 {
		t.Fatalf("len(Proxies) = %d, want 1 (disabled filtered)", len(body.Proxies))
	}
	if body.Proxies[0].DisplayName != "Renamed" {
		t.Errorf("DisplayName = %q, want Renamed", body.Proxies[0].DisplayName)
	}
	if body.TitlesVersion != 1 {
		t.Errorf("TitlesVersion = %d, want 1", body.TitlesVersion)
	}
}

func TestReloadHandler(t *testing.T) {
	d := testDeps(t)
	h := Reload(d)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("first reload status = %d, want 202", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/reload", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("pending reload status = %d, want 429", rec.Code)
	}
}

func titlesRouter(d deps.Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/titles", TitlesList(d))
	r.Put("/api/titles/{id}", TitlesSet(d))
	r.Delete("/api/titles/{id}", TitlesClear(d))
	return r
}

func TestTitlesEndpoints(t *testing.T) {
	d := testDeps(t)
	r := titlesRouter(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/titles/1",
		strings.NewReader(`{"title":"My Service"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var mut struct {
		Changed bool   `json:"changed"`
		Version uint64 `json:"version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &mut); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !mut.Changed || mut.Version != 1 {
		t.Errorf("mutation = %+v, want changed with version 1", mut)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/titles", nil))
	var list struct {
		Overrides map[string]string `json:"overrides"`
		Version   uint64            `json:"version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if list.Overrides["1"] != "My Service" || list.Version != 1 {
		t.Errorf("list = %+v", list)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/titles/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &mut); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !mut.Changed || mut.Version != 2 {
		t.Errorf("mutation = %+v, want changed with version 2", mut)
	}
}

func TestTitlesSetInvalidBody(t *testing.T) {
	d := testDeps(t)
	r := titlesRouter(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/titles/1",
		strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTitlesClearMissing(t *testing.T) {
	d := testDeps(t)
	r := titlesRouter(d)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/titles/ghost", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var mut struct {
		Changed bool `json:"changed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &mut); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if mut.Changed {
		t.Error("Changed = true for a missing override")
	}
}
