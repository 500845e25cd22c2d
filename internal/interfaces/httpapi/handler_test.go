package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/guiadoapostador/tipster-api/internal/domain/tip"
	"github.com/guiadoapostador/tipster-api/internal/domain/tipster"
	"github.com/guiadoapostador/tipster-api/internal/platform/logging"
	"github.com/guiadoapostador/tipster-api/internal/usecase"
)

type stubProvider struct {
	authors    []tipster.Tipster
	authorsErr error
	feeds      map[int64]usecase.TipFeed
	counts     map[int64]int
	articles   map[int64]int
}

func (s *stubProvider) ListAuthors(context.Context) ([]tipster.Tipster, error) {
	return s.authors, s.authorsErr
}

func (s *stubProvider) GetUser(_ context.Context, id int64) (tipster.Tipster, error) {
	for _, author := range s.authors {
		if author.ID == id {
			return author, nil
		}
	}
	return tipster.Tipster{}, fmt.Errorf("%w: user id=%d", usecase.ErrNotFound, id)
}

func (s *stubProvider) FetchAuthorTips(_ context.Context, authorID int64, _ int, _ time.Time) (usecase.TipFeed, error) {
	return s.feeds[authorID], nil
}

func (s *stubProvider) MineAuthors(context.Context, int) ([]tip.Tip, error) {
	return nil, nil
}

func (s *stubProvider) CountAuthorPosts(_ context.Context, authorID int64) (int, error) {
	return s.counts[authorID], nil
}

func (s *stubProvider) CountAuthorArticles(_ context.Context, authorID int64) (int, error) {
	return s.articles[authorID], nil
}

type fixedIDGenerator struct{}

func (fixedIDGenerator) NewID() (string, error) { return "req-test-1", nil }

func newTestRouter(provider *stubProvider) http.Handler {
	directory := usecase.NewDirectoryService(provider, nil, logging.NewNop())
	ranking := usecase.NewRankingService(provider, directory, logging.NewNop(), 2)
	handler := NewHandler(ranking, directory, slog.Default())
	return NewRouter(handler, fixedIDGenerator{}, slog.Default(), []string{"*"})
}

func settledTips(results []string, odds float64) usecase.TipFeed {
	tips := make([]tip.Tip, 0, len(results))
	for i, result := range results {
		tips = append(tips, tip.New(map[string]any{
			"id":       float64(i + 1),
			"date_gmt": "2026-06-01T10:00:00",
			"meta": map[string]any{
				"resultado": result,
				"odd":       odds,
				"esporte":   "futebol",
			},
		}))
	}
	return usecase.TipFeed{Tips: tips, Total: len(tips)}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestGetRankings_OrdersAndNumbersRows(t *testing.T) {
	provider := &stubProvider{
		authors: []tipster.Tipster{
			{ID: 1, Slug: "alta", Name: "Alta"},
			{ID: 2, Slug: "baixa", Name: "Baixa"},
		},
		feeds: map[int64]usecase.TipFeed{
			1: settledTips([]string{"green", "green", "red"}, 2.5),
			2: settledTips([]string{"green", "red", "red"}, 2.0),
		},
		counts: map[int64]int{1: 3, 2: 3},
	}
	router := newTestRouter(provider)

	req := httptest.NewRequest(http.MethodGet, "/v1/rankings?order=roi&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	items, _ := data["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first, _ := items[0].(map[string]any)
	if pos, _ := first["position"].(float64); pos != 1 {
		t.Fatalf("expected position 1, got %v", first["position"])
	}
	firstTipster, _ := first["tipster"].(map[string]any)
	if firstTipster["slug"] != "alta" {
		t.Fatalf("expected alta first, got %v", firstTipster["slug"])
	}
	if data["order"] != "roi" || data["rosterSource"] != "directory" {
		t.Fatalf("unexpected query echo: %v", data)
	}
}

func TestGetRankings_FiltersBySlugs(t *testing.T) {
	provider := &stubProvider{
		authors: []tipster.Tipster{
			{ID: 1, Slug: "alta", Name: "Alta"},
			{ID: 2, Slug: "baixa", Name: "Baixa"},
		},
		feeds: map[int64]usecase.TipFeed{
			1: settledTips([]string{"green"}, 2.5),
			2: settledTips([]string{"red"}, 2.0),
		},
	}
	router := newTestRouter(provider)

	req := httptest.NewRequest(http.MethodGet, "/v1/rankings?slugs=baixa", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	items, _ := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	only, _ := items[0].(map[string]any)
	onlyTipster, _ := only["tipster"].(map[string]any)
	if onlyTipster["slug"] != "baixa" {
		t.Fatalf("expected baixa, got %v", onlyTipster["slug"])
	}
}

func TestGetRankings_InvalidOrderIsBadRequest(t *testing.T) {
	router := newTestRouter(&stubProvider{
		authors: []tipster.Tipster{{ID: 1, Slug: "alta"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/rankings?order=lucro", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestGetRankings_NonNumericLimitIsBadRequest(t *testing.T) {
	router := newTestRouter(&stubProvider{
		authors: []tipster.Tipster{{ID: 1, Slug: "alta"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/rankings?limit=muitos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestListTipsters(t *testing.T) {
	provider := &stubProvider{
		authors: []tipster.Tipster{
			{ID: 2, Slug: "bravo", Name: "Bravo"},
			{ID: 1, Slug: "alfa", Name: "Alfa"},
		},
	}
	router := newTestRouter(provider)

	req := httptest.NewRequest(http.MethodGet, "/v1/tipsters", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["source"] != "directory" {
		t.Fatalf("expected directory source, got %v", data["source"])
	}
	items, _ := data["tipsters"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 tipsters, got %d", len(items))
	}
	first, _ := items[0].(map[string]any)
	if first["slug"] != "alfa" {
		t.Fatalf("expected slug-sorted roster, got %v first", first["slug"])
	}
}

func TestGetTipsterStats(t *testing.T) {
	provider := &stubProvider{
		authors: []tipster.Tipster{{ID: 7, Slug: "mestre", Name: "Mestre"}},
		feeds: map[int64]usecase.TipFeed{
			7: settledTips([]string{"green", "red"}, 2.0),
		},
		counts:   map[int64]int{7: 42},
		articles: map[int64]int{7: 9},
	}
	router := newTestRouter(provider)

	req := httptest.NewRequest(http.MethodGet, "/v1/tipsters/mestre/stats?last=25", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	overall, _ := data["overall"].(map[string]any)
	if settled, _ := overall["settled"].(float64); settled != 2 {
		t.Fatalf("expected 2 settled tips, got %v", overall["settled"])
	}
	if total, _ := data["totalTips"].(float64); total != 42 {
		t.Fatalf("expected lifetime total 42, got %v", data["totalTips"])
	}
	if articles, _ := data["totalArticles"].(float64); articles != 9 {
		t.Fatalf("expected 9 articles, got %v", data["totalArticles"])
	}
}

func TestGetTipsterStats_UnknownSlugIsNotFound(t *testing.T) {
	router := newTestRouter(&stubProvider{
		authors: []tipster.Tipster{{ID: 1, Slug: "alta"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/tipsters/fantasma/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	errorObj, _ := body["error"].(map[string]any)
	if errorObj["status"] != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND status, got %v", errorObj["status"])
	}
}

func TestRouter_SetsRequestID(t *testing.T) {
	router := newTestRouter(&stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-test-1" {
		t.Fatalf("expected generated request id, got %q", got)
	}
}

func TestRouter_KeepsCallerRequestID(t *testing.T) {
	router := newTestRouter(&stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-55")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "caller-55" {
		t.Fatalf("expected caller request id kept, got %q", got)
	}
}
