package wordpress

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{BaseURL: server.URL})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestListAuthors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != restBasePath+"/users" {
			writeJSON(w, http.StatusNotFound, `{"code":"rest_no_route"}`)
			return
		}
		if r.URL.Query().Get("who") != "authors" {
			writeJSON(w, http.StatusBadRequest, `{"code":"bad_query"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[
			{"id": 3, "slug": "maria", "name": "Maria", "avatar_urls": {"24": "https://a/24.png", "96": "https://a/96.png"}},
			{"id": 5, "slug": "joao", "name": "João"},
			{"name": "sem identidade"}
		]`)
	}))

	authors, err := client.ListAuthors(context.Background())
	if err != nil {
		t.Fatalf("ListAuthors: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("expected 2 authors, got %d: %v", len(authors), authors)
	}
	if authors[0].ID != 3 || authors[0].AvatarURL != "https://a/96.png" {
		t.Fatalf("first author = %+v", authors[0])
	}
}

func TestListAuthorsBlockedEndpoint(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"code":"rest_forbidden"}`)
	}))

	if _, err := client.ListAuthors(context.Background()); err == nil {
		t.Fatal("expected an error from a blocked users endpoint")
	}
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != restBasePath+"/users/7" {
			writeJSON(w, http.StatusNotFound, `{"code":"rest_user_invalid_id"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id": 7, "slug": "carla", "name": "Carla", "description": "tenis"}`)
	}))

	user, err := client.GetUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Slug != "carla" || user.Description != "tenis" {
		t.Fatalf("user = %+v", user)
	}

	if _, err := client.GetUser(context.Background(), 0); err == nil {
		t.Fatal("expected validation error for id=0")
	}
}

func TestCountPosts(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") != "1" {
			writeJSON(w, http.StatusBadRequest, `{"code":"bad_query"}`)
			return
		}
		w.Header().Set("X-WP-Total", "137")
		writeJSON(w, http.StatusOK, `[{"id": 1}]`)
	}))

	total, err := client.CountPosts(context.Background(), PostQuery{AuthorID: 3})
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if total != 137 {
		t.Fatalf("total = %d, want 137", total)
	}
}

func TestCountAuthorArticles(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// articles live on the stock posts route, not the tip post type
		if r.URL.Path != restBasePath+"/posts" {
			writeJSON(w, http.StatusNotFound, `{"code":"rest_no_route"}`)
			return
		}
		if r.URL.Query().Get("author") != "3" {
			writeJSON(w, http.StatusBadRequest, `{"code":"bad_query"}`)
			return
		}
		w.Header().Set("X-WP-Total", "24")
		writeJSON(w, http.StatusOK, `[{"id": 1}]`)
	}))

	total, err := client.CountAuthorArticles(context.Background(), 3)
	if err != nil {
		t.Fatalf("CountAuthorArticles: %v", err)
	}
	if total != 24 {
		t.Fatalf("total = %d, want 24", total)
	}

	if _, err := client.CountAuthorArticles(context.Background(), 0); err == nil {
		t.Fatal("expected validation error for id=0")
	}
}

func postRow(id int, date string) string {
	return fmt.Sprintf(`{"id": %d, "date_gmt": %q, "meta": {"resultado": "green", "odd": 2}}`, id, date)
}

func postPage(start, count int, date string) string {
	body := "["
	for i := 0; i < count; i++ {
		if i > 0 {
			body += ","
		}
		body += postRow(start+i, date)
	}
	return body + "]"
}

func TestFetchAuthorTipsStopsAtNeed(t *testing.T) {
	t.Parallel()

	var pagesServed int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pagesServed++
		w.Header().Set("X-WP-Total", "1000")
		w.Header().Set("X-WP-TotalPages", "10")
		writeJSON(w, http.StatusOK, postPage(page*1000, pageSize, "2026-05-01T10:00:00"))
	}))

	feed, err := client.FetchAuthorTips(context.Background(), 3, 150, time.Time{})
	if err != nil {
		t.Fatalf("FetchAuthorTips: %v", err)
	}
	if len(feed.Tips) != 150 {
		t.Fatalf("collected %d tips, want 150", len(feed.Tips))
	}
	if pagesServed != 2 {
		t.Fatalf("served %d pages, want 2", pagesServed)
	}
	if feed.Partial {
		t.Fatal("feed must not be partial")
	}
	if feed.Total != 1000 {
		t.Fatalf("total = %d", feed.Total)
	}
}

func TestFetchAuthorTipsCutoffEarlyStop(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page > 1 {
			t.Error("cutoff must stop the walk on page one")
		}
		body := "[" + postRow(1, "2026-05-01T10:00:00") + "," + postRow(2, "2020-01-01T10:00:00") + "]"
		writeJSON(w, http.StatusOK, body)
	}))

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feed, err := client.FetchAuthorTips(context.Background(), 3, 200, cutoff)
	if err != nil {
		t.Fatalf("FetchAuthorTips: %v", err)
	}
	if len(feed.Tips) != 1 {
		t.Fatalf("collected %d tips, want 1", len(feed.Tips))
	}
}

func TestFetchAuthorTipsPartialOnMidWalkFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page > 1 {
			writeJSON(w, http.StatusBadRequest, `{"code":"rest_post_invalid_page_number"}`)
			return
		}
		w.Header().Set("X-WP-TotalPages", "5")
		writeJSON(w, http.StatusOK, postPage(0, pageSize, "2026-05-01T10:00:00"))
	}))

	feed, err := client.FetchAuthorTips(context.Background(), 3, 300, time.Time{})
	if err != nil {
		t.Fatalf("FetchAuthorTips: %v", err)
	}
	if !feed.Partial {
		t.Fatal("expected a partial feed")
	}
	if len(feed.Tips) != pageSize {
		t.Fatalf("collected %d tips", len(feed.Tips))
	}
}

func TestFetchAuthorTipsFirstPageFailureIsError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"code":"rest_no_route"}`)
	}))

	if _, err := client.FetchAuthorTips(context.Background(), 3, 20, time.Time{}); err == nil {
		t.Fatal("expected an error when the first page fails")
	}
}

func TestMineAuthors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("_embed") != "1" {
			writeJSON(w, http.StatusBadRequest, `{"code":"missing embed"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "_embedded": {"author": [{"id": 3, "slug": "maria", "name": "Maria"}]}},
			{"id": 2, "_embedded": {"author": [{"id": 5, "slug": "joao", "name": "João"}]}}
		]`)
	}))

	posts, err := client.MineAuthors(context.Background(), 50)
	if err != nil {
		t.Fatalf("MineAuthors: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts", len(posts))
	}
	if posts[0].EmbeddedAuthor() == nil {
		t.Fatal("expected an embedded author")
	}
}

func TestClientDefaults(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{BaseURL: "https://example.com/"})
	if client.postType != defaultPostType {
		t.Fatalf("post type = %q", client.postType)
	}
	if client.maxPages != defaultMaxPages {
		t.Fatalf("max pages = %d", client.maxPages)
	}
	if client.baseURL != "https://example.com" {
		t.Fatalf("base url = %q", client.baseURL)
	}
}
