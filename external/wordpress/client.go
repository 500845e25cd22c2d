package wordpress

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/guiadoapostador/tipster-api/internal/domain/tip"
	"github.com/guiadoapostador/tipster-api/internal/domain/tipster"
	"github.com/guiadoapostador/tipster-api/internal/platform/logging"
	"github.com/guiadoapostador/tipster-api/internal/platform/resilience"
	"github.com/guiadoapostador/tipster-api/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	restBasePath    = "/wp-json/wp/v2"
	defaultPostType = "dicas"
	pageSize        = 100
	defaultMaxPages = 10
)

var errWordPressTransient = crerr.New("wordpress transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	PostType       string
	Timeout        time.Duration
	MaxRetries     int
	MaxPages       int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to a WordPress REST installation. All list endpoints are
// paginated upstream; callers go through PostPager or the author helpers
// instead of issuing raw page loops themselves.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	postType       string
	maxRetries     int
	maxPages       int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	postType := strings.TrimSpace(cfg.PostType)
	if postType == "" {
		postType = defaultPostType
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		postType:       postType,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		maxPages:       maxPages,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// PostType returns the configured custom post type slug.
func (c *Client) PostType() string {
	return c.postType
}

// ListAuthors walks the users listing until a short page or the page ceiling.
// Installations that block the users endpoint surface an error here; callers
// fall back to mining authors out of post embeds.
func (c *Client) ListAuthors(ctx context.Context) ([]tipster.Tipster, error) {
	out := make([]tipster.Tipster, 0, pageSize)
	for page := 1; page <= c.maxPages; page++ {
		query := map[string]string{
			"who":      "authors",
			"per_page": strconv.Itoa(pageSize),
			"page":     strconv.Itoa(page),
			"_fields":  "id,slug,name,description,avatar_urls",
		}

		var users []map[string]any
		if _, _, err := c.doJSON(ctx, "/users", query, &users); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("list authors: %w", err)
			}
			c.logger.WarnContext(ctx, "author listing stopped early", "page", page, "error", err)
			break
		}

		for _, user := range users {
			candidate := tipster.FromUserDoc(user)
			if candidate.Validate() != nil {
				continue
			}
			out = append(out, candidate)
		}
		if len(users) < pageSize {
			break
		}
	}
	return out, nil
}

// GetUser fetches one author record by id.
func (c *Client) GetUser(ctx context.Context, id int64) (tipster.Tipster, error) {
	if id <= 0 {
		return tipster.Tipster{}, fmt.Errorf("%w: user id must be greater than zero", usecase.ErrInvalidInput)
	}

	var user map[string]any
	if _, _, err := c.doJSON(ctx, fmt.Sprintf("/users/%d", id), nil, &user); err != nil {
		return tipster.Tipster{}, fmt.Errorf("fetch user id=%d: %w", id, err)
	}

	candidate := tipster.FromUserDoc(user)
	if err := candidate.Validate(); err != nil {
		return tipster.Tipster{}, fmt.Errorf("fetch user id=%d: %w", id, err)
	}
	return candidate, nil
}

// PostQuery narrows a posts listing. Zero values mean "no filter".
type PostQuery struct {
	AuthorID int64
	Embed    bool
}

// PostPage is one upstream page plus the collection totals WordPress reports
// in response headers.
type PostPage struct {
	Tips       []tip.Tip
	Total      int
	TotalPages int
}

// ListPostsPage fetches a single page of the configured post type, newest
// first.
func (c *Client) ListPostsPage(ctx context.Context, q PostQuery, page int) (PostPage, error) {
	if page <= 0 {
		page = 1
	}

	query := map[string]string{
		"per_page": strconv.Itoa(pageSize),
		"page":     strconv.Itoa(page),
		"orderby":  "date",
		"order":    "desc",
	}
	if q.AuthorID > 0 {
		query["author"] = strconv.FormatInt(q.AuthorID, 10)
	}
	if q.Embed {
		query["_embed"] = "1"
	}

	var rows []map[string]any
	_, header, err := c.doJSON(ctx, "/"+c.postType, query, &rows)
	if err != nil {
		return PostPage{}, fmt.Errorf("list posts page=%d: %w", page, err)
	}

	out := PostPage{
		Tips:       make([]tip.Tip, 0, len(rows)),
		Total:      headerInt(header, "X-WP-Total"),
		TotalPages: headerInt(header, "X-WP-TotalPages"),
	}
	for _, row := range rows {
		out.Tips = append(out.Tips, tip.New(row))
	}
	return out, nil
}

// CountPosts reads the collection total out of headers with a minimal page.
func (c *Client) CountPosts(ctx context.Context, q PostQuery) (int, error) {
	query := map[string]string{
		"per_page": "1",
	}
	if q.AuthorID > 0 {
		query["author"] = strconv.FormatInt(q.AuthorID, 10)
	}

	var rows []map[string]any
	_, header, err := c.doJSON(ctx, "/"+c.postType, query, &rows)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	total := headerInt(header, "X-WP-Total")
	if total <= 0 {
		total = len(rows)
	}
	return total, nil
}

// CountAuthorPosts is the lifetime tip count of one author, header-derived.
func (c *Client) CountAuthorPosts(ctx context.Context, authorID int64) (int, error) {
	if authorID <= 0 {
		return 0, fmt.Errorf("%w: author id must be greater than zero", usecase.ErrInvalidInput)
	}
	return c.CountPosts(ctx, PostQuery{AuthorID: authorID})
}

// CountAuthorArticles is the author's count on the regular posts collection,
// separate from the tip post type.
func (c *Client) CountAuthorArticles(ctx context.Context, authorID int64) (int, error) {
	if authorID <= 0 {
		return 0, fmt.Errorf("%w: author id must be greater than zero", usecase.ErrInvalidInput)
	}

	query := map[string]string{
		"per_page": "1",
		"author":   strconv.FormatInt(authorID, 10),
	}
	var rows []map[string]any
	_, header, err := c.doJSON(ctx, "/posts", query, &rows)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	total := headerInt(header, "X-WP-Total")
	if total <= 0 {
		total = len(rows)
	}
	return total, nil
}

type responseEnvelope struct {
	body   []byte
	header http.Header
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, http.Header, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "wordpress circuit breaker rejected request", "state", c.breaker.State())
			return nil, nil, fmt.Errorf("%w: content provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + restBasePath + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		envelope, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isWordPressCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return envelope, reqErr
	})
	if err != nil {
		return nil, nil, err
	}

	envelope, ok := out.(responseEnvelope)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(envelope.body, target); err != nil {
		return nil, nil, fmt.Errorf("decode provider payload: %w", err)
	}

	return envelope.body, envelope.header, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) (responseEnvelope, error) {
	c.logger.DebugContext(ctx, "wordpress request", "curl_preview", buildCurlPreview(fullURL))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return responseEnvelope{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errWordPressTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			header := resp.Header.Clone()
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errWordPressTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return responseEnvelope{body: raw, header: header}, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errWordPressTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return responseEnvelope{}, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return responseEnvelope{}, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "wordpress request failed", "url", fullURL, "error", lastErr)
	return responseEnvelope{}, lastErr
}

func buildCurlPreview(fullURL string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -X GET ")
	_, _ = buf.WriteString(shellQuote(fullURL))
	_, _ = buf.WriteString(" -H 'accept: application/json'")
	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func headerInt(header http.Header, key string) int {
	if header == nil {
		return 0
	}
	value, err := strconv.Atoi(strings.TrimSpace(header.Get(key)))
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func isWordPressCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errWordPressTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
