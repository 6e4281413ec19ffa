// Package wordpress publishes articles through the WordPress REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/valpere/sheetpub/internal/textutil"
)

// Authentication methods.
const (
	AuthApplicationPassword = "application_password"
	AuthJWT                 = "jwt"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultPostStatus = "publish"
	maxExcerptLength  = 300
)

// Config captures the site and credentials.
type Config struct {
	BaseURL           string  `mapstructure:"base_url"`
	User              string  `mapstructure:"user"`
	Password          string  `mapstructure:"password"`
	JWTToken          string  `mapstructure:"jwt_token"`
	AuthMethod        string  `mapstructure:"auth_method"`
	PostStatus        string  `mapstructure:"post_status"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// CategoryStore persists resolved category ids between runs.
type CategoryStore interface {
	Category(ctx context.Context, name string) (int64, bool, error)
	SaveCategory(ctx context.Context, name string, id int64) error
}

// Post is the content to publish.
type Post struct {
	Title           string
	Content         string
	MetaDescription string
	Category        string
	Slug            string
}

// Published is the subset of the created post the pipeline needs.
type Published struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Link string `json:"link"`
}

// PostID renders the id for the sheet, "" when WordPress returned none.
func (p *Published) PostID() string {
	if p == nil || p.ID == 0 {
		return ""
	}
	return strconv.FormatInt(p.ID, 10)
}

// StatusError is returned for any response with status 400 or above.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wordpress %s: http %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to a single WordPress site.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	store   CategoryStore

	mu         sync.Mutex
	categories map[string]int64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCategoryStore attaches a persistent category cache.
func WithCategoryStore(s CategoryStore) Option {
	return func(c *Client) {
		c.store = s
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("wordpress: base url required")
	}
	cfg.AuthMethod = strings.ToLower(strings.TrimSpace(cfg.AuthMethod))
	switch cfg.AuthMethod {
	case AuthJWT:
		if cfg.JWTToken == "" {
			return nil, errors.New("wordpress: jwt token required for jwt auth")
		}
	default:
		cfg.AuthMethod = AuthApplicationPassword
		if cfg.User == "" || cfg.Password == "" {
			return nil, errors.New("wordpress: user and password required for basic auth")
		}
	}
	if cfg.PostStatus == "" {
		cfg.PostStatus = defaultPostStatus
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		cfg:        cfg,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     zap.NewNop(),
		categories: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized site URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// PublishPost creates a post and returns its id, slug and link.
func (c *Client) PublishPost(ctx context.Context, p Post) (*Published, error) {
	payload := map[string]any{
		"title":   p.Title,
		"content": p.Content,
		"status":  c.cfg.PostStatus,
	}
	if p.MetaDescription != "" {
		payload["excerpt"] = textutil.Truncate(p.MetaDescription, maxExcerptLength)
	}
	if slug := strings.TrimSpace(p.Slug); slug != "" {
		payload["slug"] = slug
	}
	if strings.TrimSpace(p.Category) != "" {
		if id := c.EnsureCategory(ctx, p.Category); id != 0 {
			payload["categories"] = []int64{id}
		}
	}

	var out Published
	if err := c.do(ctx, "publish post", http.MethodPost, "/wp-json/wp/v2/posts", nil, payload, &out); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			c.logger.Error("wordpress publish failed",
				zap.Int("status", statusErr.StatusCode),
				zap.String("body", statusErr.Body))
		}
		return nil, err
	}
	c.logger.Info("post published", zap.Int64("post_id", out.ID), zap.String("slug", out.Slug))
	return &out, nil
}

// EnsureCategory resolves name to a category id, creating the category when
// it does not exist. Failures are logged and yield 0.
func (c *Client) EnsureCategory(ctx context.Context, name string) int64 {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0
	}

	c.mu.Lock()
	id, ok := c.categories[key]
	c.mu.Unlock()
	if ok {
		return id
	}

	if c.store != nil {
		if id, ok, err := c.store.Category(ctx, key); err != nil {
			c.logger.Warn("category cache lookup failed", zap.String("category", key), zap.Error(err))
		} else if ok {
			c.remember(ctx, key, id, false)
			return id
		}
	}

	id, err := c.findCategory(ctx, key)
	if err != nil {
		c.logger.Error("category search failed", zap.String("category", key), zap.Error(err))
	}
	if id == 0 {
		id, err = c.createCategory(ctx, name)
		if err != nil {
			c.logger.Error("category create failed", zap.String("category", name), zap.Error(err))
			return 0
		}
	}
	if id != 0 {
		c.remember(ctx, key, id, true)
	}
	return id
}

func (c *Client) remember(ctx context.Context, key string, id int64, persist bool) {
	c.mu.Lock()
	c.categories[key] = id
	c.mu.Unlock()
	if persist && c.store != nil {
		if err := c.store.SaveCategory(ctx, key, id); err != nil {
			c.logger.Warn("category cache save failed", zap.String("category", key), zap.Error(err))
		}
	}
}

func (c *Client) findCategory(ctx context.Context, name string) (int64, error) {
	query := url.Values{"search": {name}, "per_page": {"1"}}
	var items []struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, "find category", http.MethodGet, "/wp-json/wp/v2/categories", query, nil, &items); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	return items[0].ID, nil
}

func (c *Client) createCategory(ctx context.Context, name string) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	payload := map[string]string{"name": strings.TrimSpace(name)}
	if err := c.do(ctx, "create category", http.MethodPost, "/wp-json/wp/v2/categories", nil, payload, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// Ping checks that the REST API root answers with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/wp-json/", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wordpress %s: %w", op, err)
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("wordpress %s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("wordpress %s: new request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("wordpress %s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("wordpress %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.AuthMethod == AuthJWT {
		req.Header.Set("Authorization", "Bearer "+c.cfg.JWTToken)
		return
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)
}
