package thrutext

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const (
	testToken   = "tok-abc123"
	testAccount = "77"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}
	return data
}

// newTestClient starts a server for handler and returns a client pointed at it
// with a session already installed.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	client := newAnonymousClient(t, handler, Config{})
	client.SetSession(testToken, testAccount)
	return client
}

func newAnonymousClient(t *testing.T, handler http.Handler, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	if cfg.AccountName == "" {
		cfg.AccountName = "example"
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "US/Eastern"
	}
	client := New(cfg, slog.New(slog.DiscardHandler))
	// Override HTTP client to use test server
	client.http = server.Client()
	t.Cleanup(client.Close)

	return client
}

func respond(status int, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", MediaType)
		w.WriteHeader(status)
		if body != nil {
			w.Write(body)
		}
	}
}

// captured records the last request a handler saw.
type captured struct {
	mu     sync.Mutex
	method string
	path   string
	query  string
	header http.Header
	body   []byte
	count  int
}

func (c *captured) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.method = r.Method
		c.path = r.URL.Path
		c.query = r.URL.RawQuery
		c.header = r.Header.Clone()
		c.body = body
		c.count++
		c.mu.Unlock()
		next(w, r)
	}
}

func (c *captured) json(t *testing.T) map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var doc map[string]any
	if err := json.Unmarshal(c.body, &doc); err != nil {
		t.Fatalf("request body is not json: %v (%s)", err, c.body)
	}
	return doc
}

// attributes returns data.attributes of a captured JSON:API payload.
func (c *captured) attributes(t *testing.T) map[string]any {
	t.Helper()
	data, _ := c.json(t)["data"].(map[string]any)
	attrs, _ := data["attributes"].(map[string]any)
	if attrs == nil {
		t.Fatalf("request has no data.attributes: %s", c.body)
	}
	return attrs
}

// memoryCache is an in-memory Cache for tests.
type memoryCache struct {
	mu   sync.Mutex
	docs map[string][]byte
	puts int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{docs: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[key]
	return data, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = data
	m.puts++
	return nil
}
