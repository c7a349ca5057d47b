package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/middlewares"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

type MockDBService struct {
	health  map[string]string
	indexed [][2]string
	failOn  string
}

func (m *MockDBService) Health() map[string]string { return m.health }
func (m *MockDBService) Client() *mongo.Client { return nil }
func (m *MockDBService) Collection(string) *mongo.Collection { return nil }
func (m *MockDBService) Close() error { return nil }

func (m *MockDBService) EnsureIndexes(_ context.Context, tags, taggings string) error {
	if tags == m.failOn {
		return errors.New("index build failed")
	}
	m.indexed = append(m.indexed, [2]string{tags, taggings})
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		RateLimit:        100,
		RateBurst:        100,
		AllowedOrigins:   []string{"http://localhost:3000"},
		TaggableContexts: map[string]string{"Article": "tags|skills", "User": "languages"},
		Tagging:          *config.DefaultTagging(),
	}
}

func newTestServer(db *MockDBService) *Server {
	cfg := testConfig()
	return &Server{
		cfg:      cfg,
		db:       db,
		registry: NewRegistry(cfg),
		limiter:  middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		metrics:  middlewares.NewPrometheusMiddleware(),
	}
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(testConfig())

	article, ok := registry.Lookup("Article")
	require.True(t, ok)
	assert.Equal(t, []string{"tags", "skills"}, article.Contexts())

	user, ok := registry.Lookup("User")
	require.True(t, ok)
	assert.Equal(t, []string{"languages"}, user.Contexts())
}

func TestEnsureIndexes(t *testing.T) {
	db := &MockDBService{}
	s := newTestServer(db)
	s.registry.Register("Video").Taggable(tagtype.Options{TagsCollection: "video_tags", TaggingsCollection: "video_taggings"}, "topics")

	require.NoError(t, ensureIndexes(context.Background(), db, s.registry))
	assert.ElementsMatch(t, [][2]string{{"tags", "taggings"}, {"video_tags", "video_taggings"}}, db.indexed)

	db = &MockDBService{failOn: "video_tags"}
	assert.Error(t, ensureIndexes(context.Background(), db, s.registry))
}

func TestHelloWorldHandler(t *testing.T) {
	handler := newTestServer(&MockDBService{}).RegisterRoutes()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Hello World", body["message"])
}

func TestHealthHandler(t *testing.T) {
	up := newTestServer(&MockDBService{health: map[string]string{"message": "It's healthy"}}).RegisterRoutes()
	rr := httptest.NewRecorder()
	up.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	down := newTestServer(&MockDBService{health: map[string]string{"message": "db down", "error": "timeout"}}).RegisterRoutes()
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRoutes(t *testing.T) {
	handler := newTestServer(&MockDBService{}).RegisterRoutes()

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/Comment/tags/tags", http.StatusNotFound},
		{http.MethodGet, "/api/Article/tags/colors", http.StatusNotFound},
		{http.MethodGet, "/api/Article/not-an-id/tags/tags", http.StatusBadRequest},
		{http.MethodDelete, "/api/Article/not-an-id/tags", http.StatusBadRequest},
		{http.MethodGet, "/api/Article/tagged?tag=a&mode=any", http.StatusBadRequest},
		{http.MethodPost, "/api/Article/tags/tags", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, rr.Code, "%s %s", tc.method, tc.path)
	}
}

func TestPreflight(t *testing.T) {
	handler := newTestServer(&MockDBService{}).RegisterRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/api/Article/tagged", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	handler := newTestServer(&MockDBService{}).RegisterRoutes()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}
