package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"freshsense/internal/core/affiliate"
	"freshsense/internal/core/cache"
	"freshsense/internal/core/freshness"
	imagevalidator "freshsense/internal/core/image"
	"freshsense/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct{ analysis *freshness.Analysis }

func (s stubAnalyzer) Analyze(context.Context, string) (*freshness.Analysis, error) {
	copied := *s.analysis
	return &copied, nil
}

type testServer struct {
	router  *gin.Engine
	tracker *affiliate.Tracker
}

func newTestServer(t *testing.T, withFreshness bool) *testServer {
	t.Helper()
	return newTestServerWithDebug(t, withFreshness, true)
}

func newTestServerWithDebug(t *testing.T, withFreshness, debug bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.App.Debug = debug
	cfg.RateLimit.Enabled = false

	linker, err := affiliate.NewLinker(cfg.LinkerConfig())
	require.NoError(t, err)
	tracker := affiliate.NewTracker(affiliate.NewMemorySink(), affiliate.TrackerConfig{Workers: 1, QueueSize: 10})
	t.Cleanup(tracker.Close)
	cacheManager := cache.NewManager(cache.Config{Enabled: true, MaxSize: 10, TTL: time.Minute})
	t.Cleanup(func() { _ = cacheManager.Close() })

	deps := Dependencies{Linker: linker, Tracker: tracker, Cache: cacheManager}
	if withFreshness {
		analysis := freshness.ParseAnalysis(`{"identified_food":"Chicken Breast","food_category":"raw",
			"recipe_suggestions":[{"name":"Grilled Chicken","key_ingredients":["chicken breast","olive oil"]}]}`)
		deps.Freshness = freshness.NewService(imagevalidator.NewValidator(0), imagevalidator.NewProcessor(imagevalidator.DefaultCompressOptions()), cacheManager, stubAnalyzer{analysis}, linker)
	}

	router, err := SetupRouter(cfg, deps)
	require.NoError(t, err)
	return &testServer{router: router, tracker: tracker}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t, false)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}

	var health map[string]interface{}
	decode(t, s.do(t, http.MethodGet, "/health", nil), &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["affiliate_tracking"])
	assert.Contains(t, health, "tracker")
	assert.Contains(t, health, "cache")
}

func TestAffiliateLinkRoute(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/api/v1/affiliate/link", map[string]interface{}{"ingredient": "Fresh Strawberries!"})
	require.Equal(t, http.StatusOK, w.Code)

	var got affiliate.ValidatedLink
	decode(t, w, &got)
	assert.True(t, got.IsValid)
	assert.Equal(t, affiliate.LinkTypeAmazonFresh, got.LinkType)
	assert.Equal(t, "fresh strawberries", got.Ingredient)
	assert.True(t, strings.HasPrefix(got.Link, affiliate.DefaultFreshBaseURL))

	w = s.do(t, http.MethodPost, "/api/v1/affiliate/link", map[string]interface{}{"ingredient": "olive oil", "department": "pantry"})
	decode(t, w, &got)
	assert.Equal(t, affiliate.LinkTypeAmazon, got.LinkType)
	assert.Contains(t, got.Link, "i=pantry")
}

func TestAffiliateCollectionRoutes(t *testing.T) {
	s := newTestServer(t, false)
	ingredients := map[string]interface{}{"ingredients": []string{"kale", "olive oil", "  "}}

	var links struct {
		Links []affiliate.IngredientLink `json:"links"`
	}
	w := s.do(t, http.MethodPost, "/api/v1/affiliate/links", ingredients)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &links)
	assert.Len(t, links.Links, 3)

	var cart struct {
		Link       string                     `json:"link"`
		Validation affiliate.ValidationResult `json:"validation"`
	}
	w = s.do(t, http.MethodPost, "/api/v1/affiliate/cart", ingredients)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &cart)
	assert.True(t, cart.Validation.IsValid)
	assert.Contains(t, cart.Link, "kale%20olive%20oil")

	w = s.do(t, http.MethodPost, "/api/v1/affiliate/cart", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAffiliateProductRoute(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodGet, "/api/v1/affiliate/product/B000123456", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var product struct {
		Link       string                     `json:"link"`
		ASIN       string                     `json:"asin"`
		Validation affiliate.ValidationResult `json:"validation"`
	}
	decode(t, w, &product)
	assert.Equal(t, "B000123456", product.ASIN)
	assert.True(t, strings.HasPrefix(product.Link, affiliate.DefaultProductBaseURL+"/B000123456"))
	assert.True(t, product.Validation.IsValid)

	w = s.do(t, http.MethodGet, "/api/v1/affiliate/product/short", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp map[string]string
	decode(t, w, &errResp)
	assert.Equal(t, "INVALID_ARGUMENT", errResp["code"])
}

func TestAffiliateValidateAndCategorize(t *testing.T) {
	s := newTestServer(t, false)

	var result affiliate.ValidationResult
	w := s.do(t, http.MethodPost, "/api/v1/affiliate/validate", map[string]string{"url": "https://www.amazon.com/s?k=rice"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.False(t, result.IsValid)
	assert.Len(t, result.Issues, 2)

	var cat struct {
		Ingredient string                   `json:"ingredient"`
		Result     affiliate.CategoryResult `json:"result"`
	}
	w = s.do(t, http.MethodGet, "/api/v1/affiliate/categorize?name=Ground+Beef%21", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &cat)
	assert.Equal(t, "ground beef", cat.Ingredient)
	assert.Equal(t, affiliate.CategoryFreshMeat, cat.Result.Category)
}

func TestAffiliateClickAndStats(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/api/v1/affiliate/click", map[string]string{"ingredient": "Kale", "link_type": "amazon-fresh"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/affiliate/click", map[string]string{"ingredient": "Kale", "link_type": "ebay"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Eventually(t, func() bool { return s.tracker.Status().ProcessedCount == 1 }, time.Second, 5*time.Millisecond)

	var stats struct {
		Clicks affiliate.ClickStats `json:"clicks"`
	}
	w = s.do(t, http.MethodGet, "/api/v1/affiliate/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.Clicks.Total)
	assert.Equal(t, int64(1), stats.Clicks.ByIngredient["kale"])
}

func TestAffiliateSelfTestRoute(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodGet, "/api/v1/affiliate/selftest", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var suite affiliate.TestSuite
	decode(t, w, &suite)
	assert.True(t, suite.Passed())
	assert.Positive(t, suite.TotalTests)
}

func TestFreshnessRoute(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, false)
		w := s.do(t, http.MethodPost, "/api/v1/freshness/analyze", map[string]string{"image": "data:image/png;base64,AAAA"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("analyze", func(t *testing.T) {
		s := newTestServer(t, true)

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
		img := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

		w := s.do(t, http.MethodPost, "/api/v1/freshness/analyze", map[string]string{"image": img})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result freshness.Result
		decode(t, w, &result)
		assert.Equal(t, "Chicken Breast", result.Analysis.IdentifiedFood)
		require.NotNil(t, result.Shopping.Primary)
		assert.Equal(t, affiliate.LinkTypeAmazonFresh, result.Shopping.Primary.LinkType)
		require.Len(t, result.Shopping.Recipes, 1)

		// 時間窗內的相同請求會被去重
		w = s.do(t, http.MethodPost, "/api/v1/freshness/analyze", map[string]string{"image": img})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("bad image", func(t *testing.T) {
		s := newTestServer(t, true)
		w := s.do(t, http.MethodPost, "/api/v1/freshness/analyze", map[string]string{"image": "https://example.com/x.png"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestErrorDetailsOnlyInDebugMode(t *testing.T) {
	badClick := map[string]string{"ingredient": "Kale", "link_type": "ebay"}

	for _, debug := range []bool{false, true} {
		s := newTestServerWithDebug(t, false, debug)

		w := s.do(t, http.MethodPost, "/api/v1/affiliate/click", badClick)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]string
		decode(t, w, &resp)
		assert.Equal(t, "INVALID_ARGUMENT", resp["code"])

		w = s.do(t, http.MethodPost, "/api/v1/freshness/analyze", map[string]string{"image": "data:image/png;base64,AAAA"})
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var unavailable map[string]string
		decode(t, w, &unavailable)

		if debug {
			assert.Contains(t, resp["details"], "link_type must be")
			assert.Contains(t, unavailable["details"], "not configured")
		} else {
			assert.NotContains(t, resp, "details")
			assert.NotContains(t, unavailable, "details")
		}
	}
	gin.SetMode(gin.TestMode)
}
