package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), requestid.New(), Logger())
	r.Use(handlers...)
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, body)
	})
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecovery(t *testing.T) {
	w := serve(newEngine(), http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(16, false))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/echo", `{"a":1}`).Code)

	w := serve(r, http.MethodPost, "/echo", `{"a":"this body is far too long"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
	assert.NotContains(t, w.Body.String(), "details")
}

func TestBodySizeLimit_DebugDetails(t *testing.T) {
	r := newEngine(BodySizeLimit(16, true))

	w := serve(r, http.MethodPost, "/echo", `{"a":"this body is far too long"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), `"details":"body exceeds 16 bytes"`)
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(2, time.Minute, 2))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "").Code)

	w := serve(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 1)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	// 令牌補回後再次允許
	rl.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.True(t, rl.Allow("a"))

	// 閒置過久的用戶端會被移除
	rl.now = func() time.Time { return start.Add(time.Hour) }
	rl.Allow("c")
	assert.NotContains(t, rl.limiters, "a")
	assert.NotContains(t, rl.limiters, "b")
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Second)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	r := newEngine(d.Middleware())

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/echo", `{"a":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/echo", `{"a":1}`).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/echo", `{"a":2}`).Code, "different body")
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "").Code, "GET is never deduplicated")

	now = now.Add(2 * time.Second)
	w := serve(r, http.MethodPost, "/echo", `{"a":1}`)
	assert.Equal(t, http.StatusOK, w.Code, "window elapsed")
	assert.JSONEq(t, `{"a":1}`, w.Body.String(), "body is restored for the handler")
}

func TestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
