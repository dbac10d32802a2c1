package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestVisitorMiddleware_IssuesCookie(t *testing.T) {
	r := gin.New()
	r.Use(VisitorMiddleware(false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetVisitorID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, security.IsULID(w.Body.String()))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, VisitorCookie, cookies[0].Name)
	assert.Equal(t, w.Body.String(), cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestVisitorMiddleware_KeepsValidCookie(t *testing.T) {
	r := gin.New()
	r.Use(VisitorMiddleware(false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetVisitorID(c)) })

	existing := security.GenerateULID()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: existing})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, existing, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestVisitorMiddleware_ReplacesInvalidCookie(t *testing.T) {
	r := gin.New()
	r.Use(VisitorMiddleware(false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetVisitorID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "<script>"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "<script>", w.Body.String())
	assert.True(t, security.IsULID(w.Body.String()))
}

func TestRequestMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestMiddleware(logging.NewDiscardLogger()))
	r.GET("/", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logging.RequestIDKey).(string)
		c.String(http.StatusOK, id)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, security.IsULID(w.Body.String()))
}

func TestCookieCountryStore(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		store := NewCookieCountryStore(c, time.Hour, true)
		code, ok := store.Load(context.Background())
		if !ok {
			require.NoError(t, store.Save(context.Background(), "ID"))
		}
		c.String(http.StatusOK, code)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "user_country", cookies[0].Name)
	assert.Equal(t, "ID", cookies[0].Value)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "user_country", Value: "SG"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "SG", w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://tarotreadingbymayanov.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://tarotreadingbymayanov.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://tarotreadingbymayanov.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
