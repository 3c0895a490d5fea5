package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func TestRateLimitExceeded(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(1, time.Minute))
	router.GET("/limited", okHandler)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("GET", "/limited", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("GET", "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), common.ErrCodeTooManyRequests)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestBodySizeLimitRejectsOversizedBody(t *testing.T) {
	router := gin.New()
	router.Use(BodySizeLimit(10))
	router.POST("/echo", okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/echo", strings.NewReader(`{"payload":"way too big"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodePayloadTooLarge)
}

func TestBodySizeLimitAllowsSmallBody(t *testing.T) {
	router := gin.New()
	router.Use(BodySizeLimit(1024))
	router.POST("/echo", okHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeduplicationBlocksRapidRepeat(t *testing.T) {
	cfg := &config.Config{DedupWindow: time.Minute}
	router := gin.New()
	router.Use(Deduplication(cfg))
	router.GET("/api/v1/flavor/profile", okHandler)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("GET", "/api/v1/flavor/profile?ingredient=butter", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("GET", "/api/v1/flavor/profile?ingredient=butter", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), common.ErrCodeTooManyRequests)

	// 不同查詢字串是不同指紋
	other := httptest.NewRecorder()
	router.ServeHTTP(other, httptest.NewRequest("GET", "/api/v1/flavor/profile?ingredient=ghee", nil))
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestDeduplicationSeparatesClients(t *testing.T) {
	cfg := &config.Config{DedupWindow: time.Minute}
	router := gin.New()
	router.Use(Deduplication(cfg))
	router.GET("/api/v1/shared", okHandler)

	first := httptest.NewRequest("GET", "/api/v1/shared", nil)
	first.RemoteAddr = "10.0.0.1:1000"
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, first)
	assert.Equal(t, http.StatusOK, w1.Code)

	// 另一個用戶的相同查詢不受影響
	second := httptest.NewRequest("GET", "/api/v1/shared", nil)
	second.RemoteAddr = "10.0.0.2:1000"
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, second)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestDeduplicationExemptsHealthProbes(t *testing.T) {
	cfg := &config.Config{DedupWindow: time.Minute}
	router := gin.New()
	router.Use(Deduplication(cfg))
	router.GET("/health", okHandler)
	router.GET("/ready", okHandler)
	router.GET("/live", okHandler)

	// 探針會在極短間隔內重複打同一端點，兩次都必須成功
	for _, path := range []string{"/health", "/ready", "/live"} {
		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
			assert.Equal(t, http.StatusOK, w.Code, "path %s attempt %d", path, i)
		}
	}
}
