package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"confidential_casino/internal/service"
	"confidential_casino/internal/solana"
	"confidential_casino/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterWindow(t *testing.T) {
	l := newMemoryLimiter(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	require.EqualValues(t, 1, l.incr("a"))
	require.EqualValues(t, 2, l.incr("a"))
	require.EqualValues(t, 1, l.incr("b"))

	now = now.Add(61 * time.Second)
	require.EqualValues(t, 1, l.incr("a"))
}

func TestRedisRateLimitFallsBackToMemory(t *testing.T) {
	InitRedisRateLimiter(nil)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/test", RedisRateLimit(2, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	require.Equal(t, http.StatusOK, doGet(t, srv, "/test"))
	require.Equal(t, http.StatusOK, doGet(t, srv, "/test"))
	require.Equal(t, http.StatusTooManyRequests, doGet(t, srv, "/test"))
}

func TestJWTAndWagerRateLimit(t *testing.T) {
	InitRedisRateLimiter(nil)
	service.InitJWT("mw-secret", time.Hour)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/wagers", JWT(), WagerRateLimit(1, time.Minute), func(c *gin.Context) {
		p, ok := Player(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"player": p.String()})
	})

	alice, err := wallet.GenerateKeypair()
	require.NoError(t, err)
	bob, err := wallet.GenerateKeypair()
	require.NoError(t, err)

	send := func(player *solana.PublicKey) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/wagers", nil)
		if player != nil {
			token, err := service.GenerateJWT(*player)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusUnauthorized, send(nil).Code)

	a, b := alice.PublicKey(), bob.PublicKey()
	w := send(&a)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), a.String())

	// limit is per player
	require.Equal(t, http.StatusTooManyRequests, send(&a).Code)
	require.Equal(t, http.StatusOK, send(&b).Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, w.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}
