package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/utils"
)

const secret = "middleware-secret"

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.SignAuthToken(secret, utils.AuthClaims{UserID: "u-1", Name: "alice", Role: role}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignAuthToken: %v", err)
	}
	return tok
}

func newRouter(m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	r := gin.New()
	r.Use(RequestLogger(log, m))
	auth := r.Group("/", JWTAuth(secret))
	auth.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "name": c.GetString("name"), "role": c.GetString("role")})
	})
	auth.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, target, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter(nil)

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"no token", "/me", "", http.StatusUnauthorized},
		{"garbage", "/me", "Bearer nope", http.StatusUnauthorized},
		{"header", "/me", "Bearer " + token(t, "user"), http.StatusOK},
		{"query", "/me?token=" + token(t, "user"), "", http.StatusOK},
		{"wrong secret", "/me", "Bearer " + mustSign(t, "other-secret"), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(r, tc.target, tc.header); w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func mustSign(t *testing.T, key string) string {
	t.Helper()
	tok, err := utils.SignAuthToken(key, utils.AuthClaims{UserID: "u-1"}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignAuthToken: %v", err)
	}
	return tok
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(nil)

	if w := do(r, "/admin", "Bearer "+token(t, "user")); w.Code != http.StatusForbidden {
		t.Errorf("user: status = %d", w.Code)
	}
	if w := do(r, "/admin", "Bearer "+token(t, "admin")); w.Code != http.StatusNoContent {
		t.Errorf("admin: status = %d", w.Code)
	}
}

func TestRequestLoggerSetsRequestIDAndCounts(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := newRouter(m)

	w := do(r, "/me", "Bearer "+token(t, ""))
	if w.Header().Get("X-Request-Id") == "" {
		t.Errorf("missing X-Request-Id")
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/me", "200")); got != 1 {
		t.Errorf("http requests = %v", got)
	}
}
