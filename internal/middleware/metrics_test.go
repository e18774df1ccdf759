package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLoopbackOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoopbackOnly(), MetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:50000", 200},
		{"[::1]:50000", 200},
		{"192.0.2.10:50000", 403},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = tt.remote
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("remote %s: status %d, want %d", tt.remote, w.Code, tt.want)
		}
	}
}
