package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/auth"

	"github.com/gin-gonic/gin"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func mustToken(t *testing.T, admin bool) string {
	t.Helper()
	token, err := auth.GenerateToken("tester", admin, time.Hour, []byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func newAuthRouter(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/", handler, func(c *gin.Context) {
		if IsPrivileged(c) {
			c.String(http.StatusOK, "admin")
			return
		}
		c.String(http.StatusOK, "guest")
	})
	return r
}

func TestJWTAuthOptional(t *testing.T) {
	m := NewMiddleware(testSecret)
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "无 Token", header: "", want: "guest"},
		{name: "格式错误", header: "Token abc", want: "guest"},
		{name: "无效 Token", header: "Bearer abc", want: "guest"},
		{name: "非管理员 Token", header: "Bearer " + mustToken(t, false), want: "guest"},
		{name: "管理员 Token", header: "Bearer " + mustToken(t, true), want: "admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter(m.JWTAuthOptional()).ServeHTTP(w, req)
			if w.Code != http.StatusOK || w.Body.String() != tt.want {
				t.Errorf("got %d %q, want 200 %q", w.Code, w.Body.String(), tt.want)
			}
		})
	}
}

func TestAdminAuth(t *testing.T) {
	m := NewMiddleware(testSecret)
	tests := []struct {
		name   string
		header string
		code   int
	}{
		{name: "无 Token", header: "", code: http.StatusUnauthorized},
		{name: "无效 Token", header: "Bearer abc", code: http.StatusUnauthorized},
		{name: "非管理员", header: "Bearer " + mustToken(t, false), code: http.StatusForbidden},
		{name: "管理员", header: "Bearer " + mustToken(t, true), code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter(m.AdminAuth()).ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
		})
	}
}
