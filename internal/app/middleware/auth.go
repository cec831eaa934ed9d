// internal/app/middleware/auth.go
package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-comment/pkg/response"

	"github.com/gin-gonic/gin"
)

// PrivilegedKey 是 gin.Context 中标记管理员调用方的键
const PrivilegedKey = "privileged"

type Middleware struct {
	secret []byte
}

func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: []byte(secret)}
}

// bearerToken 从 Authorization 头中取出 Bearer Token
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *Middleware) setClaims(c *gin.Context, claims *auth.CustomClaims) {
	c.Set(auth.ClaimsKey, claims)
	c.Set(PrivilegedKey, claims.Admin)
}

// JWTAuthOptional 是一个可选的JWT认证中间件。
// 没有 Token 或 Token 无效时按游客处理，只有合法的管理员 Token 才会打开管理员视图。
func (m *Middleware) JWTAuthOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := auth.ParseToken(tokenString, m.secret)
		if err != nil {
			log.Printf("[JWTAuthOptional] Token解析失败，按游客处理: %v", err)
			c.Next()
			return
		}

		m.setClaims(c, claims)
		c.Next()
	}
}

// AdminAuth 是强制性的管理员权限验证中间件
func (m *Middleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, "请求未携带Token，无权限访问")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(tokenString, m.secret)
		if err != nil {
			log.Printf("[AdminAuth] JWT token解析失败: %v", err)
			response.Fail(c, http.StatusUnauthorized, "无效或过期的Token")
			c.Abort()
			return
		}

		if !claims.Admin {
			log.Printf("[AdminAuth] 权限不足: subject=%s", claims.Subject)
			response.Fail(c, http.StatusForbidden, "权限不足：此操作需要管理员权限")
			c.Abort()
			return
		}

		m.setClaims(c, claims)
		c.Next()
	}
}

// IsPrivileged 判断当前请求是否来自管理员
func IsPrivileged(c *gin.Context) bool {
	return c.GetBool(PrivilegedKey)
}
