/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2026-10-14 23:48:02
 * @LastEditors: 安知鱼
 */
// anheyu-comment/internal/infra/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-comment/internal/app/middleware"
	comment_handler "github.com/anzhiyu-c/anheyu-comment/pkg/handler/comment"
	version_handler "github.com/anzhiyu-c/anheyu-comment/pkg/handler/version"
)

// NoCacheMiddleware 全局反缓存中间件，确保所有API响应都不会被CDN缓存
func NoCacheMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	})
}

// RateLimit 是发表评论的频率限制
type RateLimit struct {
	PerMinute int
	Burst     int
}

// Router 封装了应用的所有路由和其依赖的处理器。
type Router struct {
	commentHandler *comment_handler.Handler
	versionHandler *version_handler.Handler
	mw             *middleware.Middleware
	metricsHandler http.Handler
	rateLimit      RateLimit
}

// NewRouter 是 Router 的构造函数
func NewRouter(
	commentHandler *comment_handler.Handler,
	versionHandler *version_handler.Handler,
	mw *middleware.Middleware,
	metricsHandler http.Handler,
	rateLimit RateLimit,
) *Router {
	return &Router{
		commentHandler: commentHandler,
		versionHandler: versionHandler,
		mw:             mw,
		metricsHandler: metricsHandler,
		rateLimit:      rateLimit,
	}
}

// Setup 将所有路由注册到 Gin 引擎上
func (r *Router) Setup(engine *gin.Engine) {
	if r.metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(r.metricsHandler))
	}

	apiGroup := engine.Group("/api")
	apiGroup.Use(NoCacheMiddleware())

	apiGroup.GET("/ping", r.versionHandler.Ping)
	apiGroup.GET("/version", r.versionHandler.GetVersion)

	r.registerCommentRoutes(apiGroup)
}

func (r *Router) registerCommentRoutes(api *gin.RouterGroup) {
	comments := api.Group("/comments")
	{
		// 访客与管理员共用列表接口，管理员 Token 打开完整视图
		comments.GET("", r.mw.JWTAuthOptional(), r.commentHandler.List)
		comments.POST("", middleware.CommentRateLimit(r.rateLimit.PerMinute, r.rateLimit.Burst), r.commentHandler.Create)

		comments.PUT("/:id", r.mw.AdminAuth(), r.commentHandler.Update)
		comments.DELETE("/:id", r.mw.AdminAuth(), r.commentHandler.Delete)
	}
}
