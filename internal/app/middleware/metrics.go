package middleware

import (
	"time"

	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Prometheus 记录每个请求的次数与耗时，路径使用路由模板避免标签基数膨胀
func Prometheus(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		c.Next()

		collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
