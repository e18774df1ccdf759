package middleware

import (
	"time"

	"fcc-bootstrap/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP请求统计中间件
 * @description
 * - 按路由模板统计请求数量与耗时
 * - 未匹配路由记为 unknown，避免标签基数膨胀
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		services.ObserveRequest(path, c.Writer.Status(), time.Since(start))
	}
}

// LoopbackOnly 拒绝非本机来源的请求
func LoopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.RemoteIP()
		if ip != "127.0.0.1" && ip != "::1" {
			c.AbortWithStatusJSON(403, gin.H{
				"code":    "access.forbidden",
				"message": "Control API is only available from this machine",
			})
			return
		}
		c.Next()
	}
}
