// pkg/util/ip.go
package util

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// forwardedHeaders 按优先级排列的代理头部
// X-Forwarded-For > X-Real-IP > CF-Connecting-IP > EO-Connecting-IP > Ali-CDN-Real-IP > True-Client-IP
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
	"EO-Connecting-IP",
	"Ali-CDN-Real-IP",
	"True-Client-IP",
}

// GetRealClientIP 获取客户端真实IP地址，最后回退到 Gin 内置的 ClientIP（RemoteAddr）。
func GetRealClientIP(c *gin.Context) string {
	for _, header := range forwardedHeaders {
		if ip := firstValidIP(c.GetHeader(header)); ip != "" {
			return ip
		}
	}
	return NormalizeIP(c.ClientIP())
}

// firstValidIP 取逗号分隔列表中的第一个地址（client, proxy1, proxy2），格式不合法时返回空串
func firstValidIP(value string) string {
	if value == "" {
		return ""
	}
	first := NormalizeIP(strings.TrimSpace(strings.Split(value, ",")[0]))
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}

// NormalizeIP 去掉 IPv4 映射地址的 ::ffff: 前缀。
func NormalizeIP(ip string) string {
	return strings.TrimPrefix(ip, "::ffff:")
}

// IsPrivateIP 检查是否为私有或回环地址，这类地址无需做属地查询
func IsPrivateIP(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	return parsedIP.IsPrivate() || parsedIP.IsLoopback()
}
