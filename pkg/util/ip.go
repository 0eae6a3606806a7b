// pkg/util/ip.go
package util

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIPHeaders 按优先级排列，Cloudflare、腾讯云 EdgeOne、阿里云 CDN 的头部都在其中
var clientIPHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Original-Forwarded-For",
	"CF-Connecting-IP",
	"EO-Connecting-IP",
	"Ali-CDN-Real-IP",
	"True-Client-IP",
	"X-Client-IP",
	"X-Cluster-Client-IP",
}

// GetRealClientIP 获取客户端真实IP地址。
// 多 IP 的头部（client, proxy1, proxy2）取第一个；都没有时回退到 gin 的 ClientIP。
func GetRealClientIP(c *gin.Context) string {
	for _, header := range clientIPHeaders {
		value := c.GetHeader(header)
		if value == "" {
			continue
		}
		first := strings.TrimSpace(strings.Split(value, ",")[0])
		if IsValidIP(first) {
			return first
		}
	}
	return c.ClientIP()
}

// IsValidIP 验证IP地址是否有效
func IsValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
