package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Cors 只对 /api/ 下的路由生效；editor 页面和文档服务器可能来自不同的源。
// secretHeader 是文档服务器携带 JWT 的请求头，需要加入允许列表。
func Cors(secretHeader string) gin.HandlerFunc {
	allowHeaders := "Authorization, Content-Type, X-Requested-With, Content-Length, Content-Disposition"
	if secretHeader != "" && !strings.EqualFold(secretHeader, "Authorization") {
		allowHeaders += ", " + secretHeader
	}

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			origin := c.Request.Header.Get("Origin")

			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
			c.Header("Access-Control-Allow-Credentials", "true")

			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}

		c.Next()
	}
}
