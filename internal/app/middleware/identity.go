// internal/app/middleware/identity.go
package middleware

import (
	"log"
	"net/url"

	"github.com/anzhiyu-c/anheyu-docs/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/util"

	"github.com/gin-gonic/gin"
)

// IdentityKey 是请求上下文中保存用户身份的键
const IdentityKey = "docs_identity"

const (
	userIDCookie   = "uid"
	userNameCookie = "uname"
)

// Identity 从 uid/uname cookie 中读取用户，并用客户端地址派生出存储作用域。
// 这里不做任何认证，cookie 缺失时身份字段为空，由下游服务填充默认用户。
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := model.Identity{
			Scope: storage.UserScopeID(util.GetRealClientIP(c)),
		}
		if uid, err := c.Cookie(userIDCookie); err == nil {
			identity.UserID = uid
		}
		if uname, err := c.Cookie(userNameCookie); err == nil {
			// 页面写 cookie 时使用了 encodeURIComponent
			if decoded, decodeErr := url.QueryUnescape(uname); decodeErr == nil {
				uname = decoded
			}
			identity.UserName = util.StripHTML(uname)
		}

		if gin.IsDebugging() {
			log.Printf("[Identity] uid=%q scope=%s", identity.UserID, identity.Scope)
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// GetIdentity 取出 Identity 中间件设置的身份；未经过中间件时按客户端地址现算一个
func GetIdentity(c *gin.Context) model.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if identity, ok := v.(model.Identity); ok {
			return identity
		}
	}
	return model.Identity{Scope: storage.UserScopeID(util.GetRealClientIP(c))}
}
