package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/transcrypt/internal/wallet/application"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
)

const principalKey = "wallet.principal"

// RequireAuth 校验 Bearer 令牌并把调用方写入 gin context
func (h *WalletHandler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			writeError(c, domain.ErrUnauthorized, nil)
			c.Abort()
			return
		}
		principal, err := h.svc.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeError(c, err, nil)
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// CurrentPrincipal RequireAuth 之后的路由中取得调用方
func CurrentPrincipal(c *gin.Context) *application.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*application.Principal); ok {
			return p
		}
	}
	return &application.Principal{}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
