package middleware

import (
	"context"
	"net/http"
	"strings"

	"community_chat/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextEmailKey    = "email"
)

// SessionStore 单点登录校验：认证服务写入的当前有效 token
type SessionStore interface {
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
}

// AuthMiddleware 校验 Bearer token；sessions 为 nil 时只验签
func AuthMiddleware(secret []byte, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			return
		}
		tokenStr := strings.TrimSpace(parts[1])

		claims, err := pkg.ParseAccess(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			return
		}

		if sessions != nil {
			ctx := c.Request.Context()
			// redis校验是否是当前有效的token
			originToken, err := sessions.GetUserToken(ctx, claims.UserID)
			if err != nil || originToken != tokenStr {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "account has been logged in elsewhere"})
				return
			}
			// 校验通过后更新过期时间
			if err := sessions.ExtendUserToken(ctx, claims.UserID); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
				return
			}
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextEmailKey, claims.Email)
		c.Next()
	}
}

// UserID 取出已认证的调用方 id
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok && id != 0
}
