package handler

import (
	"errors"
	"net/http"
	"strconv"

	"community_chat/internal/middleware"
	"community_chat/internal/pkg"

	"github.com/gin-gonic/gin"
)

// writeError 业务错误按分类映射状态码，其余一律 500 且不暴露细节
func writeError(c *gin.Context, log *pkg.Logger, err error) {
	status := http.StatusInternalServerError
	switch pkg.KindOf(err) {
	case pkg.ErrValidation:
		status = http.StatusBadRequest
	case pkg.ErrUnauthorized:
		status = http.StatusUnauthorized
	case pkg.ErrForbidden:
		status = http.StatusForbidden
	case pkg.ErrNotFound:
		status = http.StatusNotFound
	case pkg.ErrConflict:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error("request failed",
			"path", c.FullPath(),
			"request_id", c.GetString(middleware.ContextRequestIDKey),
			"error", err)
		c.AbortWithStatusJSON(status, gin.H{"msg": "internal server error"})
		return
	}
	var appErr *pkg.AppError
	msg := err.Error()
	if errors.As(err, &appErr) {
		msg = appErr.Msg
	}
	c.AbortWithStatusJSON(status, gin.H{"msg": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"msg": msg})
}

func currentUser(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "unauthorized"})
	}
	return userID, ok
}

func pathID(c *gin.Context, name, what string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryInt 缺省返回 0，由 service 层套用默认值
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}
