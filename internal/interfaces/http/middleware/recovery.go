package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/interfaces/http/dto"
	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/logger"
)

// Recovery Panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", r),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				// SSE 已经开始输出时无法再写错误体
				if c.Writer.Written() {
					c.Abort()
					return
				}
				dto.ErrorWithDetail(c, http.StatusInternalServerError, "internal server error",
					&dto.ErrorDetail{ErrorCode: string(apperrors.CodeInternalError)})
			}
		}()

		c.Next()
	}
}
