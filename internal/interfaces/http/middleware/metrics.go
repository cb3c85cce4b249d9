package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/interfaces/http/sse"
	"script-studio-api/pkg/metrics"
)

// Metrics 按路由模板记录 HTTP 指标，skip 中的路径（探针、抓取端点）不计入。
// SSE 响应的耗时是整个会话时长，单独打上 stream 路径后缀以免污染普通接口的分布。
func Metrics(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if _, ok := skipped[path]; ok {
			c.Next()
			return
		}
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		start := time.Now()

		if n := c.Request.ContentLength; n > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(n))
		}

		c.Next()

		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), sse.ContentType) {
			path += " (stream)"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(n))
		}
	}
}
