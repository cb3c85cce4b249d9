package dto

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/domain/repository"
)

// ClientIDHeader 客户端标识头，偏好与限流都以它为键
const ClientIDHeader = "X-Client-ID"

// BindPage 读取 page 与 page_size，无法解析时按缺省处理
func BindPage(c *gin.Context) repository.Pagination {
	return repository.NewPagination(queryInt(c, "page"), queryInt(c, "page_size"))
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

// ClientID 依次从请求头、查询参数读取客户端标识
func ClientID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(ClientIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("client_id"))
}

func BindSessionID(c *gin.Context) string { return c.Param("sid") }

func BindTemplateID(c *gin.Context) string { return c.Param("tid") }
