package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"` // 单条结果消息
	Errors  []string `json:"errors,omitempty"`  // 校验失败时的全部消息
}

// Success 成功响应（200）
func Success(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: msg,
	})
}

// ValidationFailed 校验失败（400），错误消息原样返回
func ValidationFailed(c *gin.Context, errs []string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Errors:  errs,
	})
}

// BadRequest 请求被拒绝（400）
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, msg)
}

// Unauthorized 未认证错误（401）
func Unauthorized(c *gin.Context, msg string) {
	Error(c, http.StatusUnauthorized, msg)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, msg)
}

// Error 通用错误响应
func Error(c *gin.Context, httpCode int, msg string) {
	c.JSON(httpCode, Response{
		Success: false,
		Message: msg,
	})
}
