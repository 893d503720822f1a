package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit 默认请求体大小限制，足够容纳 5MB 简历和表单字段
const DefaultBodyLimit = 10 * 1024 * 1024 // 10MB

// MsgBodyTooLarge 请求体超限时的消息
const MsgBodyTooLarge = "La requête est trop volumineuse"

// BodySizeLimit 限制请求体大小的中间件
//
// 声明的 Content-Length 超限时直接返回 413；未声明长度的请求在读取时
// 被截断，处理器通过 IsBodyTooLarge 识别。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": MsgBodyTooLarge,
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Header("X-Max-Body-Size", strconv.FormatInt(maxBytes, 10))

		c.Next()
	}
}

// IsBodyTooLarge 判断错误是否由请求体超限引起
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
