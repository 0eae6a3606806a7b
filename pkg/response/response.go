/*
 * @Description: 统一的 API 返回结构与错误到状态码的映射
 * @Author: 安知鱼
 * @Date: 2025-06-15 12:16:18
 * @LastEditTime: 2025-10-16 18:02:40
 * @LastEditors: 安知鱼
 */
package response

import (
	"errors"
	"net/http"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"

	"github.com/gin-gonic/gin"
)

// Response 是统一的API返回结构体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Fail 失败响应
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// StatusFromError 把业务错误映射为 HTTP 状态码，未知错误一律为 500
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, constant.ErrValidation),
		errors.Is(err, constant.ErrBadRequest),
		errors.Is(err, constant.ErrConfigBuild):
		return http.StatusBadRequest
	case errors.Is(err, constant.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, constant.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, constant.ErrMissingHistoryData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, constant.ErrRemoteFetch),
		errors.Is(err, constant.ErrConvert):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FailWithError 根据错误类型选择状态码；校验错误会把原因放在 data.reason 中
func FailWithError(c *gin.Context, prefix string, err error) {
	code := StatusFromError(err)
	message := err.Error()
	if prefix != "" {
		message = prefix + ": " + message
	}

	var vErr *constant.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(code, Response{
			Code:    code,
			Message: message,
			Data:    gin.H{"reason": vErr.Reason},
		})
		return
	}
	Fail(c, code, message)
}
