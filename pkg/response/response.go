/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 12:16:18
 * @LastEditTime: 2026-10-13 09:12:40
 * @LastEditors: 安知鱼
 */
package response

import (
	"errors"
	"net/http"

	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"

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
	SuccessWithStatus(c, http.StatusOK, data, message)
}

// SuccessWithStatus 成功响应，但允许自定义 HTTP 状态码，例如 201 Created。
func SuccessWithStatus(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, Response{
		Code:    code,
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

// FailWithError 根据业务错误类型选择状态码。
// 参数类错误原样返回提示，其余错误统一隐藏为 fallback 文案。
func FailWithError(c *gin.Context, err error, fallback string) {
	code := StatusOf(err)
	switch code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized:
		Fail(c, code, fallback+": "+err.Error())
	default:
		Fail(c, code, fallback)
	}
}

// StatusOf 把 constant 中的标准错误映射为 HTTP 状态码。
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, constant.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, constant.ErrBadRequest),
		errors.Is(err, constant.ErrMissingUpdateFields),
		errors.Is(err, constant.ErrInvalidAuthor),
		errors.Is(err, constant.ErrInvalidCommentID),
		errors.Is(err, constant.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, constant.ErrUnauthorized), errors.Is(err, constant.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
