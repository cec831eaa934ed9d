/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-27 12:08:15
 * @LastEditTime: 2026-10-12 22:31:48
 * @LastEditors: 安知鱼
 */
package constant

import "errors"

// 定义业务逻辑相关的标准错误
var (
	// ErrNotFound 表示资源未找到，可以由 Handler 转换为 404
	ErrNotFound = errors.New("资源未找到")

	// ErrInternalServer 表示服务器内部错误，可以由 Handler 转换为 500
	ErrInternalServer = errors.New("内部服务器错误")

	// ErrBadRequest 表示请求参数错误，可以由 Handler 转换为 400
	ErrBadRequest = errors.New("错误的请求")

	// ErrUnauthorized 表示未授权，可以由 Handler 转换为 401
	ErrUnauthorized = errors.New("未经授权的访问")

	// ErrInvalidToken 表示无效的令牌，可以由 Handler 转换为 401
	ErrInvalidToken = errors.New("无效令牌")
)

// 评论相关错误
var (
	// ErrInvalidAuthor 作者字段无法解析或缺少昵称/邮箱
	ErrInvalidAuthor = errors.New("评论作者信息无效")

	// ErrMissingUpdateFields 更新评论时缺少 state 或 post_ids
	ErrMissingUpdateFields = errors.New("参数无效: state 与 post_ids 为必填项")

	// ErrInvalidCommentID 评论公共ID无法解码
	ErrInvalidCommentID = errors.New("无效的评论ID")

	// ErrInvalidState 状态值不在 0/1/2 范围内
	ErrInvalidState = errors.New("无效的评论状态")
)
