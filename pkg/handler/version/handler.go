/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-09-26 09:52:32
 * @LastEditTime: 2026-10-14 23:40:18
 * @LastEditors: 安知鱼
 */
package version

import (
	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-comment/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler 版本信息处理器
type Handler struct{}

// NewHandler 创建版本信息处理器实例
func NewHandler() *Handler {
	return &Handler{}
}

// GetVersion 获取版本信息
// @Summary      获取版本信息
// @Description  获取应用的详细版本信息
// @Tags         辅助工具
// @Produce      json
// @Success      200  {object}  response.Response{data=version.BuildInfo}  "版本信息"
// @Router       /version [get]
func (h *Handler) GetVersion(c *gin.Context) {
	response.Success(c, version.GetBuildInfo(), "获取版本信息成功")
}

// Ping 健康检查
// @Summary      健康检查
// @Tags         辅助工具
// @Produce      json
// @Success      200  {object}  response.Response  "pong"
// @Router       /ping [get]
func (h *Handler) Ping(c *gin.Context) {
	response.Success(c, version.GetVersion(), "pong")
}
