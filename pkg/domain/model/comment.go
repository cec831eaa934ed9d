/*
 * @Description: 评论领域模型
 * @Author: 安知鱼
 * @Date: 2025-08-11 17:58:40
 * @LastEditTime: 2026-10-12 21:14:03
 * @LastEditors: 安知鱼
 */
// pkg/domain/model/comment.go
package model

import "time"

// AboutPostID 是站点级留言（关于页）使用的哨兵文章ID，不参与文章评论数聚合。
const AboutPostID = 0

// State 定义了评论的审核状态。
type State int

const (
	StatePending   State = 0 // 待审核
	StatePublished State = 1 // 已发布
	StateRejected  State = 2 // 已拒绝
)

// IsValid 检查状态值是否在已知范围内。
func (s State) IsValid() bool {
	return s == StatePending || s == StatePublished || s == StateRejected
}

// Comment 是评论的核心领域模型。
type Comment struct {
	ID uint // 存储层分配的自增ID，同时充当创建顺序

	PostID   int   // 所属文章ID，0 表示关于页
	ParentID *uint // 回复的父评论ID

	Author Author

	Content     string // Markdown 原文
	ContentHTML string // 渲染并过滤后的 HTML

	State State
	Likes int

	// --- 创建时补充的来源信息 ---
	IP      string
	Agent   string
	City    string
	Country string
	Range   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Author 代表了评论的作者信息
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Site  string `json:"site,omitempty"`
}

// GeoLocation 是 IP 地理位置查询的结果。
type GeoLocation struct {
	City    string
	Country string
	Range   string
}

// IsPublished 检查评论是否已发布。
func (c *Comment) IsPublished() bool {
	return c.State == StatePublished
}

// IsReply 检查是否为回复评论。
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != 0
}

// CountsTowardArticle 判断评论是否挂在真实文章下（而非关于页）。
func (c *Comment) CountsTowardArticle() bool {
	return c.PostID != AboutPostID
}
