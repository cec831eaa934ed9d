/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-08-11 17:58:48
 * @LastEditTime: 2026-10-12 22:10:52
 * @LastEditors: 安知鱼
 */
// pkg/domain/repository/comment_repo.go
package repository

import (
	"context"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
)

type CreateCommentParams struct {
	PostID      int
	ParentID    *uint
	Author      model.Author
	Content     string
	ContentHTML string
	State       model.State
	Likes       int
	IP          string
	Agent       string
	City        string
	Country     string
	Range       string
}

// UpdateCommentParams 定义了可修改的评论字段，nil 表示不修改。
// PostID 创建后不可变，因此不在此处出现。
type UpdateCommentParams struct {
	State       *model.State
	Author      *model.Author
	Content     *string
	ContentHTML *string
}

// IsEmpty 判断是否没有任何需要更新的字段。
func (p *UpdateCommentParams) IsEmpty() bool {
	return p == nil || (p.State == nil && p.Author == nil && p.Content == nil && p.ContentHTML == nil)
}

// CommentRepository 定义了评论数据的持久化操作接口。
// 查找不到目标记录时，各方法返回 constant.ErrNotFound。
type CommentRepository interface {
	// 分页查询评论列表
	List(ctx context.Context, query *CommentListQuery) (*PageResult[model.Comment], error)

	// 创建一条新评论
	Create(ctx context.Context, params *CreateCommentParams) (*model.Comment, error)

	// 根据数据库ID查找单条评论
	FindByID(ctx context.Context, id uint) (*model.Comment, error)

	// 根据ID删除评论，返回被删除的记录
	DeleteByID(ctx context.Context, id uint) (*model.Comment, error)

	// 根据ID更新评论，返回更新后的记录
	UpdateByID(ctx context.Context, id uint, params *UpdateCommentParams) (*model.Comment, error)

	// 按文章分组统计已发布评论数，没有已发布评论的文章不会出现在结果中
	CountPublishedByPostIDs(ctx context.Context, postIDs []int) (map[int]int, error)
}
