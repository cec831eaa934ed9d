/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-12 16:09:46
 * @LastEditTime: 2026-10-13 22:40:12
 * @LastEditors: 安知鱼
 */
// internal/app/task/jobs.go
package task

import (
	"context"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
)

// Job 与 cron.Job 接口兼容。
// Name 应当是稳定的任务类型名，它会作为指标标签使用，不要拼接 ID 等参数。
type Job interface {
	Run()
	Name() string
}

// CommentCountRecomputer 是评论数重算任务依赖的能力
type CommentCountRecomputer interface {
	Recompute(ctx context.Context, postIDs []int) error
	ReconcileAll(ctx context.Context) error
}

// CommentNotifier 是评论通知任务依赖的能力
type CommentNotifier interface {
	NotifyNewComment(ctx context.Context, comment *model.Comment)
}
