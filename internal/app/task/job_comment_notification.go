/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-08-12 10:23:55
 * @LastEditTime: 2026-10-13 22:52:31
 * @LastEditors: 安知鱼
 */
// internal/app/task/job_comment_notification.go
package task

import (
	"context"
	"log/slog"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
)

// CommentNotificationJob 负责在评论创建后发送通知邮件。
type CommentNotificationJob struct {
	notifier CommentNotifier
	comment  model.Comment
	logger   *slog.Logger
}

// NewCommentNotificationJob 是任务的构造函数，评论会被复制一份，避免与请求链路共享数据
func NewCommentNotificationJob(notifier CommentNotifier, comment *model.Comment, logger *slog.Logger) *CommentNotificationJob {
	return &CommentNotificationJob{
		notifier: notifier,
		comment:  *comment,
		logger:   logger,
	}
}

// Run 方法执行发送邮件的逻辑。
func (j *CommentNotificationJob) Run() {
	j.logger.Debug("发送新评论通知", "comment_id", j.comment.ID, "post_id", j.comment.PostID)
	j.notifier.NotifyNewComment(context.Background(), &j.comment)
}

// Name 方法返回任务的可读名称。
func (j *CommentNotificationJob) Name() string {
	return "CommentNotificationJob"
}
