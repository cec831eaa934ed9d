// internal/app/task/job_comment_count.go
package task

import (
	"context"
	"log/slog"
)

// CommentCountRecomputeJob 在评论变更后重算受影响文章的评论数。
type CommentCountRecomputeJob struct {
	recomputer CommentCountRecomputer
	postIDs    []int
	logger     *slog.Logger
}

func NewCommentCountRecomputeJob(recomputer CommentCountRecomputer, postIDs []int, logger *slog.Logger) *CommentCountRecomputeJob {
	return &CommentCountRecomputeJob{
		recomputer: recomputer,
		postIDs:    append([]int(nil), postIDs...),
		logger:     logger,
	}
}

func (j *CommentCountRecomputeJob) Run() {
	if err := j.recomputer.Recompute(context.Background(), j.postIDs); err != nil {
		j.logger.Warn("评论数重算未全部成功", "post_ids", j.postIDs, "error", err)
	}
}

func (j *CommentCountRecomputeJob) Name() string {
	return "CommentCountRecomputeJob"
}

// CommentCountReconcileJob 周期性地对所有文章做一次评论数对账。
type CommentCountReconcileJob struct {
	recomputer CommentCountRecomputer
	logger     *slog.Logger
}

func NewCommentCountReconcileJob(recomputer CommentCountRecomputer, logger *slog.Logger) *CommentCountReconcileJob {
	return &CommentCountReconcileJob{recomputer: recomputer, logger: logger}
}

func (j *CommentCountReconcileJob) Run() {
	if err := j.recomputer.ReconcileAll(context.Background()); err != nil {
		j.logger.Error("评论数全量对账失败", "error", err)
	}
}

func (j *CommentCountReconcileJob) Name() string {
	return "CommentCountReconcileJob"
}
