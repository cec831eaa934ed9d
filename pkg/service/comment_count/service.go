/*
 * @Description: 文章评论数聚合重算
 * @Author: 安知鱼
 * @Date: 2026-10-12 23:05:10
 * @LastEditTime: 2026-10-13 21:40:36
 * @LastEditors: 安知鱼
 */
package comment_count

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/metrics"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
)

const (
	// defaultMaxWriters 单次重算时并发回写文章的上限
	defaultMaxWriters = 8
	// reconcileBatchSize 全量对账时每批处理的文章数
	reconcileBatchSize = 200
)

// Service 负责让文章的评论数与已发布评论的实际数量保持一致。
// 文章的评论数只允许由这里写入。
type Service struct {
	commentRepo repository.CommentRepository
	articleRepo repository.ArticleRepository
	logger      *slog.Logger
	metrics     *metrics.Collector
	maxWriters  int
}

// NewService 创建评论数重算服务，logger 与 collector 均可为 nil
func NewService(commentRepo repository.CommentRepository, articleRepo repository.ArticleRepository, logger *slog.Logger, collector *metrics.Collector) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		commentRepo: commentRepo,
		articleRepo: articleRepo,
		logger:      logger.With("component", "comment_count"),
		metrics:     collector,
		maxWriters:  defaultMaxWriters,
	}
}

// NormalizePostIDs 去重并去掉 0 和负数（关于页不参与聚合），保持首次出现的顺序。
func NormalizePostIDs(postIDs []int) []int {
	seen := make(map[int]struct{}, len(postIDs))
	result := make([]int, 0, len(postIDs))
	for _, id := range postIDs {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// Recompute 重新统计给定文章的已发布评论数并回写。
// 统计结果里缺失的文章按 0 回写。各文章的回写互不影响，单篇失败只记录日志，
// 返回值汇总了本次所有失败，供调用方记录，不应再向请求链路传播。
func (s *Service) Recompute(ctx context.Context, postIDs []int) error {
	ids := NormalizePostIDs(postIDs)
	if len(ids) == 0 {
		return nil
	}

	counts, err := s.commentRepo.CountPublishedByPostIDs(ctx, ids)
	if err != nil {
		s.logger.Error("统计已发布评论数失败", "post_ids", ids, "error", err)
		return fmt.Errorf("统计已发布评论数失败: %w", err)
	}

	p := pool.New().WithErrors().WithMaxGoroutines(s.maxWriters)
	for _, id := range ids {
		postID := id
		count := counts[postID] // 没有已发布评论的文章不在结果中，取零值
		p.Go(func() error {
			err := s.articleRepo.UpdateCommentCount(ctx, postID, count)
			s.metrics.RecordAggregateWrite(err)
			if err != nil {
				s.logger.Error("回写文章评论数失败", "post_id", postID, "count", count, "error", err)
				return fmt.Errorf("文章 %d: %w", postID, err)
			}
			s.logger.Debug("回写文章评论数成功", "post_id", postID, "count", count)
			return nil
		})
	}
	return p.Wait()
}

// ReconcileAll 对所有文章做一次全量对账，用于兜底异步重算丢失或进程崩溃的情况。
func (s *Service) ReconcileAll(ctx context.Context) error {
	ids, err := s.articleRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("获取文章列表失败: %w", err)
	}

	var failed int
	for start := 0; start < len(ids); start += reconcileBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+reconcileBatchSize, len(ids))
		if err := s.Recompute(ctx, ids[start:end]); err != nil {
			failed++
		}
	}

	s.logger.Info("评论数全量对账完成", "articles", len(ids), "failed_batches", failed)
	if failed > 0 {
		return fmt.Errorf("评论数对账有 %d 个批次失败", failed)
	}
	return nil
}
