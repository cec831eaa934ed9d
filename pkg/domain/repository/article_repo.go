package repository

import (
	"context"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
)

// ArticleRepository 是评论子系统对文章集合的最小依赖。
type ArticleRepository interface {
	// FindByID 根据文章编号查找文章，找不到时返回 constant.ErrNotFound
	FindByID(ctx context.Context, id int) (*model.Article, error)

	// UpdateCommentCount 覆盖写入文章的评论聚合数
	UpdateCommentCount(ctx context.Context, id int, count int) error

	// ListIDs 返回所有文章编号，供全量对账使用
	ListIDs(ctx context.Context) ([]int, error)
}

// ArticleWriter 用于把外部文章数据同步进本服务
type ArticleWriter interface {
	Upsert(ctx context.Context, article *model.Article) error
}
