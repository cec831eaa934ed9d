package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anzhiyu-c/anheyu-comment/internal/infra/persistence/database"
	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"

	entsql "entgo.io/ent/dialect/sql"
)

// ArticleRepo 是文章集合的 SQL 实现
type ArticleRepo struct {
	db      *sql.DB
	dialect string
}

// NewArticleRepo 创建一个 ArticleRepository 的 SQL 实现
func NewArticleRepo(db *database.DB) *ArticleRepo {
	return &ArticleRepo{db: db.DB, dialect: db.Dialect}
}

func (r *ArticleRepo) FindByID(ctx context.Context, id int) (*model.Article, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(database.ColID, database.ColStorageKey, database.ColTitle, database.ColCommentCount).
		From(entsql.Table(database.ArticlesTable)).
		Where(entsql.EQ(database.ColID, id)).
		Query()

	var a model.Article
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.StorageKey, &a.Title, &a.CommentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, constant.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询文章失败: %w", err)
	}
	return &a, nil
}

// UpdateCommentCount 覆盖写入评论数。文章不存在时不报错，MySQL 对值未变化的行也会返回 0 影响行数。
func (r *ArticleRepo) UpdateCommentCount(ctx context.Context, id int, count int) error {
	query, args := entsql.Dialect(r.dialect).
		Update(database.ArticlesTable).
		Set(database.ColCommentCount, count).
		Where(entsql.EQ(database.ColID, id)).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("更新文章 %d 评论数失败: %w", id, err)
	}
	return nil
}

func (r *ArticleRepo) ListIDs(ctx context.Context) ([]int, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(database.ColID).
		From(entsql.Table(database.ArticlesTable)).
		OrderBy(database.ColID).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询文章ID失败: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("读取文章ID失败: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert 按文章编号写入文章，已存在时只更新存储键与标题
func (r *ArticleRepo) Upsert(ctx context.Context, a *model.Article) error {
	b := entsql.Dialect(r.dialect)
	sel, selArgs := b.Select(database.ColID).
		From(entsql.Table(database.ArticlesTable)).
		Where(entsql.EQ(database.ColID, a.ID)).
		Query()

	var existing int
	err := r.db.QueryRowContext(ctx, sel, selArgs...).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		query, args := b.Insert(database.ArticlesTable).
			Columns(database.ColID, database.ColStorageKey, database.ColTitle, database.ColCommentCount).
			Values(a.ID, a.StorageKey, a.Title, a.CommentCount).
			Query()
		_, err = r.db.ExecContext(ctx, query, args...)
	case err == nil:
		query, args := b.Update(database.ArticlesTable).
			Set(database.ColStorageKey, a.StorageKey).
			Set(database.ColTitle, a.Title).
			Where(entsql.EQ(database.ColID, a.ID)).
			Query()
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("写入文章失败: %w", err)
	}
	return nil
}
