/*
 * @Description: 基于 SQL 的评论仓储
 * @Author: 安知鱼
 * @Date: 2025-08-11 18:20:33
 * @LastEditTime: 2026-10-14 23:02:51
 * @LastEditors: 安知鱼
 */
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-comment/internal/infra/persistence/database"
	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// commentColumns 是查询评论时的列顺序，需与 scanComment 保持一致
var commentColumns = []string{
	database.ColID, database.ColPostID, database.ColParentID,
	database.ColAuthorName, database.ColAuthorEmail, database.ColAuthorSite,
	database.ColContent, database.ColContentHTML, database.ColState, database.ColLikes,
	database.ColIP, database.ColAgent, database.ColCity, database.ColCountry, database.ColRange,
	database.ColCreatedAt, database.ColUpdatedAt,
}

// CommentRepo 是评论集合的 SQL 实现
type CommentRepo struct {
	db      *sql.DB
	dialect string
}

// NewCommentRepo 创建一个 CommentRepository 的 SQL 实现
func NewCommentRepo(db *database.DB) *CommentRepo {
	return &CommentRepo{db: db.DB, dialect: db.Dialect}
}

func (r *CommentRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.dialect)
}

// List 分页查询评论列表
func (r *CommentRepo) List(ctx context.Context, query *repository.CommentListQuery) (*repository.PageResult[model.Comment], error) {
	where := commentPredicate(query.Filter)

	countSel := r.builder().Select(entsql.Count("*")).From(entsql.Table(database.CommentsTable))
	if where != nil {
		countSel.Where(where)
	}
	countQuery, countArgs := countSel.Query()

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("统计评论总数失败: %w", err)
	}

	result := &repository.PageResult[model.Comment]{
		Items: []*model.Comment{},
		Total: total,
		Pages: repository.TotalPages(total, query.PageSize),
	}
	if total == 0 {
		return result, nil
	}

	sel := r.builder().Select(commentColumns...).From(entsql.Table(database.CommentsTable))
	if where != nil {
		sel.Where(where)
	}
	for _, order := range orderTerms(query.Sort) {
		sel.OrderBy(order)
	}
	sel.Limit(query.PageSize).Offset(query.Offset())
	listQuery, listArgs := sel.Query()

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("查询评论列表失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取评论列表失败: %w", err)
	}
	return result, nil
}

// Create 插入一条新评论
func (r *CommentRepo) Create(ctx context.Context, params *repository.CreateCommentParams) (*model.Comment, error) {
	now := time.Now()
	var parentID interface{}
	if params.ParentID != nil {
		parentID = *params.ParentID
	}

	insert := r.builder().Insert(database.CommentsTable).
		Columns(commentColumns[1:]...).
		Values(
			params.PostID, parentID,
			params.Author.Name, params.Author.Email, params.Author.Site,
			params.Content, params.ContentHTML, int(params.State), params.Likes,
			params.IP, params.Agent, params.City, params.Country, params.Range,
			now, now,
		)

	var id uint
	if r.dialect == dialect.Postgres {
		insert.Returning(database.ColID)
		query, args := insert.Query()
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, fmt.Errorf("写入评论失败: %w", err)
		}
	} else {
		query, args := insert.Query()
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("写入评论失败: %w", err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("获取评论ID失败: %w", err)
		}
		id = uint(lastID)
	}

	return r.FindByID(ctx, id)
}

// FindByID 根据数据库ID查找单条评论
func (r *CommentRepo) FindByID(ctx context.Context, id uint) (*model.Comment, error) {
	return r.findByID(ctx, r.db, id)
}

// DeleteByID 删除评论并返回被删除的记录
func (r *CommentRepo) DeleteByID(ctx context.Context, id uint) (*model.Comment, error) {
	var deleted *model.Comment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := r.findByID(ctx, tx, id)
		if err != nil {
			return err
		}
		query, args := r.builder().Delete(database.CommentsTable).
			Where(entsql.EQ(database.ColID, id)).Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("删除评论失败: %w", err)
		}
		deleted = c
		return nil
	})
	return deleted, err
}

// UpdateByID 更新评论并返回更新后的记录
func (r *CommentRepo) UpdateByID(ctx context.Context, id uint, params *repository.UpdateCommentParams) (*model.Comment, error) {
	var updated *model.Comment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.findByID(ctx, tx, id); err != nil {
			return err
		}

		if !params.IsEmpty() {
			upd := r.builder().Update(database.CommentsTable).Set(database.ColUpdatedAt, time.Now())
			if params.State != nil {
				upd.Set(database.ColState, int(*params.State))
			}
			if params.Author != nil {
				upd.Set(database.ColAuthorName, params.Author.Name).
					Set(database.ColAuthorEmail, params.Author.Email).
					Set(database.ColAuthorSite, params.Author.Site)
			}
			if params.Content != nil {
				upd.Set(database.ColContent, *params.Content)
			}
			if params.ContentHTML != nil {
				upd.Set(database.ColContentHTML, *params.ContentHTML)
			}
			query, args := upd.Where(entsql.EQ(database.ColID, id)).Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("更新评论失败: %w", err)
			}
		}

		c, err := r.findByID(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = c
		return nil
	})
	return updated, err
}

// CountPublishedByPostIDs 按文章分组统计已发布评论数
func (r *CommentRepo) CountPublishedByPostIDs(ctx context.Context, postIDs []int) (map[int]int, error) {
	counts := make(map[int]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	args := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	query, queryArgs := r.builder().
		Select(database.ColPostID, entsql.Count("*")).
		From(entsql.Table(database.CommentsTable)).
		Where(entsql.And(
			entsql.In(database.ColPostID, args...),
			entsql.EQ(database.ColState, int(model.StatePublished)),
		)).
		GroupBy(database.ColPostID).
		Query()

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("统计文章评论数失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, count int
		if err := rows.Scan(&postID, &count); err != nil {
			return nil, fmt.Errorf("读取文章评论数失败: %w", err)
		}
		counts[postID] = count
	}
	return counts, rows.Err()
}

// queryer 是 *sql.DB 与 *sql.Tx 的公共部分
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *CommentRepo) findByID(ctx context.Context, q queryer, id uint) (*model.Comment, error) {
	query, args := r.builder().Select(commentColumns...).
		From(entsql.Table(database.CommentsTable)).
		Where(entsql.EQ(database.ColID, id)).
		Query()

	c, err := scanComment(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, constant.ErrNotFound
	}
	return c, err
}

func (r *CommentRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// commentPredicate 把领域谓词转换为 SQL 条件，没有条件时返回 nil
func commentPredicate(f repository.CommentFilter) *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.State != nil {
		preds = append(preds, entsql.EQ(database.ColState, int(*f.State)))
	}
	if f.PostID != nil {
		preds = append(preds, entsql.EQ(database.ColPostID, *f.PostID))
	}
	if f.Keyword != "" {
		pattern := "%" + escapeLike(f.Keyword) + "%"
		preds = append(preds, entsql.Or(
			likeEscaped(database.ColContent, pattern),
			likeEscaped(database.ColAuthorName, pattern),
			likeEscaped(database.ColAuthorEmail, pattern),
		))
	}
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return entsql.And(preds...)
	}
}

// likeEscapeChar 在 MySQL、PostgreSQL 与 SQLite 中都不是 LIKE 的默认转义符，需要显式声明
const likeEscapeChar = "!"

// escapeLike 转义关键词中的 LIKE 通配符，关键词按字面匹配
func escapeLike(s string) string {
	r := strings.NewReplacer(
		likeEscapeChar, likeEscapeChar+likeEscapeChar,
		"%", likeEscapeChar+"%",
		"_", likeEscapeChar+"_",
	)
	return r.Replace(s)
}

func likeEscaped(col, pattern string) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.Ident(col).WriteString(" LIKE ").Arg(pattern).WriteString(" ESCAPE '" + likeEscapeChar + "'")
	})
}

// orderTerms 把排序选项转换为 ORDER BY 子句，点赞数相同时按最新优先
func orderTerms(s repository.SortOption) []string {
	dir := entsql.Asc
	if s.Descending() {
		dir = entsql.Desc
	}
	switch s.Field {
	case repository.SortByLikes:
		return []string{dir(database.ColLikes), entsql.Desc(database.ColID)}
	default:
		return []string{dir(database.ColID)}
	}
}

// rowScanner 是 *sql.Row 与 *sql.Rows 的公共部分
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(s rowScanner) (*model.Comment, error) {
	var (
		c        model.Comment
		parentID sql.NullInt64
		state    int
	)
	err := s.Scan(
		&c.ID, &c.PostID, &parentID,
		&c.Author.Name, &c.Author.Email, &c.Author.Site,
		&c.Content, &c.ContentHTML, &state, &c.Likes,
		&c.IP, &c.Agent, &c.City, &c.Country, &c.Range,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("读取评论失败: %w", err)
	}
	if parentID.Valid {
		pid := uint(parentID.Int64)
		c.ParentID = &pid
	}
	c.State = model.State(state)
	return &c, nil
}
