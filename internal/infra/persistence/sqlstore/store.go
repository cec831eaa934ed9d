// Package sqlstore 使用 ent 的 SQL 构建器实现评论与文章仓储，支持 MySQL、PostgreSQL 与 SQLite。
package sqlstore

import "github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"

var (
	_ repository.CommentRepository = (*CommentRepo)(nil)
	_ repository.ArticleRepository = (*ArticleRepo)(nil)
	_ repository.ArticleWriter     = (*ArticleRepo)(nil)
)
