/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-21 19:42:38
 * @LastEditTime: 2026-10-12 22:03:17
 * @LastEditors: 安知鱼
 */
package repository

import (
	"regexp"

	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
)

// PageQuery 包含了所有列表查询都通用的分页参数。
type PageQuery struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"pageSize" json:"pageSize"`
}

// Offset 返回当前页第一条记录的偏移量。
func (q PageQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// PageResult 包含了所有分页查询返回的通用结构。
type PageResult[T any] struct {
	Items []*T  `json:"items"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// TotalPages 根据总数和每页数量计算总页数。
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// SortField 评论列表的排序字段
type SortField string

const (
	SortByID    SortField = "id"
	SortByLikes SortField = "likes"
)

// SortOption 描述排序方式。Direction 沿用调用方传入的原始数值，小于等于 0 视为降序。
type SortOption struct {
	Field     SortField
	Direction int
}

// Descending 判断是否降序。
func (s SortOption) Descending() bool {
	return s.Direction <= 0
}

// CommentFilter 是评论列表的查询谓词。
type CommentFilter struct {
	State   *model.State
	PostID  *int
	Keyword string // 原始关键词，由各存储实现负责转义
}

// KeywordPattern 返回转义后的关键词正则，关键词为空时返回 nil。
func (f CommentFilter) KeywordPattern() *regexp.Regexp {
	if f.Keyword == "" {
		return nil
	}
	return regexp.MustCompile(regexp.QuoteMeta(f.Keyword))
}

// Matches 在内存中判断一条评论是否满足谓词。
func (f CommentFilter) Matches(c *model.Comment) bool {
	if f.State != nil && c.State != *f.State {
		return false
	}
	if f.PostID != nil && c.PostID != *f.PostID {
		return false
	}
	if re := f.KeywordPattern(); re != nil {
		return re.MatchString(c.Content) || re.MatchString(c.Author.Name) || re.MatchString(c.Author.Email)
	}
	return true
}

// CommentListQuery 组合了谓词、排序和分页。
type CommentListQuery struct {
	Filter CommentFilter
	Sort   SortOption
	PageQuery
}
