// Package memory 提供进程内的评论与文章仓储，用于 Database.Type=memory 的单机部署与测试。
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"

	"github.com/bwmarrin/snowflake"
)

// CommentStore 是 CommentRepository 的内存实现。
// ID 由 snowflake 生成，单节点内单调递增，因此同样可以充当创建顺序。
type CommentStore struct {
	mu       sync.RWMutex
	node     *snowflake.Node
	comments map[uint]*model.Comment
}

// NewCommentStore 创建内存评论仓储，nodeID 取值 0~1023
func NewCommentStore(nodeID int64) (*CommentStore, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("创建 snowflake 节点失败: %w", err)
	}
	return &CommentStore{node: node, comments: make(map[uint]*model.Comment)}, nil
}

func (s *CommentStore) List(_ context.Context, query *repository.CommentListQuery) (*repository.PageResult[model.Comment], error) {
	s.mu.RLock()
	matched := make([]*model.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		if query.Filter.Matches(c) {
			matched = append(matched, clone(c))
		}
	}
	s.mu.RUnlock()

	sortComments(matched, query.Sort)

	total := int64(len(matched))
	result := &repository.PageResult[model.Comment]{
		Items: []*model.Comment{},
		Total: total,
		Pages: repository.TotalPages(total, query.PageSize),
	}
	start := query.Offset()
	if start >= len(matched) {
		return result, nil
	}
	end := start + query.PageSize
	if query.PageSize <= 0 || end > len(matched) {
		end = len(matched)
	}
	result.Items = matched[start:end]
	return result, nil
}

func (s *CommentStore) Create(_ context.Context, params *repository.CreateCommentParams) (*model.Comment, error) {
	now := time.Now()
	c := &model.Comment{
		ID:          uint(s.node.Generate().Int64()),
		PostID:      params.PostID,
		Author:      params.Author,
		Content:     params.Content,
		ContentHTML: params.ContentHTML,
		State:       params.State,
		Likes:       params.Likes,
		IP:          params.IP,
		Agent:       params.Agent,
		City:        params.City,
		Country:     params.Country,
		Range:       params.Range,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.ParentID != nil {
		pid := *params.ParentID
		c.ParentID = &pid
	}

	s.mu.Lock()
	s.comments[c.ID] = c
	s.mu.Unlock()
	return clone(c), nil
}

func (s *CommentStore) FindByID(_ context.Context, id uint) (*model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	return clone(c), nil
}

func (s *CommentStore) DeleteByID(_ context.Context, id uint) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	delete(s.comments, id)
	return c, nil
}

func (s *CommentStore) UpdateByID(_ context.Context, id uint, params *repository.UpdateCommentParams) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	if params.IsEmpty() {
		return clone(c), nil
	}
	if params.State != nil {
		c.State = *params.State
	}
	if params.Author != nil {
		c.Author = *params.Author
	}
	if params.Content != nil {
		c.Content = *params.Content
	}
	if params.ContentHTML != nil {
		c.ContentHTML = *params.ContentHTML
	}
	c.UpdatedAt = time.Now()
	return clone(c), nil
}

func (s *CommentStore) CountPublishedByPostIDs(_ context.Context, postIDs []int) (map[int]int, error) {
	wanted := make(map[int]struct{}, len(postIDs))
	for _, id := range postIDs {
		wanted[id] = struct{}{}
	}

	counts := make(map[int]int)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.comments {
		if _, ok := wanted[c.PostID]; ok && c.IsPublished() {
			counts[c.PostID]++
		}
	}
	return counts, nil
}

// sortComments 与 SQL 实现保持一致：点赞数相同时按最新优先
func sortComments(items []*model.Comment, opt repository.SortOption) {
	desc := opt.Descending()
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if opt.Field == repository.SortByLikes && a.Likes != b.Likes {
			if desc {
				return a.Likes > b.Likes
			}
			return a.Likes < b.Likes
		}
		if opt.Field == repository.SortByLikes {
			return a.ID > b.ID
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

func clone(c *model.Comment) *model.Comment {
	cp := *c
	if c.ParentID != nil {
		pid := *c.ParentID
		cp.ParentID = &pid
	}
	return &cp
}
