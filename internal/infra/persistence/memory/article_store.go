package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
)

// ArticleStore 是文章集合的内存实现
type ArticleStore struct {
	mu       sync.RWMutex
	articles map[int]*model.Article
}

func NewArticleStore() *ArticleStore {
	return &ArticleStore{articles: make(map[int]*model.Article)}
}

func (s *ArticleStore) FindByID(_ context.Context, id int) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *ArticleStore) UpdateCommentCount(_ context.Context, id int, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.articles[id]; ok {
		a.CommentCount = count
	}
	return nil
}

func (s *ArticleStore) ListIDs(context.Context) ([]int, error) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.articles))
	for id := range s.articles {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Ints(ids)
	return ids, nil
}

// Upsert 写入文章，已存在时保留原有评论数
func (s *ArticleStore) Upsert(_ context.Context, a *model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	if old, ok := s.articles[a.ID]; ok {
		cp.CommentCount = old.CommentCount
	}
	s.articles[a.ID] = &cp
	return nil
}

var (
	_ repository.CommentRepository = (*CommentStore)(nil)
	_ repository.ArticleRepository = (*ArticleStore)(nil)
	_ repository.ArticleWriter     = (*ArticleStore)(nil)
)
