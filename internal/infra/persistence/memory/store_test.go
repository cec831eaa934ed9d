package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
)

func newStore(t *testing.T) *CommentStore {
	t.Helper()
	s, err := NewCommentStore(1)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func add(t *testing.T, s *CommentStore, postID int, state model.State, content string, likes int) *model.Comment {
	t.Helper()
	c, err := s.Create(context.Background(), &repository.CreateCommentParams{
		PostID: postID, Author: model.Author{Name: "n", Email: "e@x.y"},
		Content: content, State: state, Likes: likes,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCommentStore_IDsFollowCreationOrder(t *testing.T) {
	s := newStore(t)
	var last uint
	for i := 0; i < 100; i++ {
		c := add(t, s, 1, model.StatePublished, "x", 0)
		if c.ID <= last {
			t.Fatalf("id %d not greater than previous %d", c.ID, last)
		}
		last = c.ID
	}
}

func TestCommentStore_List(t *testing.T) {
	s := newStore(t)
	a := add(t, s, 1, model.StatePublished, "a.b", 2)
	b := add(t, s, 1, model.StatePending, "axb", 7)
	c := add(t, s, 0, model.StatePublished, "about", 2)

	published := model.StatePublished
	tests := []struct {
		name  string
		query repository.CommentListQuery
		want  []uint
	}{
		{name: "最新优先", query: repository.CommentListQuery{Sort: repository.SortOption{Field: repository.SortByID, Direction: -1}}, want: []uint{c.ID, b.ID, a.ID}},
		{name: "最早优先", query: repository.CommentListQuery{Sort: repository.SortOption{Field: repository.SortByID, Direction: 1}}, want: []uint{a.ID, b.ID, c.ID}},
		{name: "点赞相同按最新", query: repository.CommentListQuery{Filter: repository.CommentFilter{State: &published}, Sort: repository.SortOption{Field: repository.SortByLikes, Direction: -1}}, want: []uint{c.ID, a.ID}},
		{name: "关键词中的点号按字面匹配", query: repository.CommentListQuery{Filter: repository.CommentFilter{Keyword: "a.b"}}, want: []uint{a.ID}},
		{name: "第二页", query: repository.CommentListQuery{Sort: repository.SortOption{Direction: 1}, PageQuery: repository.PageQuery{Page: 2, PageSize: 2}}, want: []uint{c.ID}},
		{name: "超出页数", query: repository.CommentListQuery{PageQuery: repository.PageQuery{Page: 9, PageSize: 2}}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			if q.PageSize == 0 {
				q.PageQuery = repository.PageQuery{Page: 1, PageSize: 10}
			}
			res, err := s.List(context.Background(), &q)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Items) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(res.Items), len(tt.want))
			}
			for i, item := range res.Items {
				if item.ID != tt.want[i] {
					t.Fatalf("item %d = %d, want %d", i, item.ID, tt.want[i])
				}
			}
		})
	}
}

func TestCommentStore_MutationsAndCounts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c1 := add(t, s, 5, model.StatePublished, "a", 0)
	add(t, s, 5, model.StatePublished, "b", 0)
	add(t, s, 5, model.StatePending, "c", 0)

	counts, _ := s.CountPublishedByPostIDs(ctx, []int{5, 6})
	if counts[5] != 2 || len(counts) != 1 {
		t.Errorf("counts = %v, want map[5:2]", counts)
	}

	rejected := model.StateRejected
	if _, err := s.UpdateByID(ctx, c1.ID, &repository.UpdateCommentParams{State: &rejected}); err != nil {
		t.Fatal(err)
	}
	counts, _ = s.CountPublishedByPostIDs(ctx, []int{5})
	if counts[5] != 1 {
		t.Errorf("after reject count = %d, want 1", counts[5])
	}

	got, _ := s.FindByID(ctx, c1.ID)
	got.Content = "mutated outside"
	again, _ := s.FindByID(ctx, c1.ID)
	if again.Content != "a" {
		t.Error("store must return copies")
	}

	if _, err := s.DeleteByID(ctx, c1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeleteByID(ctx, c1.ID); !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestArticleStore(t *testing.T) {
	s := NewArticleStore()
	ctx := context.Background()
	_ = s.Upsert(ctx, &model.Article{ID: 2, StorageKey: "b"})
	_ = s.Upsert(ctx, &model.Article{ID: 1, StorageKey: "a"})
	_ = s.UpdateCommentCount(ctx, 1, 4)
	_ = s.Upsert(ctx, &model.Article{ID: 1, StorageKey: "a2"})

	a, err := s.FindByID(ctx, 1)
	if err != nil || a.StorageKey != "a2" || a.CommentCount != 4 {
		t.Errorf("article = %+v, %v", a, err)
	}
	ids, _ := s.ListIDs(ctx)
	if len(ids) != 2 || ids[0] != 1 {
		t.Errorf("ids = %v", ids)
	}
	if _, err := s.FindByID(ctx, 3); !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
