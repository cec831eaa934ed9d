// pkg/service/comment/query.go
package comment

import (
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
	"github.com/anzhiyu-c/anheyu-comment/pkg/handler/comment/dto"
)

// 分页默认值
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// 排序参数的取值
const (
	SortOldest = 1
	SortNewest = -1
	SortLikes  = 2
)

// acceptedStates 是列表筛选允许的状态字符串
var acceptedStates = map[string]model.State{
	"0": model.StatePending,
	"1": model.StatePublished,
	"2": model.StateRejected,
}

// BuildListQuery 把调用方的角色和筛选参数转换成查询谓词、排序和分页。
//   - sort 为 1/-1 时按创建顺序升/降序，为 2 时按点赞数降序，其他值按原始数值的正负决定 id 排序方向
//   - state 只接受 "0"/"1"/"2"；非管理员一律只能看到已发布的评论
//   - keyword 的转义交给存储层
//   - post_id 只要出现就作为精确匹配条件
func BuildListQuery(req *dto.ListRequest) *repository.CommentListQuery {
	q := &repository.CommentListQuery{
		PageQuery: normalizePage(req.CurrentPage, req.PageSize),
		Sort:      buildSort(req.Sort),
	}

	if state, ok := acceptedStates[req.State]; ok {
		q.Filter.State = &state
	}
	if !req.Privileged {
		published := model.StatePublished
		q.Filter.State = &published
	}

	q.Filter.Keyword = req.Keyword

	if req.PostID != nil {
		postID := *req.PostID
		q.Filter.PostID = &postID
	}
	return q
}

func buildSort(sort int) repository.SortOption {
	switch sort {
	case SortOldest, SortNewest:
		return repository.SortOption{Field: repository.SortByID, Direction: sort}
	case SortLikes:
		return repository.SortOption{Field: repository.SortByLikes, Direction: -1}
	default:
		return repository.SortOption{Field: repository.SortByID, Direction: sort}
	}
}

func normalizePage(page, pageSize int) repository.PageQuery {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return repository.PageQuery{Page: page, PageSize: pageSize}
}
