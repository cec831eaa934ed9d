package comment

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/anzhiyu-c/anheyu-comment/internal/app/task"
	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
	"github.com/anzhiyu-c/anheyu-comment/pkg/handler/comment/dto"
	"github.com/anzhiyu-c/anheyu-comment/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/parser"
)

func TestMain(m *testing.M) {
	if err := idgen.InitSqidsEncoder(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeRepo 是内存中的评论仓储，记录每个方法被调用的次数
type fakeRepo struct {
	mu       sync.Mutex
	comments map[uint]*model.Comment
	nextID   uint
	calls    int
	lastList *repository.CommentListQuery
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{comments: make(map[uint]*model.Comment), nextID: 1}
}

func (r *fakeRepo) touch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.failWith
}

func (r *fakeRepo) List(_ context.Context, q *repository.CommentListQuery) (*repository.PageResult[model.Comment], error) {
	if err := r.touch(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = q
	var items []*model.Comment
	for id := uint(1); id < r.nextID; id++ {
		if c, ok := r.comments[id]; ok && q.Filter.Matches(c) {
			items = append(items, c)
		}
	}
	return &repository.PageResult[model.Comment]{
		Items: items,
		Total: int64(len(items)),
		Pages: repository.TotalPages(int64(len(items)), q.PageSize),
	}, nil
}

func (r *fakeRepo) Create(_ context.Context, p *repository.CreateCommentParams) (*model.Comment, error) {
	if err := r.touch(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &model.Comment{
		ID: r.nextID, PostID: p.PostID, ParentID: p.ParentID, Author: p.Author,
		Content: p.Content, ContentHTML: p.ContentHTML, State: p.State, Likes: p.Likes,
		IP: p.IP, Agent: p.Agent, City: p.City, Country: p.Country, Range: p.Range,
	}
	r.comments[c.ID] = c
	r.nextID++
	return c, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uint) (*model.Comment, error) {
	if err := r.touch(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) DeleteByID(_ context.Context, id uint) (*model.Comment, error) {
	if err := r.touch(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	delete(r.comments, id)
	return c, nil
}

func (r *fakeRepo) UpdateByID(_ context.Context, id uint, p *repository.UpdateCommentParams) (*model.Comment, error) {
	if err := r.touch(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, constant.ErrNotFound
	}
	if p.State != nil {
		c.State = *p.State
	}
	if p.Author != nil {
		c.Author = *p.Author
	}
	if p.Content != nil {
		c.Content = *p.Content
	}
	if p.ContentHTML != nil {
		c.ContentHTML = *p.ContentHTML
	}
	return c, nil
}

func (r *fakeRepo) CountPublishedByPostIDs(context.Context, []int) (map[int]int, error) {
	return map[int]int{}, r.touch()
}

func (r *fakeRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeDispatcher 记录派发的任务
type fakeDispatcher struct {
	mu         sync.Mutex
	recomputes [][]int
	notified   []*model.Comment
}

func (d *fakeDispatcher) DispatchCommentCountRecompute(postIDs []int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recomputes = append(d.recomputes, append([]int(nil), postIDs...))
}

func (d *fakeDispatcher) DispatchCommentNotification(c *model.Comment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notified = append(d.notified, c)
}

func (d *fakeDispatcher) lastRecompute() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.recomputes) == 0 {
		return nil
	}
	return d.recomputes[len(d.recomputes)-1]
}

// fakeGeo 固定返回同一个位置
type fakeGeo struct{ err error }

func (g fakeGeo) Lookup(context.Context, string) (*model.GeoLocation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &model.GeoLocation{City: "杭州", Country: "CN", Range: "1.2.3.0/24"}, nil
}

func (fakeGeo) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeDispatcher) {
	t.Helper()
	repo := newFakeRepo()
	dispatcher := &fakeDispatcher{}
	return NewService(repo, fakeGeo{}, parser.NewService(), dispatcher), repo, dispatcher
}

func validCreate(postID int) *dto.CreateRequest {
	return &dto.CreateRequest{
		PostID:  postID,
		Author:  dto.AuthorField{Value: &model.Author{Name: "小明", Email: "ming@example.com"}},
		Content: "**你好**",
	}
}

func mustPublicID(t *testing.T, id uint) string {
	t.Helper()
	s, err := idgen.GeneratePublicID(id, idgen.EntityTypeComment)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestService_Create(t *testing.T) {
	svc, repo, dispatcher := newTestService(t)

	resp, err := svc.Create(context.Background(), validCreate(7), "1.2.3.4", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.State != int(model.StatePublished) || resp.Likes != 0 {
		t.Errorf("state/likes = %d/%d, want published/0", resp.State, resp.Likes)
	}
	if resp.ContentHTML == "" || resp.Agent != "Mozilla/5.0" || resp.City != "杭州" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Author.Email != nil || resp.IP != nil || resp.Range != nil {
		t.Error("public response must not expose email, ip or range")
	}

	stored := repo.comments[1]
	if stored.IP != "1.2.3.4" || stored.Range != "1.2.3.0/24" {
		t.Errorf("stored origin = %q/%q", stored.IP, stored.Range)
	}
	if got := dispatcher.lastRecompute(); !sameInts(got, []int{7}) {
		t.Errorf("recompute targets = %v, want [7]", got)
	}
	if len(dispatcher.notified) != 1 || dispatcher.notified[0].ID != 1 {
		t.Errorf("notification not dispatched for the new comment")
	}
}

func TestService_CreateWithReplyAndGeoFailure(t *testing.T) {
	repo := newFakeRepo()
	dispatcher := &fakeDispatcher{}
	svc := NewService(repo, fakeGeo{err: errors.New("boom")}, parser.NewService(), dispatcher)

	req := validCreate(0)
	pid := mustPublicID(t, 42)
	req.PID = &pid
	resp, err := svc.Create(context.Background(), req, "1.2.3.4", "")
	if err != nil {
		t.Fatalf("geo failure must not block create: %v", err)
	}
	if resp.PID == nil || *resp.PID != pid {
		t.Errorf("PID = %v, want %s", resp.PID, pid)
	}
	if resp.City != "" {
		t.Errorf("City = %q, want empty", resp.City)
	}
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*dto.CreateRequest)
		wantErr error
	}{
		{name: "缺少作者", mutate: func(r *dto.CreateRequest) { r.Author = dto.AuthorField{} }, wantErr: constant.ErrInvalidAuthor},
		{name: "缺少邮箱", mutate: func(r *dto.CreateRequest) { r.Author.Value.Email = " " }, wantErr: constant.ErrInvalidAuthor},
		{name: "内容为空白", mutate: func(r *dto.CreateRequest) { r.Content = "   " }, wantErr: constant.ErrBadRequest},
		{name: "pid 无法解码", mutate: func(r *dto.CreateRequest) { bad := "!!"; r.PID = &bad }, wantErr: constant.ErrInvalidCommentID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, dispatcher := newTestService(t)
			req := validCreate(1)
			tt.mutate(req)
			_, err := svc.Create(context.Background(), req, "", "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if repo.callCount() != 0 || len(dispatcher.recomputes) != 0 {
				t.Error("invalid request must not reach the store or dispatch work")
			}
		})
	}
}

func TestService_CreateStoreFailureDispatchesNothing(t *testing.T) {
	svc, repo, dispatcher := newTestService(t)
	repo.failWith = errors.New("db down")

	if _, err := svc.Create(context.Background(), validCreate(3), "", ""); err == nil {
		t.Fatal("expected error")
	}
	if len(dispatcher.recomputes) != 0 || len(dispatcher.notified) != 0 {
		t.Error("failed write must not dispatch follow-up work")
	}
}

// slowWork 模拟永远卡住的后台工作，直到测试结束才放行
type slowWork struct{ release chan struct{} }

func (w slowWork) Recompute(context.Context, []int) error { <-w.release; return nil }
func (w slowWork) ReconcileAll(context.Context) error    { return nil }
func (w slowWork) NotifyNewComment(context.Context, *model.Comment) {
	<-w.release
}

func TestService_CreateDoesNotWaitForBackgroundWork(t *testing.T) {
	work := slowWork{release: make(chan struct{})}
	broker := task.NewBroker(work, work, task.BrokerOptions{Workers: 1, QueueSize: 1})
	t.Cleanup(broker.Stop)
	t.Cleanup(func() { close(work.release) })

	svc := NewService(newFakeRepo(), nil, parser.NewService(), broker)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 5; i++ {
			if _, err := svc.Create(context.Background(), validCreate(1), "", ""); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Create blocked on background work")
	}
}

func TestService_UpdateFailsFastWithoutRequiredFields(t *testing.T) {
	state := 1
	tests := []struct {
		name string
		req  *dto.UpdateRequest
	}{
		{name: "缺少 state", req: &dto.UpdateRequest{PostIDs: dto.PostIDs{Values: []int{1}, Present: true}}},
		{name: "缺少 post_ids", req: &dto.UpdateRequest{State: &state}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, dispatcher := newTestService(t)
			err := svc.Update(context.Background(), "whatever", tt.req)
			if !errors.Is(err, constant.ErrMissingUpdateFields) {
				t.Fatalf("err = %v, want ErrMissingUpdateFields", err)
			}
			if repo.callCount() != 0 || len(dispatcher.recomputes) != 0 {
				t.Error("store must not be touched")
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	svc, repo, dispatcher := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, validCreate(5), "", ""); err != nil {
		t.Fatal(err)
	}

	state := int(model.StatePending)
	content := "改过的内容"
	err := svc.Update(ctx, mustPublicID(t, 1), &dto.UpdateRequest{
		State:   &state,
		PostIDs: dto.PostIDs{Values: []int{9}, Present: true},
		Content: &content,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	stored := repo.comments[1]
	if stored.State != model.StatePending || stored.Content != content || stored.ContentHTML == "" {
		t.Errorf("stored = %+v", stored)
	}
	if got := dispatcher.lastRecompute(); !sameInts(got, []int{9, 5}) {
		t.Errorf("recompute targets = %v, want [9 5]", got)
	}

	bad := 5
	err = svc.Update(ctx, mustPublicID(t, 1), &dto.UpdateRequest{
		State:   &bad,
		PostIDs: dto.PostIDs{Present: true},
	})
	if !errors.Is(err, constant.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}

	err = svc.Update(ctx, mustPublicID(t, 99), &dto.UpdateRequest{
		State:   &state,
		PostIDs: dto.PostIDs{Present: true},
	})
	if !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc, repo, dispatcher := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, validCreate(4), "", ""); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, mustPublicID(t, 1), []int{4, 8}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.comments[1]; ok {
		t.Error("comment still present")
	}
	if got := dispatcher.lastRecompute(); !sameInts(got, []int{4, 8, 4}) {
		t.Errorf("recompute targets = %v, want [4 8 4]", got)
	}

	before := len(dispatcher.recomputes)
	if err := svc.Delete(ctx, mustPublicID(t, 1), nil); !errors.Is(err, constant.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "!!", nil); !errors.Is(err, constant.ErrInvalidCommentID) {
		t.Errorf("err = %v, want ErrInvalidCommentID", err)
	}
	if len(dispatcher.recomputes) != before {
		t.Error("failed delete must not dispatch recompute")
	}
}

func TestService_ListVisibility(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, validCreate(1), "10.0.0.1", ""); err != nil {
			t.Fatal(err)
		}
	}
	repo.comments[2].State = model.StatePending

	public, err := svc.List(ctx, &dto.ListRequest{State: "0"})
	if err != nil {
		t.Fatal(err)
	}
	if public.Pagination.Total != 2 || len(public.Data) != 2 {
		t.Errorf("visitor saw %d comments, want 2 published", len(public.Data))
	}
	for _, c := range public.Data {
		if c.Author.Email != nil || c.IP != nil {
			t.Error("visitor view leaked private fields")
		}
	}

	admin, err := svc.List(ctx, &dto.ListRequest{State: "0", Privileged: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(admin.Data) != 1 || admin.Data[0].State != int(model.StatePending) {
		t.Fatalf("admin pending list = %+v", admin.Data)
	}
	if admin.Data[0].Author.Email == nil || *admin.Data[0].Author.Email != "ming@example.com" {
		t.Error("admin view must include email")
	}
	if admin.Data[0].IP == nil || *admin.Data[0].IP != "10.0.0.1" {
		t.Error("admin view must include ip")
	}
	if admin.Pagination.CurrentPage != DefaultPage || admin.Pagination.PerPage != DefaultPageSize {
		t.Errorf("pagination = %+v", admin.Pagination)
	}
}
