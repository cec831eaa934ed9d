/*
 * @Description: 评论的列表、发布、修改、删除
 * @Author: 安知鱼
 * @Date: 2025-08-11 18:02:17
 * @LastEditTime: 2026-10-14 20:31:09
 * @LastEditors: 安知鱼
 */
// pkg/service/comment/service.go
package comment

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
	"github.com/anzhiyu-c/anheyu-comment/pkg/handler/comment/dto"
	"github.com/anzhiyu-c/anheyu-comment/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/parser"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/utility"
)

// TaskDispatcher 把评论变更后的后续工作交给后台执行，两个方法都必须立即返回。
type TaskDispatcher interface {
	DispatchCommentCountRecompute(postIDs []int)
	DispatchCommentNotification(comment *model.Comment)
}

// Service 评论服务的核心业务逻辑。
type Service struct {
	repo       repository.CommentRepository
	geoService utility.GeoIPService
	parserSvc  *parser.Service
	dispatcher TaskDispatcher
}

// NewService 创建一个新的评论服务实例。
func NewService(
	repo repository.CommentRepository,
	geoService utility.GeoIPService,
	parserSvc *parser.Service,
	dispatcher TaskDispatcher,
) *Service {
	return &Service{
		repo:       repo,
		geoService: geoService,
		parserSvc:  parserSvc,
		dispatcher: dispatcher,
	}
}

// List 分页查询评论，非管理员只能看到已发布的评论。
func (s *Service) List(ctx context.Context, req *dto.ListRequest) (*dto.ListResponse, error) {
	query := BuildListQuery(req)

	result, err := s.repo.List(ctx, query)
	if err != nil {
		log.Printf("[评论列表] 查询失败: %v", err)
		return nil, fmt.Errorf("获取评论列表失败: %w", err)
	}

	data := make([]*dto.Response, 0, len(result.Items))
	for _, c := range result.Items {
		data = append(data, s.toResponseDTO(c, req.Privileged))
	}

	return &dto.ListResponse{
		Pagination: dto.Pagination{
			Total:       result.Total,
			CurrentPage: query.Page,
			TotalPage:   result.Pages,
			PerPage:     query.PageSize,
		},
		Data: data,
	}, nil
}

// Create 发布一条评论。写入成功后立即返回，评论数重算和邮件通知交给后台执行；
// 写入失败时不触发任何后续工作。
func (s *Service) Create(ctx context.Context, req *dto.CreateRequest, ip, ua string) (*dto.Response, error) {
	author, err := validateAuthor(req.Author.Value)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: 评论内容不能为空", constant.ErrBadRequest)
	}

	var parentID *uint
	if req.PID != nil && strings.TrimSpace(*req.PID) != "" {
		pid, err := idgen.DecodeCommentID(strings.TrimSpace(*req.PID))
		if err != nil {
			return nil, fmt.Errorf("%w: pid", constant.ErrInvalidCommentID)
		}
		parentID = &pid
	}

	agent := ua
	if agent == "" {
		agent = req.Agent
	}

	params := &repository.CreateCommentParams{
		PostID:      req.PostID,
		ParentID:    parentID,
		Author:      *author,
		Content:     content,
		ContentHTML: s.renderContent(ctx, content),
		State:       model.StatePublished,
		Likes:       0,
		IP:          ip,
		Agent:       agent,
	}
	if loc := s.lookupLocation(ctx, ip); loc != nil {
		params.City = loc.City
		params.Country = loc.Country
		params.Range = loc.Range
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		log.Printf("[发布评论] 写入失败: %v", err)
		return nil, fmt.Errorf("发布评论失败: %w", err)
	}

	s.dispatcher.DispatchCommentCountRecompute([]int{created.PostID})
	s.dispatcher.DispatchCommentNotification(created)

	return s.toResponseDTO(created, false), nil
}

// Update 修改评论。state 与 post_ids 缺失时直接拒绝，不访问存储。
// 重算目标是调用方给出的 post_ids 与评论自身 post_id 的并集。
func (s *Service) Update(ctx context.Context, publicID string, req *dto.UpdateRequest) error {
	if req.State == nil || !req.PostIDs.Present {
		return constant.ErrMissingUpdateFields
	}
	state := model.State(*req.State)
	if !state.IsValid() {
		return constant.ErrInvalidState
	}

	params := &repository.UpdateCommentParams{State: &state}
	if req.Author.Value != nil {
		author, err := validateAuthor(req.Author.Value)
		if err != nil {
			return err
		}
		params.Author = author
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			return fmt.Errorf("%w: 评论内容不能为空", constant.ErrBadRequest)
		}
		contentHTML := s.renderContent(ctx, content)
		params.Content = &content
		params.ContentHTML = &contentHTML
	}

	id, err := idgen.DecodeCommentID(publicID)
	if err != nil {
		return constant.ErrInvalidCommentID
	}

	updated, err := s.repo.UpdateByID(ctx, id, params)
	if err != nil {
		return fmt.Errorf("修改评论失败: %w", err)
	}

	s.dispatcher.DispatchCommentCountRecompute(recomputeTargets(req.PostIDs.Values, updated.PostID))
	return nil
}

// Delete 删除评论，重算目标是调用方给出的 post_ids 与被删评论自身 post_id 的并集。
func (s *Service) Delete(ctx context.Context, publicID string, postIDs []int) error {
	id, err := idgen.DecodeCommentID(publicID)
	if err != nil {
		return constant.ErrInvalidCommentID
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("删除评论失败: %w", err)
	}

	s.dispatcher.DispatchCommentCountRecompute(recomputeTargets(postIDs, deleted.PostID))
	return nil
}

func recomputeTargets(callerIDs []int, ownPostID int) []int {
	targets := make([]int, 0, len(callerIDs)+1)
	targets = append(targets, callerIDs...)
	return append(targets, ownPostID)
}

// validateAuthor 要求昵称与邮箱都不为空
func validateAuthor(author *model.Author) (*model.Author, error) {
	if author == nil {
		return nil, fmt.Errorf("%w: 缺少 author", constant.ErrInvalidAuthor)
	}
	a := model.Author{
		Name:  strings.TrimSpace(author.Name),
		Email: strings.TrimSpace(author.Email),
		Site:  strings.TrimSpace(author.Site),
	}
	if a.Name == "" || a.Email == "" {
		return nil, fmt.Errorf("%w: 昵称和邮箱不能为空", constant.ErrInvalidAuthor)
	}
	return &a, nil
}

// renderContent 渲染失败时退回空字符串，展示层会使用原文
func (s *Service) renderContent(ctx context.Context, content string) string {
	if s.parserSvc == nil {
		return ""
	}
	html, err := s.parserSvc.ToHTML(ctx, content)
	if err != nil {
		log.Printf("[WARNING] 解析评论内容失败，将只保存原文: %v", err)
		return ""
	}
	return html
}

// lookupLocation 查询失败不影响发布
func (s *Service) lookupLocation(ctx context.Context, ip string) *model.GeoLocation {
	if s.geoService == nil || ip == "" {
		return nil
	}
	loc, err := s.geoService.Lookup(ctx, ip)
	if err != nil {
		log.Printf("[IP属地查询] IP: %s 查询失败: %v", ip, err)
		return nil
	}
	return loc
}

func (s *Service) toResponseDTO(c *model.Comment, isAdminView bool) *dto.Response {
	publicID, err := idgen.GeneratePublicID(c.ID, idgen.EntityTypeComment)
	if err != nil {
		log.Printf("[评论] 生成公共ID失败 (id=%d): %v", c.ID, err)
	}

	resp := &dto.Response{
		ID:          publicID,
		PostID:      c.PostID,
		Author:      dto.AuthorResponse{Name: c.Author.Name, Site: c.Author.Site},
		Content:     c.Content,
		ContentHTML: c.ContentHTML,
		State:       int(c.State),
		Likes:       c.Likes,
		Agent:       c.Agent,
		City:        c.City,
		Country:     c.Country,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.IsReply() {
		if pid, err := idgen.GeneratePublicID(*c.ParentID, idgen.EntityTypeComment); err == nil {
			resp.PID = &pid
		}
	}
	if isAdminView {
		email, ip, ipRange := c.Author.Email, c.IP, c.Range
		resp.Author.Email = &email
		resp.IP = &ip
		resp.Range = &ipRange
	}
	return resp
}
