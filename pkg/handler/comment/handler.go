// pkg/handler/comment/handler.go
package comment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/anzhiyu-c/anheyu-comment/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-comment/pkg/handler/comment/dto"
	"github.com/anzhiyu-c/anheyu-comment/pkg/response"
	"github.com/anzhiyu-c/anheyu-comment/pkg/util"

	"github.com/gin-gonic/gin"
)

// Service 是评论处理器依赖的业务能力，由 pkg/service/comment.Service 实现
type Service interface {
	List(ctx context.Context, req *dto.ListRequest) (*dto.ListResponse, error)
	Create(ctx context.Context, req *dto.CreateRequest, ip, ua string) (*dto.Response, error)
	Update(ctx context.Context, publicID string, req *dto.UpdateRequest) error
	Delete(ctx context.Context, publicID string, postIDs []int) error
}

var errInvalidPostID = errors.New("post_id 必须是整数")

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// List
// @Summary      获取评论列表（分页）
// @Description  访客只能看到已发布的评论；携带管理员 Token 时可按状态筛选并看到邮箱与IP
// @Tags         评论
// @Produce      json
// @Param        current_page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Param        keyword query string false "在内容、昵称、邮箱中搜索"
// @Param        post_id query int false "文章编号，0 表示关于页"
// @Param        state query string false "状态 0/1/2，仅管理员生效"
// @Param        sort query int false "1 最早，-1 最新，2 最多点赞" default(-1)
// @Success      200 {object} response.Response{data=dto.ListResponse} "成功响应"
// @Failure      400 {object} response.Response "请求参数错误"
// @Failure      500 {object} response.Response "服务器内部错误"
// @Router       /comments [get]
func (h *Handler) List(c *gin.Context) {
	req, err := parseListRequest(c)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		response.FailWithError(c, err, "获取评论列表失败")
		return
	}

	response.Success(c, resp, "获取成功")
}

// Create
// @Summary      发表评论
// @Tags         评论
// @Accept       json
// @Produce      json
// @Param        body body dto.CreateRequest true "评论内容"
// @Success      201 {object} response.Response{data=dto.Response} "成功响应"
// @Failure      400 {object} response.Response "请求参数错误"
// @Failure      429 {object} response.Response "提交过于频繁"
// @Failure      500 {object} response.Response "服务器内部错误"
// @Router       /comments [post]
func (h *Handler) Create(c *gin.Context) {
	var req dto.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	ip := util.GetRealClientIP(c)
	ua := c.Request.UserAgent()

	commentDTO, err := h.svc.Create(c.Request.Context(), &req, ip, ua)
	if err != nil {
		response.FailWithError(c, err, "创建评论失败")
		return
	}

	response.SuccessWithStatus(c, http.StatusCreated, commentDTO, "评论发布成功")
}

// Update
// @Summary      修改评论
// @Description  state 与 post_ids 必填，author 与 content 可选
// @Tags         评论管理
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "评论公共ID"
// @Param        body body dto.UpdateRequest true "修改内容"
// @Success      200 {object} response.Response "成功响应"
// @Failure      400 {object} response.Response "请求参数错误"
// @Failure      401 {object} response.Response "未授权"
// @Failure      404 {object} response.Response "评论不存在"
// @Failure      500 {object} response.Response "服务器内部错误"
// @Router       /comments/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	var req dto.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	if err := h.svc.Update(c.Request.Context(), c.Param("id"), &req); err != nil {
		response.FailWithError(c, err, "修改评论失败")
		return
	}

	response.Success(c, nil, "修改成功")
}

// Delete
// @Summary      删除评论
// @Tags         评论管理
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "评论公共ID"
// @Param        post_ids query []int false "需要重算评论数的文章编号，可重复或逗号分隔"
// @Success      200 {object} response.Response "成功响应"
// @Failure      400 {object} response.Response "请求参数错误"
// @Failure      401 {object} response.Response "未授权"
// @Failure      404 {object} response.Response "评论不存在"
// @Failure      500 {object} response.Response "服务器内部错误"
// @Router       /comments/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	postIDs := parsePostIDs(c.QueryArray("post_ids"))

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), postIDs); err != nil {
		response.FailWithError(c, err, "删除评论失败")
		return
	}

	response.Success(c, nil, "删除成功")
}

// parseListRequest 解析列表查询参数。sort 无法解析时按最新优先处理，
// post_id 出现但不是整数时视为请求错误。
func parseListRequest(c *gin.Context) (*dto.ListRequest, error) {
	req := &dto.ListRequest{
		Keyword:    c.Query("keyword"),
		State:      c.Query("state"),
		Sort:       -1,
		Privileged: middleware.IsPrivileged(c),
	}
	req.CurrentPage, _ = strconv.Atoi(c.Query("current_page"))
	req.PageSize, _ = strconv.Atoi(c.Query("page_size"))

	if raw, ok := c.GetQuery("sort"); ok {
		if sort, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			req.Sort = sort
		}
	}

	if raw, ok := c.GetQuery("post_id"); ok {
		postID, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, errInvalidPostID
		}
		req.PostID = &postID
	}
	return req, nil
}

// parsePostIDs 兼容 ?post_ids=1&post_ids=2 与 ?post_ids=1,2 两种写法，忽略无法解析的值
func parsePostIDs(values []string) []int {
	var ids []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
