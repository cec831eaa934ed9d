/*
 * @Description: 新评论通知：解析永久链接，通知站长和被回复者
 * @Author: 安知鱼
 * @Date: 2025-10-12
 * @LastEditTime: 2026-10-13 22:18:05
 * @LastEditors: 安知鱼
 */
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/metrics"
	"github.com/anzhiyu-c/anheyu-comment/pkg/constant"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/utility"
)

// PermalinkCache 缓存文章编号到存储键的映射，未命中时 Get 返回空字符串
type PermalinkCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// 邮件类型，用于日志与指标
const (
	KindOwner = "owner"
	KindReply = "reply"
)

// Config 是通知所需的站点配置
type Config struct {
	SiteURL    string // 站点根地址，例如 https://anheyu.com
	AboutPath  string // 关于页路径，post_id 为 0 的留言指向这里
	SiteName   string
	OwnerEmail string
	// PermalinkCacheTTL 文章存储键的缓存时间，<=0 时不缓存
	PermalinkCacheTTL time.Duration
}

// Service 在评论创建成功后发送通知，所有发送都是尽力而为的。
type Service struct {
	commentRepo repository.CommentRepository
	articleRepo repository.ArticleRepository
	emailSvc    utility.EmailService
	cacheSvc    PermalinkCache
	cfg         Config
	logger      *slog.Logger
	metrics     *metrics.Collector
}

// NewService 创建通知服务，cacheSvc、logger 与 collector 均可为 nil
func NewService(
	commentRepo repository.CommentRepository,
	articleRepo repository.ArticleRepository,
	emailSvc utility.EmailService,
	cacheSvc PermalinkCache,
	cfg Config,
	logger *slog.Logger,
	collector *metrics.Collector,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.SiteURL = strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/")
	if cfg.AboutPath != "" && !strings.HasPrefix(cfg.AboutPath, "/") {
		cfg.AboutPath = "/" + cfg.AboutPath
	}
	return &Service{
		commentRepo: commentRepo,
		articleRepo: articleRepo,
		emailSvc:    emailSvc,
		cacheSvc:    cacheSvc,
		cfg:         cfg,
		logger:      logger.With("component", "notification"),
		metrics:     collector,
	}
}

// PermalinkCacheKey 返回文章永久链接的缓存键
func PermalinkCacheKey(postID int) string {
	return fmt.Sprintf("comment:permalink:article:%d", postID)
}

// ResolvePermalink 计算评论所在页面的永久链接。
// 关于页返回固定地址；文章不存在或查询出错时返回空字符串，不视为错误。
func (s *Service) ResolvePermalink(ctx context.Context, postID int) string {
	if postID == model.AboutPostID {
		return s.cfg.SiteURL + s.cfg.AboutPath
	}

	storageKey := s.cachedStorageKey(ctx, postID)
	if storageKey == "" {
		article, err := s.articleRepo.FindByID(ctx, postID)
		if err != nil {
			if !errors.Is(err, constant.ErrNotFound) {
				s.logger.Warn("查询文章失败，永久链接置空", "post_id", postID, "error", err)
			}
			return ""
		}
		storageKey = article.StorageKey
		if storageKey == "" {
			return ""
		}
		s.cacheStorageKey(ctx, postID, storageKey)
	}
	return fmt.Sprintf("%s/article/%s", s.cfg.SiteURL, storageKey)
}

func (s *Service) cachedStorageKey(ctx context.Context, postID int) string {
	if s.cacheSvc == nil || s.cfg.PermalinkCacheTTL <= 0 {
		return ""
	}
	key, err := s.cacheSvc.Get(ctx, PermalinkCacheKey(postID))
	if err != nil {
		s.logger.Warn("读取永久链接缓存失败", "post_id", postID, "error", err)
		return ""
	}
	return key
}

func (s *Service) cacheStorageKey(ctx context.Context, postID int, storageKey string) {
	if s.cacheSvc == nil || s.cfg.PermalinkCacheTTL <= 0 {
		return
	}
	if err := s.cacheSvc.Set(ctx, PermalinkCacheKey(postID), storageKey, s.cfg.PermalinkCacheTTL); err != nil {
		s.logger.Warn("写入永久链接缓存失败", "post_id", postID, "error", err)
	}
}

// NotifyNewComment 通知站长有新评论；若是回复，再通知父评论作者。
// 两路发送并行进行，失败只记录日志。
func (s *Service) NotifyNewComment(ctx context.Context, comment *model.Comment) {
	if comment == nil {
		return
	}
	permalink := s.ResolvePermalink(ctx, comment.PostID)

	var wg conc.WaitGroup
	wg.Go(func() { s.notifyOwner(ctx, comment, permalink) })
	if comment.IsReply() {
		wg.Go(func() { s.notifyParentAuthor(ctx, comment, permalink) })
	}
	wg.Wait()
}

func (s *Service) notifyOwner(ctx context.Context, comment *model.Comment, permalink string) {
	to := strings.TrimSpace(s.cfg.OwnerEmail)
	if to == "" {
		s.logger.Warn("站长邮箱未配置，跳过新评论通知", "comment_id", comment.ID)
		return
	}
	msg, err := s.buildMessage(ownerTemplates, to, comment, permalink)
	if err != nil {
		s.logger.Error("渲染站长通知邮件失败", "comment_id", comment.ID, "error", err)
		return
	}
	s.send(ctx, KindOwner, comment.ID, msg)
}

func (s *Service) notifyParentAuthor(ctx context.Context, comment *model.Comment, permalink string) {
	parent, err := s.commentRepo.FindByID(ctx, *comment.ParentID)
	if err != nil {
		if errors.Is(err, constant.ErrNotFound) {
			s.logger.Info("父评论不存在，跳过回复通知", "comment_id", comment.ID, "parent_id", *comment.ParentID)
		} else {
			s.logger.Warn("查询父评论失败，跳过回复通知", "comment_id", comment.ID, "parent_id", *comment.ParentID, "error", err)
		}
		return
	}

	to := strings.TrimSpace(parent.Author.Email)
	if to == "" {
		s.logger.Info("父评论作者没有邮箱，跳过回复通知", "comment_id", comment.ID, "parent_id", parent.ID)
		return
	}
	msg, err := s.buildMessage(replyTemplates, to, comment, permalink)
	if err != nil {
		s.logger.Error("渲染回复通知邮件失败", "comment_id", comment.ID, "error", err)
		return
	}
	s.send(ctx, KindReply, comment.ID, msg)
}

func (s *Service) send(ctx context.Context, kind string, commentID uint, msg *utility.Message) {
	err := s.emailSvc.Send(ctx, msg)
	s.metrics.RecordEmail(kind, err)
	if err != nil {
		s.logger.Error("发送通知邮件失败", "kind", kind, "comment_id", commentID, "to", msg.To, "error", err)
		return
	}
	s.logger.Info("通知邮件已发送", "kind", kind, "comment_id", commentID, "to", msg.To)
}
