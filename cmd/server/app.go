/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-10-17 10:35:28
 * @LastEditTime: 2026-10-15 00:21:47
 * @LastEditors: 安知鱼
 */
// anheyu-comment/cmd/server/app.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/anzhiyu-c/anheyu-comment/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-comment/internal/app/task"
	"github.com/anzhiyu-c/anheyu-comment/internal/infra/persistence/database"
	"github.com/anzhiyu-c/anheyu-comment/internal/infra/persistence/memory"
	"github.com/anzhiyu-c/anheyu-comment/internal/infra/persistence/sqlstore"
	"github.com/anzhiyu-c/anheyu-comment/internal/infra/router"
	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/metrics"
	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-comment/pkg/config"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/repository"
	comment_handler "github.com/anzhiyu-c/anheyu-comment/pkg/handler/comment"
	version_handler "github.com/anzhiyu-c/anheyu-comment/pkg/handler/version"
	"github.com/anzhiyu-c/anheyu-comment/pkg/idgen"
	comment_service "github.com/anzhiyu-c/anheyu-comment/pkg/service/comment"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/comment_count"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/notification"
	parser_service "github.com/anzhiyu-c/anheyu-comment/pkg/service/parser"
	"github.com/anzhiyu-c/anheyu-comment/pkg/service/utility"
)

// shutdownTimeout 是优雅关闭 HTTP 服务的最长等待时间
const shutdownTimeout = 5 * time.Second

// App 结构体，用于封装应用的所有核心组件
type App struct {
	cfg         *config.Config
	engine      *gin.Engine
	taskBroker  *task.Broker
	articleRepo repository.ArticleRepository
	articleSink repository.ArticleWriter
	cacheSvc    utility.CacheService
	commentSvc  *comment_service.Service
	countSvc    *comment_count.Service
	closers     []func()
}

func (a *App) PrintBanner() {
	log.Println("--------------------------------------------------------")
	log.Printf(" Anheyu Comment: %s", version.GetVersionString())
	log.Println("--------------------------------------------------------")
}

// NewApp 是应用的构造函数，它执行所有的初始化和依赖注入工作
func NewApp(cfg *config.Config) (*App, func(), error) {
	app := &App{cfg: cfg}
	cleanup := func() {
		for i := len(app.closers) - 1; i >= 0; i-- {
			app.closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// --- Phase 1: 公共ID编码器 ---
	if err := idgen.InitSqidsEncoderWithSeed(cfg.GetString(config.KeyIDSeed)); err != nil {
		return fail(err)
	}

	// --- Phase 2: 指标与日志 ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	logLevel := slog.LevelInfo
	if cfg.Debug() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	// --- Phase 3: 初始化基础设施 ---
	commentRepo, err := app.initStores(cfg)
	if err != nil {
		return fail(err)
	}

	redisClient := database.NewRedisClient(context.Background(), cfg)
	if redisClient != nil {
		app.closers = append(app.closers, func() {
			log.Println("关闭 Redis 连接...")
			redisClient.Close()
		})
	}
	app.cacheSvc = utility.NewCacheServiceWithFallback(redisClient)
	app.closers = append(app.closers, func() { app.cacheSvc.Close() })

	geoSvc, err := utility.NewGeoIPService(utility.GeoIPConfig{
		DBPath:   cfg.GetString(config.KeyGeoIPDBPath),
		APIURL:   cfg.GetString(config.KeyGeoIPAPIURL),
		APIToken: cfg.GetString(config.KeyGeoIPAPIToken),
	})
	if err != nil {
		return fail(fmt.Errorf("初始化IP属地服务失败: %w", err))
	}
	app.closers = append(app.closers, func() { geoSvc.Close() })

	emailSvc := utility.NewEmailService(utility.SMTPConfig{
		Host:        cfg.GetString(config.KeySmtpHost),
		Port:        cfg.GetString(config.KeySmtpPort),
		Username:    cfg.GetString(config.KeySmtpUsername),
		Password:    cfg.GetString(config.KeySmtpPassword),
		SenderName:  cfg.GetString(config.KeySmtpSenderName),
		SenderEmail: cfg.GetString(config.KeySmtpSenderEmail),
		ForceSSL:    cfg.GetBool(config.KeySmtpForceSSL),
	})

	// --- Phase 4: 业务服务与后台任务 ---
	app.countSvc = comment_count.NewService(commentRepo, app.articleRepo, logger, collector)
	notifySvc := notification.NewService(commentRepo, app.articleRepo, emailSvc, app.cacheSvc, notification.Config{
		SiteURL:           cfg.GetString(config.KeySiteURL),
		AboutPath:         cfg.GetString(config.KeySiteAboutPath),
		SiteName:          cfg.GetString(config.KeySiteName),
		OwnerEmail:        cfg.GetString(config.KeySiteOwnerEmail),
		PermalinkCacheTTL: cfg.GetDuration(config.KeyTaskCacheTTL),
	}, logger, collector)

	app.taskBroker = task.NewBroker(app.countSvc, notifySvc, task.BrokerOptions{
		Workers:       cfg.GetInt(config.KeyTaskWorkers),
		QueueSize:     cfg.GetInt(config.KeyTaskQueueSize),
		ReconcileSpec: cfg.GetString(config.KeyTaskReconcileSpec),
		Logger:        logger,
		Metrics:       collector,
	})
	app.closers = append(app.closers, func() {
		app.taskBroker.Stop()
		log.Println("任务调度器已停止。")
	})

	app.commentSvc = comment_service.NewService(commentRepo, geoSvc, parser_service.NewService(), app.taskBroker)

	// --- Phase 5: HTTP ---
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Cors(), middleware.Prometheus(collector))
	if cfg.Debug() {
		engine.Use(gin.Logger())
	}

	router.NewRouter(
		comment_handler.NewHandler(app.commentSvc),
		version_handler.NewHandler(),
		middleware.NewMiddleware(cfg.GetString(config.KeyJWTSecret)),
		metrics.Handler(registry),
		router.RateLimit{
			PerMinute: cfg.GetInt(config.KeyCommentRateLimit),
			Burst:     cfg.GetInt(config.KeyCommentRateBurst),
		},
	).Setup(engine)
	app.engine = engine

	if cfg.GetString(config.KeyJWTSecret) == "" {
		log.Println("⚠️  未配置 JWT.Secret，管理接口将拒绝所有请求")
	}

	return app, cleanup, nil
}

// initStores 根据 Database.Type 选择内存或 SQL 仓储
func (a *App) initStores(cfg *config.Config) (repository.CommentRepository, error) {
	if cfg.GetString(config.KeyDBType) == database.TypeMemory {
		log.Println("🔄 使用内存存储，重启后数据将丢失")
		comments, err := memory.NewCommentStore(1)
		if err != nil {
			return nil, err
		}
		articles := memory.NewArticleStore()
		a.articleRepo, a.articleSink = articles, articles
		return comments, nil
	}

	db, err := database.NewSQLDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建数据库连接池失败: %w", err)
	}
	a.closers = append(a.closers, func() {
		log.Println("执行清理操作：关闭数据库连接...")
		db.Close()
	})
	if err := database.Migrate(context.Background(), db); err != nil {
		return nil, err
	}

	articles := sqlstore.NewArticleRepo(db)
	a.articleRepo, a.articleSink = articles, articles
	return sqlstore.NewCommentRepo(db), nil
}

// Stop 停止后台任务，等待已投递的任务执行完毕
func (a *App) Stop() {
	if a.taskBroker != nil {
		a.taskBroker.Stop()
	}
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}

func (a *App) CommentService() *comment_service.Service {
	return a.commentSvc
}

// articleImport 是文章导入文件中的一条记录
type articleImport struct {
	ID    int    `json:"id"`
	Key   string `json:"key"`
	Title string `json:"title"`
}

// ImportArticles 从 JSON 文件导入文章（id、key、title），随后重算这些文章的评论数
func (a *App) ImportArticles(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("读取文章文件失败: %w", err)
	}
	var items []articleImport
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("解析文章文件失败: %w", err)
	}

	ids := make([]int, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 || item.Key == "" {
			log.Printf("[文章导入] 跳过无效记录: %+v", item)
			continue
		}
		if err := a.articleSink.Upsert(ctx, &model.Article{ID: item.ID, StorageKey: item.Key, Title: item.Title}); err != nil {
			return len(ids), err
		}
		ids = append(ids, item.ID)
		// 存储键可能变化，清掉旧的永久链接缓存
		if err := a.cacheSvc.Delete(ctx, notification.PermalinkCacheKey(item.ID)); err != nil {
			log.Printf("[文章导入] 清理文章 %d 的永久链接缓存失败: %v", item.ID, err)
		}
	}

	if err := a.countSvc.Recompute(ctx, ids); err != nil {
		log.Printf("[文章导入] 部分文章评论数重算失败: %v", err)
	}
	return len(ids), nil
}

// Run 启动后台任务与 HTTP 服务，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	if err := a.taskBroker.RegisterCronJobs(); err != nil {
		return err
	}
	a.taskBroker.Start()

	port := a.cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8091"
	}
	serv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Printf("应用程序启动成功，正在监听端口: %s", port)
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-groupCtx.Done()
		log.Println("正在关闭 HTTP 服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return serv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
