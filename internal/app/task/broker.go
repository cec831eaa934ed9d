// internal/app/task/broker.go
package task

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/metrics"
	"github.com/anzhiyu-c/anheyu-comment/pkg/domain/model"
)

// 任务投递方式，用于指标
const (
	dispatchQueued   = "queued"
	dispatchOverflow = "overflow"
)

// BrokerOptions 是 Broker 的可选配置
type BrokerOptions struct {
	Workers       int    // worker 数量，<=0 时使用 CPU 核数
	QueueSize     int    // 队列长度，<=0 时使用 1000
	ReconcileSpec string // 评论数对账的 cron 表达式（带秒），为空时不注册
	Logger        *slog.Logger
	Metrics       *metrics.Collector
}

// Broker 是整个后台任务模块的核心协调者。
// 请求链路通过它投递任务，投递永远不会阻塞调用方。
type Broker struct {
	cron          *cron.Cron
	logger        *slog.Logger
	metrics       *metrics.Collector
	jobQueue      chan Job
	workers       int
	reconcileSpec string

	recomputer CommentCountRecomputer
	notifier   CommentNotifier

	// mu 保护 closed 与 jobQueue 的关闭，running 跟踪所有在途任务
	mu      sync.RWMutex
	closed  bool
	running sync.WaitGroup
}

// NewBroker 是 Broker 的构造函数，worker 池随之启动。
func NewBroker(recomputer CommentCountRecomputer, notifier CommentNotifier, opts BrokerOptions) *Broker {
	logger := opts.Logger
	if logger == nil {
		slogHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
		logger = slog.New(slogHandler)
	}
	logger = logger.With("system", "task_broker")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.DelayIfStillRunning(cron.DefaultLogger),
			NewPanicRecoveryWrapper(logger, opts.Metrics),
			NewLoggingWrapper(logger),
			NewMetricsWrapper(opts.Metrics),
		),
	)

	broker := &Broker{
		cron:          c,
		logger:        logger,
		metrics:       opts.Metrics,
		jobQueue:      make(chan Job, queueSize),
		workers:       workers,
		reconcileSpec: opts.ReconcileSpec,
		recomputer:    recomputer,
		notifier:      notifier,
	}

	broker.startWorkerPool()

	return broker
}

// wrap 为直接投递的任务套上与 cron 任务相同的装饰器
func (b *Broker) wrap(job Job) cron.Job {
	return cron.NewChain(
		NewPanicRecoveryWrapper(b.logger, b.metrics),
		NewLoggingWrapper(b.logger),
		NewMetricsWrapper(b.metrics),
	).Then(job)
}

// startWorkerPool 启动固定数量的 worker goroutine 来处理任务。
func (b *Broker) startWorkerPool() {
	b.logger.Info("Starting task worker pool", "concurrency", b.workers)

	for i := 0; i < b.workers; i++ {
		workerID := i + 1
		go func() {
			for job := range b.jobQueue {
				b.wrap(job).Run()
				b.running.Done()
			}
			b.logger.Debug("Worker stopped", "worker_id", workerID)
		}()
	}
}

// Dispatch 将任务发送到队列中。队列已满时任务在独立的 goroutine 中执行，
// Broker 停止后投递的任务会被丢弃并记录日志。
func (b *Broker) Dispatch(job Job) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("Task broker stopped, job dropped", "job_name", job.Name())
		return
	}

	b.running.Add(1)
	select {
	case b.jobQueue <- job:
		b.metrics.RecordJobDispatched(job.Name(), dispatchQueued)
	default:
		b.metrics.RecordJobDispatched(job.Name(), dispatchOverflow)
		b.logger.Warn("Job queue is full, running job on a dedicated goroutine", "job_name", job.Name())
		go func() {
			defer b.running.Done()
			b.wrap(job).Run()
		}()
	}
}

// DispatchCommentCountRecompute 派发评论数重算任务。
func (b *Broker) DispatchCommentCountRecompute(postIDs []int) {
	b.Dispatch(NewCommentCountRecomputeJob(b.recomputer, postIDs, b.logger))
	b.logger.Debug("Queued comment count recompute job", "post_ids", postIDs)
}

// DispatchCommentNotification 派发评论通知任务。
func (b *Broker) DispatchCommentNotification(comment *model.Comment) {
	if comment == nil {
		return
	}
	b.Dispatch(NewCommentNotificationJob(b.notifier, comment, b.logger))
	b.logger.Debug("Queued comment notification job", "comment_id", comment.ID)
}

// RegisterCronJobs 注册所有周期性任务。
func (b *Broker) RegisterCronJobs() error {
	if b.reconcileSpec == "" {
		b.logger.Info("Comment count reconcile job disabled")
		return nil
	}

	job := NewCommentCountReconcileJob(b.recomputer, b.logger)
	if _, err := b.cron.AddJob(b.reconcileSpec, job); err != nil {
		return fmt.Errorf("注册评论数对账任务失败 (spec=%q): %w", b.reconcileSpec, err)
	}
	b.logger.Info("-> Successfully registered 'CommentCountReconcileJob'", "schedule", b.reconcileSpec)
	return nil
}

// Start 启动 cron 调度器。
func (b *Broker) Start() {
	b.logger.Info("Task broker started.")
	b.cron.Start()
}

// Stop 优雅地停止 cron 调度器，并等待所有已投递的任务执行完毕。可重复调用。
func (b *Broker) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.jobQueue)
	b.mu.Unlock()

	b.logger.Info("Stopping task broker...")
	ctx := b.cron.Stop()
	<-ctx.Done()
	b.running.Wait()
	b.logger.Info("Task broker gracefully stopped.")
}
