/*
 * @Description: 提供了用于 cron 任务的健壮的中间件（装饰器）。
 * @Author: 安知鱼
 * @Date: 2025-06-29 22:36:09
 * @LastEditTime: 2026-10-13 22:41:50
 * @LastEditors: 安知鱼
 */
package task

import (
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anzhiyu-c/anheyu-comment/internal/pkg/metrics"
)

// JobWrapper 是 cron.JobWrapper 的类型别名，用于简化代码。
type JobWrapper = cron.JobWrapper

// namedFuncJob 让装饰后的任务保留原任务的名称，外层装饰器才能取到正确的 job_name
type namedFuncJob struct {
	name string
	run  func()
}

func (j namedFuncJob) Run()         { j.run() }
func (j namedFuncJob) Name() string { return j.name }

// NewLoggingWrapper 创建一个日志装饰器。
// 它使用结构化日志记录每个任务的开始和结束，并包含一个唯一的执行ID，
// 使得日志更易于查询和分析。
func NewLoggingWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		jobName := getJobName(j)
		return namedFuncJob{name: jobName, run: func() {
			// 为本次执行生成一个唯一的ID，便于追踪
			executionID := uuid.New().String()

			// 为本次任务运行创建一个带有上下文信息的专属logger
			jobLogger := logger.With(
				slog.String("job_name", jobName),
				slog.String("execution_id", executionID),
			)

			startTime := time.Now()
			jobLogger.Info("Job execution started")

			j.Run()

			duration := time.Since(startTime)
			jobLogger.Info("Job execution finished", slog.Duration("duration", duration))
		}}
	}
}

// NewPanicRecoveryWrapper 创建一个健壮的 panic 恢复装饰器。
// 如果任务发生 panic，它会捕获 panic，使用结构化日志记录详细的错误信息和堆栈，
// 但不会导致整个应用程序崩溃。collector 可为 nil。
func NewPanicRecoveryWrapper(logger *slog.Logger, collector *metrics.Collector) JobWrapper {
	return func(j cron.Job) cron.Job {
		jobName := getJobName(j)
		return namedFuncJob{name: jobName, run: func() {
			defer func() {
				if r := recover(); r != nil {
					collector.RecordJobPanic(jobName)
					// 使用结构化日志记录 panic，便于告警和分析
					logger.Error("Job panicked",
						slog.String("job_name", jobName),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()

			j.Run()
		}}
	}
}

// NewMetricsWrapper 记录任务完成次数与耗时，发生 panic 的任务不计入完成
func NewMetricsWrapper(collector *metrics.Collector) JobWrapper {
	return func(j cron.Job) cron.Job {
		jobName := getJobName(j)
		return namedFuncJob{name: jobName, run: func() {
			start := time.Now()
			j.Run()
			collector.RecordJobFinished(jobName, time.Since(start))
		}}
	}
}

// getJobName 是一个辅助函数，用于从 cron.Job 接口中获取具体的类型名。
// 它优先使用任务自定义的 Name() 方法，如果不存在，则通过反射获取其结构体名称。
func getJobName(j cron.Job) string {
	if namedJob, ok := j.(interface{ Name() string }); ok {
		return namedJob.Name()
	}

	// 例如，对于 *task.MyJob 类型，它会返回 "task.MyJob"
	jobType := reflect.TypeOf(j)
	if jobType.Kind() == reflect.Ptr {
		return jobType.Elem().String()
	}
	return jobType.String()
}
