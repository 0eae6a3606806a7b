/*
 * @Description: cron 任务的装饰器
 * @Author: 安知鱼
 * @Date: 2025-06-29 22:36:09
 * @LastEditTime: 2025-10-16 19:08:40
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
)

// JobWrapper 是 cron.JobWrapper 的类型别名
type JobWrapper = cron.JobWrapper

// NewLoggingWrapper 为每次执行生成唯一的 execution_id，记录开始、结束和耗时
func NewLoggingWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		jobName := getJobName(j)
		return cron.FuncJob(func() {
			jobLogger := logger.With(
				slog.String("job_name", jobName),
				slog.String("execution_id", uuid.NewString()),
			)

			startTime := time.Now()
			jobLogger.Info("Job execution started")
			j.Run()
			jobLogger.Info("Job execution finished", slog.Duration("duration", time.Since(startTime)))
		})
	}
}

// NewPanicRecoveryWrapper 捕获任务中的 panic 并记录堆栈，调度器继续运行
func NewPanicRecoveryWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		jobName := getJobName(j)
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Job panicked",
						slog.String("job_name", jobName),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()
			j.Run()
		})
	}
}

// getJobName 优先使用任务的 Name() 方法，否则取其类型名，例如 "task.MyJob"
func getJobName(j cron.Job) string {
	if namedJob, ok := j.(interface{ Name() string }); ok {
		return namedJob.Name()
	}
	jobType := reflect.TypeOf(j)
	if jobType.Kind() == reflect.Ptr {
		return jobType.Elem().String()
	}
	return jobType.String()
}
