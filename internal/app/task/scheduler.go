/*
 * @Description: 定时任务调度器
 * @Author: 安知鱼
 * @Date: 2025-07-12 16:09:46
 * @LastEditTime: 2025-10-16 19:02:18
 * @LastEditors: 安知鱼
 */
package task

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/service/file"

	"github.com/robfig/cron/v3"
)

// Scheduler 封装了 cron 实例和其依赖，负责任务的注册、启动和停止。
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	fileSvc       file.FileService
	cleanupSpec   string
	stagingMaxAge time.Duration
}

// NewScheduler 是 Scheduler 的构造函数。
// cleanupSpec 支持六段式表达式（带秒）和 @every 之类的描述符。
func NewScheduler(fileSvc file.FileService, cleanupSpec string, stagingMaxAge time.Duration) *Scheduler {
	slogHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(slogHandler).With("system", "cron")

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			NewPanicRecoveryWrapper(logger),
			NewLoggingWrapper(logger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)

	return &Scheduler{
		cron:          c,
		logger:        logger,
		fileSvc:       fileSvc,
		cleanupSpec:   cleanupSpec,
		stagingMaxAge: stagingMaxAge,
	}
}

// RegisterJobs 在调度器中注册所有定时任务。
func (s *Scheduler) RegisterJobs() error {
	s.logger.Info("Registering all periodic jobs...")

	cleanupJob := NewCleanupStagingFilesJob(s.fileSvc, s.stagingMaxAge)
	if _, err := s.cron.AddJob(s.cleanupSpec, cleanupJob); err != nil {
		s.logger.Error("Failed to add job", slog.String("job_name", cleanupJob.Name()), slog.Any("error", err))
		return fmt.Errorf("注册任务 %s 失败: %w", cleanupJob.Name(), err)
	}
	s.logger.Info("-> Successfully registered job", "job_name", cleanupJob.Name(), "schedule", s.cleanupSpec)

	s.logger.Info("All periodic jobs registered.")
	return nil
}

// Start 启动 cron 调度器。
func (s *Scheduler) Start() {
	s.logger.Info("Cron scheduler started.")
	s.cron.Start()
}

// Stop 停止调度器并等待正在运行的任务结束。
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler gracefully stopped.")
}
