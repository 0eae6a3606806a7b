/*
 * @Description: 清理远程抓取遗留的暂存文件
 * @Author: 安知鱼
 * @Date: 2025-07-10 15:23:10
 * @LastEditTime: 2025-10-16 19:05:51
 * @LastEditors: 安知鱼
 */
// internal/app/task/job_cleanup.go
package task

import (
	"context"
	"log"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/service/file"
)

// cleanupTimeout 是单次清理允许的最长时间
const cleanupTimeout = 5 * time.Minute

// CleanupStagingFilesJob 删除下载中断或进程崩溃后留在暂存目录的文件
type CleanupStagingFilesJob struct {
	fileSvc file.FileService
	maxAge  time.Duration
}

func NewCleanupStagingFilesJob(fileSvc file.FileService, maxAge time.Duration) *CleanupStagingFilesJob {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &CleanupStagingFilesJob{
		fileSvc: fileSvc,
		maxAge:  maxAge,
	}
}

// Run 是 Job 接口要求实现的方法
func (j *CleanupStagingFilesJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	removed, err := j.fileSvc.CleanupStaging(ctx, j.maxAge)
	if err != nil {
		log.Printf("任务 '%s' 执行出错: %v", j.Name(), err)
		return
	}
	log.Printf("任务 '%s' 执行完毕，共清理了 %d 个暂存文件。", j.Name(), removed)
}

// Name 让日志包装器可以打印出有意义的任务名
func (j *CleanupStagingFilesJob) Name() string {
	return "CleanupStagingFilesJob"
}
