/*
 * @Description: 应用装配与生命周期
 * @Author: 安知鱼
 * @Date: 2025-10-17 10:35:28
 * @LastEditTime: 2025-10-16 19:30:02
 * @LastEditors: 安知鱼
 */
// anheyu-docs/cmd/server/app.go
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-docs/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-docs/internal/app/task"
	"github.com/anzhiyu-c/anheyu-docs/internal/infra/cache"
	"github.com/anzhiyu-c/anheyu-docs/internal/infra/router"
	"github.com/anzhiyu-c/anheyu-docs/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-docs/pkg/config"
	editor_handler "github.com/anzhiyu-c/anheyu-docs/pkg/handler/editor"
	file_handler "github.com/anzhiyu-c/anheyu-docs/pkg/handler/file"
	version_handler "github.com/anzhiyu-c/anheyu-docs/pkg/handler/version"
	"github.com/anzhiyu-c/anheyu-docs/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/converter"
	editor_service "github.com/anzhiyu-c/anheyu-docs/pkg/service/editor"
	file_service "github.com/anzhiyu-c/anheyu-docs/pkg/service/file"
	history_service "github.com/anzhiyu-c/anheyu-docs/pkg/service/history"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/utility"
)

// stagingMaxAge 是暂存文件被视为遗留文件的年龄
const stagingMaxAge = time.Hour

// App 结构体，用于封装应用的所有核心组件
type App struct {
	cfg       *config.Config
	settings  *config.DocumentSettings
	engine    *gin.Engine
	server    *http.Server
	scheduler *task.Scheduler
	fileSvc   file_service.FileService
}

// PrintBanner 打印启动信息
func (a *App) PrintBanner() {
	log.Println("--------------------------------------------------------")
	log.Printf(" Anheyu Docs - Version: %s", version.GetVersionString())
	log.Printf(" 文档服务器: %s", a.settings.DocServerURL)
	log.Printf(" 存储目录: %s", a.settings.StorageRoot)
	log.Println("--------------------------------------------------------")
}

// NewApp 是应用的构造函数，它执行所有的初始化和依赖注入工作
func NewApp() (*App, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	settings := config.NewDocumentSettings(cfg)

	if !cfg.GetBool(config.KeyServerDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := idgen.InitSqidsEncoderWithSeed(cfg.GetString(config.KeyServerIDSeed)); err != nil {
		return nil, nil, fmt.Errorf("初始化修订键编码器失败: %w", err)
	}

	if err := os.MkdirAll(settings.StorageRoot, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("创建存储目录 %s 失败: %w", settings.StorageRoot, err)
	}

	redisClient := cache.NewRedisClient(context.Background(), cfg)
	cacheSvc := utility.NewProgressCache(context.Background(), redisClient)
	log.Printf("转换进度缓存: %s", utility.BackendOf(cacheSvc))

	cleanup := func() {
		log.Println("执行清理操作：关闭 Redis 连接...")
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	signer := auth.NewTokenSigner(settings.Secret)
	if signer.Enabled() {
		log.Println("🔐 已启用文档服务器 JWT 签名")
	}

	store := storage.NewLocalStorage(settings.StorageRoot, settings.TempDir, settings.PublicURL)
	converterClient := converter.NewClient(settings.ConverterURL, signer, settings.SecretHeader, settings.Timeout)
	fetcher := file_service.NewHTTPFetcher(settings.Timeout)

	fileSvc := file_service.NewFileService(settings, store, converterClient, fetcher, signer, cacheSvc)
	editorSvc := editor_service.NewEditorService(settings, signer, store)
	historySvc := history_service.NewHistoryService(store, signer)

	appRouter := router.NewRouter(
		file_handler.NewHandler(fileSvc, settings),
		editor_handler.NewHandler(editorSvc, historySvc, settings),
		version_handler.NewHandler(),
		settings.StorageRoot,
	)

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.Cors(settings.SecretHeader))
	// 上传表单在内存中最多保留的字节数，超出部分写入临时文件
	engine.MaxMultipartMemory = settings.MaxFileSize + 1<<20
	appRouter.Setup(engine)

	scheduler := task.NewScheduler(fileSvc, cfg.GetString(config.KeyTaskTempCleanupCron), stagingMaxAge)
	if err := scheduler.RegisterJobs(); err != nil {
		cleanup()
		return nil, nil, err
	}

	app := &App{
		cfg:       cfg,
		settings:  settings,
		engine:    engine,
		server:    newHTTPServer(cfg.GetString(config.KeyServerPort), engine),
		scheduler: scheduler,
		fileSvc:   fileSvc,
	}
	return app, cleanup, nil
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}

func (a *App) FileService() file_service.FileService {
	return a.fileSvc
}

// newHTTPServer 在装配阶段就建好，Stop 与 Run 并发调用时读到的是同一个实例
func newHTTPServer(port string, handler http.Handler) *http.Server {
	if port == "" {
		port = "8092"
	}
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run 启动定时任务并开始监听，直到服务器关闭
func (a *App) Run() error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	fmt.Printf("应用程序启动成功，正在监听地址: %s\n", a.server.Addr)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止定时任务并关闭 HTTP 服务器
func (a *App) Stop() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		log.Println("任务调度器已停止。")
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			log.Printf("关闭 HTTP 服务器失败: %v", err)
		}
	}
}
