/*
 * @Description: 路由注册
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2025-10-16 18:20:37
 * @LastEditors: 安知鱼
 */
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-docs/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-docs/internal/infra/storage"
	editor_handler "github.com/anzhiyu-c/anheyu-docs/pkg/handler/editor"
	file_handler "github.com/anzhiyu-c/anheyu-docs/pkg/handler/file"
	version_handler "github.com/anzhiyu-c/anheyu-docs/pkg/handler/version"
)

// NoCacheMiddleware 全局反缓存中间件，编辑器配置里的修订键和令牌不能被缓存
func NoCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}

// Router 封装了应用的所有路由和其依赖的处理器。
type Router struct {
	fileHandler    *file_handler.FileHandler
	editorHandler  *editor_handler.Handler
	versionHandler *version_handler.Handler
	storageRoot    string
}

// NewRouter 是 Router 的构造函数
func NewRouter(
	fileHandler *file_handler.FileHandler,
	editorHandler *editor_handler.Handler,
	versionHandler *version_handler.Handler,
	storageRoot string,
) *Router {
	return &Router{
		fileHandler:    fileHandler,
		editorHandler:  editorHandler,
		versionHandler: versionHandler,
		storageRoot:    storageRoot,
	}
}

// Setup 注册全部路由
func (r *Router) Setup(engine *gin.Engine) {
	apiGroup := engine.Group("/api")
	apiGroup.Use(NoCacheMiddleware())

	// 文档服务器回调不经过身份中间件，作用域由回调地址携带
	apiGroup.POST("/track", r.fileHandler.Track)
	apiGroup.GET("/version", r.versionHandler.GetVersion)

	r.registerFileRoutes(apiGroup)
	r.registerEditorRoutes(apiGroup)

	// 文档服务器和浏览器都从这里下载文件及历史版本
	engine.Static(storage.StaticPrefix, r.storageRoot)
}

func (r *Router) registerFileRoutes(api *gin.RouterGroup) {
	filesGroup := api.Group("/files")
	filesGroup.Use(middleware.Identity())
	{
		// GET /api/files?fileId=...
		filesGroup.GET("", r.fileHandler.FilesInfo)
		filesGroup.GET("/list", r.fileHandler.List)
		// DELETE /api/files?filename=...
		filesGroup.DELETE("", r.fileHandler.Delete)
		filesGroup.GET("/convert/progress", r.fileHandler.ConvertProgress)
	}

	// 写入类接口按客户端地址限流
	uploadGroup := filesGroup.Group("")
	uploadGroup.Use(middleware.UploadRateLimit())
	{
		uploadGroup.POST("/upload", r.fileHandler.Upload)
		uploadGroup.POST("/upload-url", r.fileHandler.UploadFromURL)
		uploadGroup.POST("/convert", r.fileHandler.Convert)
	}
}

func (r *Router) registerEditorRoutes(api *gin.RouterGroup) {
	editorGroup := api.Group("/editor")
	editorGroup.Use(middleware.Identity())
	{
		editorGroup.GET("/config", r.editorHandler.GetConfig)
		editorGroup.GET("/history", r.editorHandler.GetHistory)
	}
}
