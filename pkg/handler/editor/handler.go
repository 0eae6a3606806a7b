/*
 * @Description: 编辑器配置与历史记录的 HTTP 处理器
 * @Author: 安知鱼
 * @Date: 2025-10-16 14:05:37
 * @LastEditTime: 2025-10-16 17:48:09
 * @LastEditors: 安知鱼
 */
package editor

import (
	"encoding/json"
	"net/http"

	"github.com/anzhiyu-c/anheyu-docs/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/types"
	"github.com/anzhiyu-c/anheyu-docs/pkg/config"
	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/response"
	editor_service "github.com/anzhiyu-c/anheyu-docs/pkg/service/editor"
	history_service "github.com/anzhiyu-c/anheyu-docs/pkg/service/history"

	"github.com/gin-gonic/gin"
)

// Handler 负责编辑器页面需要的数据
type Handler struct {
	editorSvc  editor_service.IEditorService
	historySvc history_service.IHistoryService
	settings   *config.DocumentSettings
}

func NewHandler(
	editorSvc editor_service.IEditorService,
	historySvc history_service.IHistoryService,
	settings *config.DocumentSettings,
) *Handler {
	return &Handler{
		editorSvc:  editorSvc,
		historySvc: historySvc,
		settings:   settings,
	}
}

// ConfigResponse 是编辑器页面初始化所需的全部数据
type ConfigResponse struct {
	Config       types.Value `json:"config"`
	APIURL       string      `json:"apiUrl"`
	PreloaderURL string      `json:"preloaderUrl"`
}

// HistoryResponse 中的两段 JSON 直接交给编辑器的 refreshHistory / setHistoryData
type HistoryResponse struct {
	History json.RawMessage `json:"history"`
	Reopen  json.RawMessage `json:"historyData"`
}

// GetConfig 生成编辑器配置 (GET /api/editor/config?filename=...&mode=...&type=...)
// @Summary      获取编辑器配置
// @Description  mode 默认 edit，type 默认 desktop；配置了密钥时附带 token
// @Tags         编辑器
// @Produce      json
// @Param        filename    query  string  true   "文件名"
// @Param        mode        query  string  false  "打开模式"
// @Param        type        query  string  false  "展示类型"
// @Param        lang        query  string  false  "界面语言"
// @Param        actionLink  query  string  false  "跳转位置（JSON）"
// @Success      200  {object}  response.Response  "获取成功"
// @Failure      400  {object}  response.Response  "参数无效"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Router       /editor/config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	fileName := c.Query("filename")
	if fileName == "" {
		response.Fail(c, http.StatusBadRequest, "缺少文件名")
		return
	}

	lang := c.Query("lang")
	if lang == "" {
		if cookieLang, err := c.Cookie("ulang"); err == nil {
			lang = cookieLang
		}
	}

	cfg, err := h.editorSvc.ForFile(c.Request.Context(), fileName, editor_service.ConfigParams{
		Mode:          c.Query("mode"),
		Type:          c.Query("type"),
		Lang:          lang,
		ActionData:    c.Query("actionLink"),
		User:          middleware.GetIdentity(c),
		DefaultUserID: constant.DefaultUserIDConfig,
	})
	if err != nil {
		response.FailWithError(c, "获取编辑器配置失败", err)
		return
	}

	response.Success(c, ConfigResponse{
		Config:       cfg,
		APIURL:       h.settings.APIURL,
		PreloaderURL: h.settings.PreloaderURL,
	}, "获取成功")
}

// GetHistory 返回文件的版本历史 (GET /api/editor/history?filename=...)
// @Summary      获取版本历史
// @Description  文件没有历史时 history 为 null
// @Tags         编辑器
// @Produce      json
// @Param        filename  query  string  true  "文件名"
// @Success      200  {object}  response.Response  "获取成功"
// @Failure      422  {object}  response.Response  "历史数据已损坏"
// @Router       /editor/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	fileName := c.Query("filename")
	if fileName == "" {
		response.Fail(c, http.StatusBadRequest, "缺少文件名")
		return
	}

	history, err := h.historySvc.Build(c.Request.Context(), fileName, middleware.GetIdentity(c).Scope)
	if err != nil {
		response.FailWithError(c, "获取历史失败", err)
		return
	}
	historyJSON, reopenJSON, err := history_service.Marshal(history)
	if err != nil {
		response.FailWithError(c, "获取历史失败", err)
		return
	}
	response.Success(c, HistoryResponse{History: historyJSON, Reopen: reopenJSON}, "获取成功")
}
