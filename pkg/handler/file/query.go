package file

import (
	"net/http"

	"github.com/anzhiyu-c/anheyu-docs/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-docs/pkg/response"

	"github.com/gin-gonic/gin"
)

// FilesInfo 返回存储文件的信息 (GET /api/files?fileId=...)
// @Summary      获取存储文件信息
// @Description  fileId 为文件当前的修订键，不传时返回全部
// @Tags         文件管理
// @Produce      json
// @Param        fileId  query  string  false  "修订键"
// @Success      200  {object}  response.Response  "获取成功"
// @Failure      404  {object}  response.Response  "没有匹配的文件"
// @Router       /files [get]
func (h *FileHandler) FilesInfo(c *gin.Context) {
	infos, err := h.fileSvc.FilesInfo(c.Request.Context(), middleware.GetIdentity(c).Scope, c.Query("fileId"))
	if err != nil {
		response.FailWithError(c, "获取失败", err)
		return
	}
	response.Success(c, infos, "获取成功")
}

// List 返回页面文件列表 (GET /api/files/list)
func (h *FileHandler) List(c *gin.Context) {
	items, err := h.fileSvc.List(c.Request.Context(), middleware.GetIdentity(c).Scope)
	if err != nil {
		response.FailWithError(c, "获取失败", err)
		return
	}
	response.Success(c, items, "获取成功")
}

// Delete 删除文件及其历史 (DELETE /api/files?filename=...)
// @Summary      删除文件
// @Tags         文件管理
// @Produce      json
// @Param        filename  query  string  true  "文件名"
// @Success      200  {object}  response.Response  "删除成功"
// @Router       /files [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	fileName := c.Query("filename")
	if fileName == "" {
		response.Fail(c, http.StatusBadRequest, "缺少文件名")
		return
	}
	if err := h.fileSvc.Remove(c.Request.Context(), fileName, middleware.GetIdentity(c).Scope); err != nil {
		response.FailWithError(c, "删除失败", err)
		return
	}
	response.Success(c, nil, "删除成功")
}
