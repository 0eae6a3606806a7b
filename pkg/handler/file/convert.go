package file

import (
	"net/http"

	"github.com/anzhiyu-c/anheyu-docs/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/response"

	"github.com/gin-gonic/gin"
)

// Convert 把旧格式文档转换为可编辑格式 (POST /api/files/convert)
// @Summary      转换文档
// @Description  转换未完成时 data.status 为 in_progress，客户端应稍后重试
// @Tags         文件管理
// @Accept       json
// @Produce      json
// @Param        body  body  model.ConvertBody  true  "文件名"
// @Success      200  {object}  response.Response  "处理完成"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Failure      502  {object}  response.Response  "转换服务出错"
// @Router       /files/convert [post]
func (h *FileHandler) Convert(c *gin.Context) {
	var body model.ConvertBody
	if err := c.ShouldBindJSON(&body); err != nil || body.FileName == "" {
		response.Fail(c, http.StatusBadRequest, "缺少文件名")
		return
	}

	result, err := h.fileSvc.Convert(c.Request.Context(), &model.ConvertRequest{
		FileName: body.FileName,
		User:     middleware.GetIdentity(c),
	})
	if err != nil {
		response.FailWithError(c, "转换失败", err)
		return
	}
	response.Success(c, result, string(result.Status))
}

// ConvertProgress 查询最近一次报告的转换进度 (GET /api/files/convert/progress)
// @Summary      查询转换进度
// @Description  带 filename 时返回单个文件的进度，否则返回当前作用域内所有未过期的进度
// @Tags         文件管理
// @Produce      json
// @Param        filename  query  string  false  "文件名"
// @Success      200  {object}  response.Response  "查询成功"
// @Failure      404  {object}  response.Response  "没有转换记录"
// @Router       /files/convert/progress [get]
func (h *FileHandler) ConvertProgress(c *gin.Context) {
	scope := middleware.GetIdentity(c).Scope
	fileName := c.Query("filename")
	if fileName == "" {
		list, err := h.fileSvc.ConvertProgressList(c.Request.Context(), scope)
		if err != nil {
			response.FailWithError(c, "查询失败", err)
			return
		}
		response.Success(c, list, "查询成功")
		return
	}

	progress, err := h.fileSvc.ConvertProgress(c.Request.Context(), fileName, scope)
	if err != nil {
		response.FailWithError(c, "查询失败", err)
		return
	}
	response.Success(c, progress, "查询成功")
}
