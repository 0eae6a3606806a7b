package file

import (
	"log"
	"net/http"

	"github.com/anzhiyu-c/anheyu-docs/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/response"

	"github.com/gin-gonic/gin"
)

// Upload 处理表单上传 (POST /api/files/upload)
// @Summary      上传文档
// @Description  上传一个文档到当前用户的作用域，文件名冲突时自动追加序号
// @Tags         文件管理
// @Accept       multipart/form-data
// @Produce      json
// @Param        uploadedFile  formData  file  true  "文件"
// @Success      200  {object}  response.Response  "上传成功"
// @Failure      400  {object}  response.Response  "文件大小或类型不合法"
// @Failure      500  {object}  response.Response  "上传失败"
// @Router       /files/upload [post]
func (h *FileHandler) Upload(c *gin.Context) {
	header, err := c.FormFile(uploadFormField)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "缺少上传文件: "+err.Error())
		return
	}
	f, err := header.Open()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "无法读取上传文件: "+err.Error())
		return
	}
	defer f.Close()

	result, err := h.fileSvc.Upload(c.Request.Context(), &model.UploadRequest{
		FileName: header.Filename,
		Size:     header.Size,
		Body:     f,
		User:     middleware.GetIdentity(c),
	})
	if err != nil {
		response.FailWithError(c, "上传失败", err)
		return
	}
	response.Success(c, result, "上传成功")
}

// UploadFromURL 从远程地址抓取文档 (POST /api/files/upload-url)
// @Summary      从地址上传文档
// @Description  抓取失败时仍返回 200，data.status 为 fetch_failed 并带上原因
// @Tags         文件管理
// @Accept       json
// @Produce      json
// @Param        body  body  model.URLUploadBody  true  "远程地址"
// @Success      200  {object}  response.Response  "处理完成"
// @Failure      400  {object}  response.Response  "地址或文件类型不合法"
// @Router       /files/upload-url [post]
func (h *FileHandler) UploadFromURL(c *gin.Context) {
	var body model.URLUploadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	result, err := h.fileSvc.UploadFromURL(c.Request.Context(), &model.URLUploadRequest{
		URL:  body.URL,
		User: middleware.GetIdentity(c),
	})
	if err != nil {
		response.FailWithError(c, "上传失败", err)
		return
	}
	if !result.Persisted() {
		log.Printf("[UploadFromURL] %s 抓取失败: %s", body.URL, result.Reason)
		response.Success(c, result, "远程文件获取失败")
		return
	}
	response.Success(c, result, "上传成功")
}
