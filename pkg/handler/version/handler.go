package version

import (
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-docs/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler 版本信息处理器
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// GetVersion 获取版本信息
// @Summary      获取版本信息
// @Description  获取服务的版本号、commit 与构建时间
// @Tags         辅助工具
// @Produce      json
// @Success      200  {object}  response.Response  "版本信息"
// @Router       /version [get]
func (h *Handler) GetVersion(c *gin.Context) {
	response.Success(c, version.GetBuildInfo(), "获取版本信息成功")
}
