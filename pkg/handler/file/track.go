package file

import (
	"log"
	"net/http"

	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"

	"github.com/gin-gonic/gin"
)

// Track 接收文档服务器的状态回调 (POST /api/track?fileName=...&userAddress=...)。
// 文档服务器只认 {"error":0}，所以这里不使用统一的 response 结构。
func (h *FileHandler) Track(c *gin.Context) {
	fileName := c.Query("fileName")
	userAddress := c.Query("userAddress")
	if fileName == "" || userAddress == "" {
		c.JSON(http.StatusOK, model.TrackResult{Error: 1, Message: "缺少 fileName 或 userAddress"})
		return
	}

	var payload model.TrackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, model.TrackResult{Error: 1, Message: "无法解析回调数据: " + err.Error()})
		return
	}

	result, err := h.fileSvc.Track(c.Request.Context(), &model.TrackRequest{
		FileName:    fileName,
		UserAddress: userAddress,
		Payload:     &payload,
		HeaderToken: auth.ExtractBearer(c.GetHeader(h.settings.SecretHeader)),
	})
	if err != nil {
		log.Printf("[Track] 回调处理失败: %v", err)
		c.JSON(http.StatusOK, model.TrackResult{Error: 1, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
