/*
 * @Description: 文件相关的 HTTP 处理器
 * @Author: 安知鱼
 * @Date: 2025-07-02 00:00:25
 * @LastEditTime: 2025-10-16 17:20:11
 * @LastEditors: 安知鱼
 */
package file

import (
	"github.com/anzhiyu-c/anheyu-docs/pkg/config"
	file_service "github.com/anzhiyu-c/anheyu-docs/pkg/service/file"
)

// uploadFormField 是上传表单中文件字段的名字
const uploadFormField = "uploadedFile"

// FileHandler 负责处理所有与文件相关的HTTP请求
type FileHandler struct {
	fileSvc  file_service.FileService
	settings *config.DocumentSettings
}

// NewHandler 是 FileHandler 的构造函数
func NewHandler(fileSvc file_service.FileService, settings *config.DocumentSettings) *FileHandler {
	return &FileHandler{
		fileSvc:  fileSvc,
		settings: settings,
	}
}
