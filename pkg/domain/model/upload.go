/*
 * @Description: 文件上传与转换相关的领域模型
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-17 09:30:51
 * @LastEditors: 安知鱼
 */
package model

import "io"

// --- 服务请求模型 ---

// UploadRequest 是直接上传文件流的请求
type UploadRequest struct {
	FileName string
	Size     int64
	Body     io.Reader
	User     Identity
}

// URLUploadRequest 是从远程地址抓取文件的请求
type URLUploadRequest struct {
	URL  string
	User Identity
}

// ConvertRequest 是把文件转换为内部可编辑格式的请求
type ConvertRequest struct {
	FileName string
	FileURL  string // 文档服务器可访问的源文件地址，为空时由存储层生成
	User     Identity
}

// --- API 请求模型 ---

// URLUploadBody 对应“从地址上传”API 的请求体
type URLUploadBody struct {
	URL string `json:"url" binding:"required"`
}

// ConvertBody 对应“转换文件”API 的请求体
type ConvertBody struct {
	FileName string `json:"filename" binding:"required"`
}

// --- 结果模型 ---

// UploadStatus 描述了上传的最终结果
type UploadStatus string

const (
	UploadStatusPersisted   UploadStatus = "persisted"    // 文件已写入存储
	UploadStatusFetchFailed UploadStatus = "fetch_failed" // 远程抓取失败，未写入任何内容
)

// UploadResult 是上传操作的返回值，文件名为最终落盘使用的名字
type UploadResult struct {
	FileName string       `json:"filename"`
	Status   UploadStatus `json:"status"`
	Reason   string       `json:"reason,omitempty"`
	Size     int64        `json:"size"`
	Version  int          `json:"version"`
}

// Persisted 表示文件是否真正写入了存储
func (r *UploadResult) Persisted() bool {
	return r != nil && r.Status == UploadStatusPersisted
}

// ConvertStatus 描述了转换的结果
type ConvertStatus string

const (
	ConvertStatusDone       ConvertStatus = "done"        // 已转换并替换原文件
	ConvertStatusInProgress ConvertStatus = "in_progress" // 转换服务尚未完成
	ConvertStatusSkipped    ConvertStatus = "skipped"     // 无需转换
)

// ConvertResult 是转换操作的返回值。
// 转换未完成时 FileName 仍为原文件名，Step 为转换服务报告的百分比。
type ConvertResult struct {
	FileName string        `json:"filename"`
	Status   ConvertStatus `json:"status"`
	Step     int           `json:"step"`
}

// ConvertProgress 是缓存中记录的最近一次转换进度
type ConvertProgress struct {
	FileName  string `json:"filename"`
	Step      int    `json:"step"`
	UpdatedAt int64  `json:"updatedAt"`
}
