/*
 * @Description: 文档服务统一错误定义
 * @Author: 安知鱼
 * @Date: 2025-06-27 12:08:15
 * @LastEditTime: 2025-10-16 10:21:44
 * @LastEditors: 安知鱼
 */
package constant

import (
	"errors"
	"fmt"
)

// 定义业务逻辑相关的标准错误，Handler 通过 errors.Is 将其转换为对应的 HTTP 状态码
var (
	// ErrNotFound 表示资源未找到，可以由 Handler 转换为 404
	ErrNotFound = errors.New("资源未找到")

	// ErrBadRequest 表示请求参数错误，可以由 Handler 转换为 400
	ErrBadRequest = errors.New("错误的请求")

	// ErrValidation 表示上传文件未通过校验（大小或类型），可以由 Handler 转换为 400
	ErrValidation = errors.New("文件校验失败")

	// ErrMissingHistoryData 表示某个已归档版本缺少必要的历史数据（key.txt / changes.json），
	// 这意味着存储目录已损坏，整个历史构建调用都应失败
	ErrMissingHistoryData = errors.New("历史版本数据缺失或已损坏")

	// ErrConfigBuild 表示编辑器配置无法构建（例如 actionLink 无法解析），可以由 Handler 转换为 400
	ErrConfigBuild = errors.New("编辑器配置构建失败")

	// ErrRemoteFetch 表示从远程地址下载文件失败，可以由 Handler 转换为 502
	ErrRemoteFetch = errors.New("远程文件获取失败")

	// ErrConvert 表示文档转换服务返回了错误
	ErrConvert = errors.New("文档转换失败")

	// ErrIO 表示目录或文件的创建、写入、删除失败，不做自动重试
	ErrIO = errors.New("存储读写失败")

	// ErrInvalidToken 表示无效的令牌，可以由 Handler 转换为 401
	ErrInvalidToken = errors.New("无效令牌")
)

// 校验失败的原因
const (
	ReasonSize = "size"
	ReasonType = "type"
)

// ValidationError 描述了上传校验失败的具体原因，可直接展示给用户。
type ValidationError struct {
	Reason  string // size 或 type
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewSizeError 创建文件大小不合法的校验错误
func NewSizeError() *ValidationError {
	return &ValidationError{Reason: ReasonSize, Message: "文件大小不正确"}
}

// NewTypeError 创建文件类型不受支持的校验错误
func NewTypeError() *ValidationError {
	return &ValidationError{Reason: ReasonType, Message: "不支持的文件类型"}
}
