/*
 * @Description: 文档类型、打开模式与追踪状态等常量表
 * @Author: 安知鱼
 * @Date: 2025-06-23 15:10:56
 * @LastEditTime: 2025-10-16 11:02:37
 * @LastEditors: 安知鱼
 */
package constant

import (
	"path/filepath"
	"strings"
)

// DocumentType 定义了编辑器识别的文档大类
type DocumentType string

const (
	DocumentTypeWord  DocumentType = "word"  // 文字处理
	DocumentTypeCell  DocumentType = "cell"  // 电子表格
	DocumentTypeSlide DocumentType = "slide" // 演示文稿
)

// 各大类转换后的内部格式
const (
	InternalExtWord  = ".docx"
	InternalExtCell  = ".xlsx"
	InternalExtSlide = ".pptx"
)

// extensionCategories 是扩展名到文档大类的静态查找表，初始化后只读
var extensionCategories = buildCategoryTable(map[DocumentType][]string{
	DocumentTypeWord: {
		".doc", ".docx", ".docm",
		".dot", ".dotx", ".dotm",
		".odt", ".fodt", ".ott", ".rtf", ".txt",
		".html", ".htm", ".mht",
		".pdf", ".djvu", ".fb2", ".epub", ".xps",
	},
	DocumentTypeCell: {
		".xls", ".xlsx", ".xlsm",
		".xlt", ".xltx", ".xltm",
		".ods", ".fods", ".ots", ".csv",
	},
	DocumentTypeSlide: {
		".pps", ".ppsx", ".ppsm",
		".ppt", ".pptx", ".pptm",
		".pot", ".potx", ".potm",
		".odp", ".fodp", ".otp",
	},
})

// internalExtensions 是文档大类到内部目标格式的静态查找表
var internalExtensions = map[DocumentType]string{
	DocumentTypeWord:  InternalExtWord,
	DocumentTypeCell:  InternalExtCell,
	DocumentTypeSlide: InternalExtSlide,
}

func buildCategoryTable(groups map[DocumentType][]string) map[string]DocumentType {
	table := make(map[string]DocumentType)
	for docType, exts := range groups {
		for _, ext := range exts {
			table[ext] = docType
		}
	}
	return table
}

// FileExt 返回小写的、带点的扩展名，例如 "report.DOCX" -> ".docx"
func FileExt(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

// LookupDocumentType 返回扩展名对应的文档大类；未知扩展名返回 false
func LookupDocumentType(fileName string) (DocumentType, bool) {
	docType, ok := extensionCategories[FileExt(fileName)]
	return docType, ok
}

// DocumentTypeOf 返回文件的文档大类，未知扩展名回退为文字处理
func DocumentTypeOf(fileName string) DocumentType {
	if docType, ok := LookupDocumentType(fileName); ok {
		return docType
	}
	return DocumentTypeWord
}

// InternalExtension 返回文件转换的目标格式，未知扩展名返回空字符串
func InternalExtension(fileName string) string {
	docType, ok := LookupDocumentType(fileName)
	if !ok {
		return ""
	}
	return internalExtensions[docType]
}

// 编辑器打开模式
const (
	ModeEdit         = "edit"
	ModeView         = "view"
	ModeFillForms    = "fillForms"
	ModeComment      = "comment"
	ModeEmbedded     = "embedded"
	ModeBlockContent = "blockcontent"
	ModeFilter       = "filter"
	ModeReview       = "review"
)

// 编辑器展示类型
const (
	EditorTypeDesktop  = "desktop"
	EditorTypeMobile   = "mobile"
	EditorTypeEmbedded = "embedded"
)

// 默认用户信息
const (
	DefaultUserIDConfig = "uid-0" // JSON 配置接口使用的默认用户
	DefaultUserIDPage   = "uid-1" // 页面直出配置使用的默认用户
	DefaultUserName     = "John Smith"
	FavoriteUserID      = "uid-2"
	DefaultLang         = "en"
)

// 历史目录中的边车文件名
const (
	HistorySuffix       = "-hist"
	CreatedInfoFileName = "createdInfo.json"
	KeyFileName         = "key.txt"
	ChangesFileName     = "changes.json"
	DiffFileName        = "diff.zip"
	PrevFilePrefix      = "prev"
)

// TrackStatus 是文档服务器回调中的状态码
type TrackStatus int

const (
	TrackStatusEditing            TrackStatus = 1
	TrackStatusMustSave           TrackStatus = 2
	TrackStatusCorrupted          TrackStatus = 3
	TrackStatusClosed             TrackStatus = 4
	TrackStatusMustForceSave      TrackStatus = 6
	TrackStatusCorruptedForceSave TrackStatus = 7
)
