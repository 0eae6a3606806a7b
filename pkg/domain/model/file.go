package model

import (
	"time"
)

// StoredFile 描述了某个用户作用域下的一个已上传文件，由 (Scope, Name) 唯一确定。
type StoredFile struct {
	Name    string    // 文件名（只包含基础名）
	Path    string    // 物理路径
	Scope   string    // 用户作用域
	ModTime time.Time // 最后写入时间
	Size    int64     // 字节数
	Version int       // 当前版本号，从 1 开始
	Key     string    // 当前修订键
}

// CreatedInfo 对应历史目录中的 createdInfo.json，记录文件的首次上传信息。
type CreatedInfo struct {
	Created  string `json:"created"`
	UID      string `json:"id"`
	UserName string `json:"name"`
}

// Identity 是发起请求的用户身份
type Identity struct {
	UserID   string
	UserName string
	Scope    string // 用户作用域，由客户端地址派生
}

// FileInfo 是存储文件列表接口返回的单个条目
type FileInfo struct {
	Version           int    `json:"version"`
	ID                string `json:"id"`
	ContentLength     string `json:"contentLength"`
	PureContentLength int64  `json:"pureContentLength"`
	Title             string `json:"title"`
	Updated           string `json:"updated"`
}

// FileListItem 是页面文件列表中展示的条目
type FileListItem struct {
	Name         string `json:"name"`
	DocumentType string `json:"documentType"`
	Version      int    `json:"version"`
	Size         int64  `json:"size"`
	Updated      string `json:"updated"`
	CanEdit      bool   `json:"canEdit"`
	CanConvert   bool   `json:"canConvert"`
	URL          string `json:"url"`
}
