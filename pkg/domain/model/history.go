package model

import "encoding/json"

// HistoryUser 是历史记录中的作者信息
type HistoryUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChangesRecord 对应版本目录中的 changes.json。
// 单条变更的结构由文档服务器决定，这里原样保存。
type ChangesRecord struct {
	Changes       []json.RawMessage `json:"changes"`
	ServerVersion json.RawMessage   `json:"serverVersion,omitempty"`
}

// ChangeAuthor 是单条变更中我们关心的部分
type ChangeAuthor struct {
	Created string      `json:"created"`
	User    HistoryUser `json:"user"`
}

// VersionRecord 是历史列表中的一个版本
type VersionRecord struct {
	Version       int               `json:"version"`
	Key           string            `json:"key"`
	Created       string            `json:"created,omitempty"`
	User          *HistoryUser      `json:"user,omitempty"`
	Changes       []json.RawMessage `json:"changes,omitempty"`
	ServerVersion json.RawMessage   `json:"serverVersion,omitempty"`
}

// ReopenLink 指向上一个版本的内容
type ReopenLink struct {
	FileType string `json:"fileType"`
	Key      string `json:"key"`
	URL      string `json:"url"`
}

// ReopenData 是编辑器重新打开某个历史版本所需的数据
type ReopenData struct {
	FileType   string      `json:"fileType"`
	Version    int         `json:"version"`
	Key        string      `json:"key"`
	URL        string      `json:"url"`
	Previous   *ReopenLink `json:"previous,omitempty"`
	ChangesURL string      `json:"changesUrl,omitempty"`
	Token      string      `json:"token,omitempty"`
}

// History 是一个文件完整的版本历史。
// Reopen 以版本号（从 1 开始）为键。
type History struct {
	CurrentVersion int                `json:"currentVersion"`
	Versions       []VersionRecord    `json:"history"`
	Reopen         map[int]ReopenData `json:"-"`
}
