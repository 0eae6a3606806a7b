package model

import (
	"encoding/json"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
)

// TrackPayload 是文档服务器回调的请求体
type TrackPayload struct {
	Key            string               `json:"key"`
	Status         constant.TrackStatus `json:"status"`
	URL            string               `json:"url,omitempty"`
	ChangesURL     string               `json:"changesurl,omitempty"`
	FileType       string               `json:"filetype,omitempty"`
	ForceSaveType  int                  `json:"forcesavetype,omitempty"`
	Users          []string             `json:"users,omitempty"`
	Actions        []json.RawMessage    `json:"actions,omitempty"`
	History        json.RawMessage      `json:"history,omitempty"`
	ChangesHistory json.RawMessage      `json:"changeshistory,omitempty"`
	Token          string               `json:"token,omitempty"`
}

// TrackRequest 是一次回调的完整上下文
type TrackRequest struct {
	FileName    string
	UserAddress string // 回调地址中携带的用户作用域
	Payload     *TrackPayload
	HeaderToken string // 请求头中的令牌（已去掉 Bearer 前缀）
}

// TrackResult 是返回给文档服务器的应答，Error 为 0 表示成功
type TrackResult struct {
	Error   int    `json:"error"`
	Message string `json:"message,omitempty"`
}
