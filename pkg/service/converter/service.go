// pkg/service/converter/service.go
/*
 * @Description: 文档转换服务客户端
 * @Author: 安知鱼
 * @Date: 2025-09-04 14:31:09
 */
package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
)

// Request 是一次转换请求
type Request struct {
	FileURL string // 源文件地址，转换服务需要能访问到
	FromExt string // 源扩展名，可带点
	ToExt   string // 目标扩展名，可带点
	Key     string // 修订键
	Title   string
	Async   bool
}

// Response 是转换服务的答复；Percent 为 100 时 FileURL 指向转换结果
type Response struct {
	Percent int
	FileURL string
}

// Done 表示转换已经完成
func (r *Response) Done() bool {
	return r != nil && r.Percent >= 100
}

// Client 定义了转换服务的接口
type Client interface {
	Convert(ctx context.Context, req *Request) (*Response, error)
}

type convertPayload struct {
	Async      bool   `json:"async"`
	FileType   string `json:"filetype"`
	Key        string `json:"key"`
	OutputType string `json:"outputtype"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Token      string `json:"token,omitempty"`
}

type convertReply struct {
	EndConvert bool   `json:"endConvert"`
	FileURL    string `json:"fileUrl"`
	Percent    int    `json:"percent"`
	Error      int    `json:"error"`
}

// errorMessages 是转换服务错误码对应的说明
var errorMessages = map[int]string{
	-1: "未知错误",
	-2: "转换超时",
	-3: "转换出错",
	-4: "下载源文件出错",
	-5: "文档密码错误",
	-6: "访问转换结果数据库出错",
	-7: "输入参数错误",
	-8: "令牌无效",
}

// ErrorMessage 返回错误码的说明
func ErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("错误码 %d", code)
}

// httpClient 是 Client 的实现
type httpClient struct {
	endpoint     string
	signer       auth.Signer
	secretHeader string
	httpClient   *http.Client
}

// NewClient 创建一个新的转换服务客户端
func NewClient(endpoint string, signer auth.Signer, secretHeader string, timeout time.Duration) Client {
	if secretHeader == "" {
		secretHeader = "Authorization"
	}
	return &httpClient{
		endpoint:     endpoint,
		signer:       signer,
		secretHeader: secretHeader,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *httpClient) Convert(ctx context.Context, req *Request) (*Response, error) {
	payload := convertPayload{
		Async:      req.Async,
		FileType:   strings.TrimPrefix(strings.ToLower(req.FromExt), "."),
		Key:        req.Key,
		OutputType: strings.TrimPrefix(strings.ToLower(req.ToExt), "."),
		Title:      req.Title,
		URL:        req.FileURL,
	}
	if payload.Title == "" {
		payload.Title = "Example Title"
	}

	var headerToken string
	if c.signer != nil && c.signer.Enabled() {
		bodyToken, err := c.signer.Encode(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: 签发请求令牌失败: %v", constant.ErrConvert, err)
		}
		headerToken, err = c.signer.Encode(map[string]any{"payload": payload})
		if err != nil {
			return nil, fmt.Errorf("%w: 签发请求头令牌失败: %v", constant.ErrConvert, err)
		}
		payload.Token = bodyToken
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: 转换请求构建失败: %v", constant.ErrConvert, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: 转换请求创建失败: %v", constant.ErrConvert, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if headerToken != "" {
		httpReq.Header.Set(c.secretHeader, "Bearer "+headerToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: 转换服务暂时不可用: %v", constant.ErrConvert, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: 转换服务返回状态码 %d: %s", constant.ErrConvert, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var reply convertReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: 转换响应解析失败: %v", constant.ErrConvert, err)
	}
	return interpret(&reply)
}

// interpret 把转换服务的答复规整为 Response
func interpret(reply *convertReply) (*Response, error) {
	if reply.Error != 0 {
		return nil, fmt.Errorf("%w: %s", constant.ErrConvert, ErrorMessage(reply.Error))
	}
	if reply.EndConvert {
		if reply.FileURL == "" {
			return nil, fmt.Errorf("%w: 转换完成但没有返回文件地址", constant.ErrConvert)
		}
		return &Response{Percent: 100, FileURL: reply.FileURL}, nil
	}

	// 未完成时进度最多报告 99
	percent := reply.Percent
	if percent >= 100 {
		percent = 99
	}
	if percent < 0 {
		percent = 0
	}
	return &Response{Percent: percent}, nil
}
