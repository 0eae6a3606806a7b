package file

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
)

// Fetcher 从远程地址下载内容
type Fetcher interface {
	// Fetch 把 rawURL 的内容写入 w，返回写入的字节数。
	// limit 大于 0 时最多读取 limit+1 个字节。
	Fetch(ctx context.Context, rawURL string, w io.Writer, limit int64) (int64, error)
}

// httpFetcher 是基于 net/http 的 Fetcher 实现
type httpFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher 创建一个新的 HTTP 下载器
func NewHTTPFetcher(timeout time.Duration) Fetcher {
	return &httpFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string, w io.Writer, limit int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: 无效的地址 '%s': %v", constant.ErrRemoteFetch, rawURL, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: 请求 '%s' 失败: %v", constant.ErrRemoteFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: '%s' 返回状态码 %d", constant.ErrRemoteFetch, rawURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("%w: 读取 '%s' 的内容失败: %v", constant.ErrRemoteFetch, rawURL, err)
	}
	return n, nil
}
