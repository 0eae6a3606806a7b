// pkg/util/html.go
package util

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripTagsPolicy = bluemonday.StripTagsPolicy()

// StripHTML 去掉所有 HTML 标签，返回纯文本。
// bluemonday 会转义文本中的 & < > 和引号，这里再还原一次，
// 因为结果是放进 JSON 而不是直接写进页面。
func StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripTagsPolicy.Sanitize(s)))
}
