/*
 * @Description: 定义了文档存储需要遵守的接口
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-17 10:12:40
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"io"

	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
)

// PathResolver 把 (文件名, 用户作用域) 映射为磁盘上的位置。
// 目录布局：<root>/<scope>/<file>，历史目录为 <root>/<scope>/<file>-hist/<version>/。
type PathResolver interface {
	// StoragePath 返回文件的存储路径，必要时创建作用域目录。
	StoragePath(fileName, scope string) (string, error)
	// HistoryDir 返回文件对应的历史目录（不保证存在）。
	HistoryDir(storagePath string) string
	// VersionDir 返回历史目录下某个版本的子目录。
	VersionDir(historyDir string, version int) string
	// FileVersionCount 返回当前版本号；历史目录不存在时返回 0。
	FileVersionCount(historyDir string) int
}

// URLBuilder 生成文档服务器和浏览器访问存储内容所需的地址。
type URLBuilder interface {
	FileURL(fileName, scope string) string
	PathURL(scope string, elems ...string) string
	CallbackURL(fileName, scope string) string
}

// Store 是上层服务使用的完整本地存储能力。
type Store interface {
	PathResolver
	URLBuilder

	// CorrectName 在作用域内为文件名找一个不冲突的名字，例如 "a (1).docx"。
	CorrectName(fileName, scope string) (string, error)
	// ForcesavePath 返回强制保存副本的路径；create 为 false 且副本不存在时返回空字符串。
	ForcesavePath(fileName, scope string, create bool) (string, error)
	// DocumentKey 返回文件当前内容的修订键。
	DocumentKey(fileName, scope string) (string, error)
	Stat(fileName, scope string) (*model.StoredFile, error)
	StoredFiles(scope string) ([]*model.StoredFile, error)

	// Save 将数据流写入作用域内的文件，返回写入的字节数。
	Save(ctx context.Context, fileName, scope string, r io.Reader) (int64, error)
	// Import 把一个已存在的本地文件移动到作用域内。
	Import(srcPath, fileName, scope string) error
	// Archive 把作用域内的文件复制到任意目标路径。
	Archive(fileName, scope, dstPath string) error
	WriteCreatedInfo(storagePath string, info *model.CreatedInfo) error
	Remove(fileName, scope string) error
}
