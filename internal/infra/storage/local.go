// internal/infra/storage/local.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/idgen"
)

// StaticPrefix 是存储目录对外暴露的 URL 前缀
const StaticPrefix = "/storage"

// TrackPath 是文档服务器回调的路由
const TrackPath = "/api/track"

// LocalStorage 实现了 Store 接口，所有内容都保存在本机磁盘上。
type LocalStorage struct {
	root      string
	tempDir   string
	publicURL string // 本服务对外地址，为空时生成相对地址
}

// NewLocalStorage 是 LocalStorage 的构造函数
func NewLocalStorage(root, tempDir, publicURL string) *LocalStorage {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &LocalStorage{
		root:      root,
		tempDir:   tempDir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Root 返回存储根目录
func (s *LocalStorage) Root() string { return s.root }

// UserScopeID 把客户端地址转换为可以安全用作目录名的作用域标识，
// 除 [0-9a-zA-Z.=] 之外的字符都会被替换为下划线。
func UserScopeID(rawAddress string) string {
	var b strings.Builder
	b.Grow(len(rawAddress))
	for _, r := range rawAddress {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '.', r == '=':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// sanitizeName 只保留文件名的基础部分，去掉任何目录片段
func sanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" || base == "" {
		return "", fmt.Errorf("%w: 非法的文件名 %q", constant.ErrBadRequest, name)
	}
	return base, nil
}

func (s *LocalStorage) scopeDir(scope string) (string, error) {
	cleanScope, err := sanitizeName(scope)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, cleanScope), nil
}

// StoragePath 返回 <root>/<scope>/<baseName>，并确保作用域目录存在
func (s *LocalStorage) StoragePath(fileName, scope string) (string, error) {
	dir, err := s.scopeDir(scope)
	if err != nil {
		return "", err
	}
	name, err := sanitizeName(fileName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("%w: 无法创建作用域目录 '%s': %v", constant.ErrIO, dir, err)
	}
	return filepath.Join(dir, name), nil
}

func (s *LocalStorage) HistoryDir(storagePath string) string {
	return storagePath + constant.HistorySuffix
}

func (s *LocalStorage) VersionDir(historyDir string, version int) string {
	return filepath.Join(historyDir, strconv.Itoa(version))
}

// FileVersionCount 统计历史目录下的子目录数并加 1；目录不存在时返回 0
func (s *LocalStorage) FileVersionCount(historyDir string) int {
	entries, err := os.ReadDir(historyDir)
	if err != nil {
		return 0
	}
	count := 1
	for _, entry := range entries {
		if entry.IsDir() {
			count++
		}
	}
	return count
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// CorrectName 依次尝试 "name (1).ext"、"name (2).ext"… 直到找到一个未被占用的名字
func (s *LocalStorage) CorrectName(fileName, scope string) (string, error) {
	name, err := sanitizeName(fileName)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; ; i++ {
		p, err := s.StoragePath(candidate, scope)
		if err != nil {
			return "", err
		}
		if !exists(p) {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
}

// ForcesavePath 强制保存的副本放在历史目录的根下，与原文件同名
func (s *LocalStorage) ForcesavePath(fileName, scope string, create bool) (string, error) {
	storagePath, err := s.StoragePath(fileName, scope)
	if err != nil {
		return "", err
	}
	dir := s.HistoryDir(storagePath)
	if !exists(dir) {
		if !create {
			return "", nil
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return "", fmt.Errorf("%w: 无法创建历史目录 '%s': %v", constant.ErrIO, dir, err)
		}
	}
	p := filepath.Join(dir, filepath.Base(storagePath))
	if !create && !exists(p) {
		return "", nil
	}
	return p, nil
}

// PathURL 生成作用域内任意相对路径的访问地址，每一段都会被转义
func (s *LocalStorage) PathURL(scope string, elems ...string) string {
	parts := make([]string, 0, len(elems)+1)
	parts = append(parts, url.PathEscape(scope))
	for _, e := range elems {
		parts = append(parts, url.PathEscape(e))
	}
	return s.publicURL + StaticPrefix + "/" + strings.Join(parts, "/")
}

func (s *LocalStorage) FileURL(fileName, scope string) string {
	return s.PathURL(scope, filepath.Base(fileName))
}

func (s *LocalStorage) CallbackURL(fileName, scope string) string {
	q := url.Values{}
	q.Set("fileName", filepath.Base(fileName))
	q.Set("userAddress", scope)
	return s.publicURL + TrackPath + "?" + q.Encode()
}

// Stat 返回文件的当前状态；文件不存在时返回 constant.ErrNotFound
func (s *LocalStorage) Stat(fileName, scope string) (*model.StoredFile, error) {
	p, err := s.StoragePath(fileName, scope)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: 文件 '%s' 不存在", constant.ErrNotFound, filepath.Base(p))
		}
		return nil, fmt.Errorf("%w: %v", constant.ErrIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: '%s' 不是文件", constant.ErrNotFound, filepath.Base(p))
	}
	return &model.StoredFile{
		Name:    info.Name(),
		Path:    p,
		Scope:   scope,
		ModTime: info.ModTime(),
		Size:    info.Size(),
		Version: s.FileVersionCount(s.HistoryDir(p)),
		Key:     revisionKey(scope, info.Name(), info.ModTime()),
	}, nil
}

func revisionKey(scope, name string, modTime time.Time) string {
	return idgen.GenerateRevisionID(scope + "/" + name + "/" + strconv.FormatInt(modTime.UnixNano(), 10))
}

// DocumentKey 由作用域、文件名和最后写入时间派生，内容不变时保持稳定
func (s *LocalStorage) DocumentKey(fileName, scope string) (string, error) {
	f, err := s.Stat(fileName, scope)
	if err != nil {
		return "", err
	}
	return f.Key, nil
}

// StoredFiles 列出作用域内的所有文件，最近修改的在前
func (s *LocalStorage) StoredFiles(scope string) ([]*model.StoredFile, error) {
	dir, err := s.scopeDir(scope)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.StoredFile{}, nil
		}
		return nil, fmt.Errorf("%w: 无法读取目录 '%s': %v", constant.ErrIO, dir, err)
	}

	files := make([]*model.StoredFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, err := s.Stat(entry.Name(), scope)
		if err != nil {
			log.Printf("警告: 无法获取文件 '%s' 的信息: %v", entry.Name(), err)
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// copyFile 复制文件从 src 到 dst，用于跨文件系统的文件移动
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("无法打开源文件: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("无法创建目标文件: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("复制文件内容失败: %w", err)
	}

	if err := destFile.Sync(); err != nil {
		return fmt.Errorf("同步文件到磁盘失败: %w", err)
	}
	return nil
}

// MoveFile 优先使用 os.Rename，失败时退回 copy + delete（兼容跨文件系统）
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if err := copyFile(src, dst); err != nil {
			return err
		}
		_ = os.Remove(src)
	}
	return nil
}

// Save 先写入临时文件再移动到最终位置，避免读者看到写了一半的文件
func (s *LocalStorage) Save(ctx context.Context, fileName, scope string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	finalPath, err := s.StoragePath(fileName, scope)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.tempDir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("%w: 无法创建临时目录 '%s': %v", constant.ErrIO, s.tempDir, err)
	}

	tempFile, err := os.CreateTemp(s.tempDir, "anheyu-docs-save-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: 无法在 '%s' 目录创建临时文件: %v", constant.ErrIO, s.tempDir, err)
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName)

	size, err := io.Copy(tempFile, r)
	closeErr := tempFile.Close()
	if err != nil {
		return 0, fmt.Errorf("%w: 写入临时文件失败: %v", constant.ErrIO, err)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("%w: 关闭临时文件失败: %v", constant.ErrIO, closeErr)
	}

	if err := MoveFile(tempName, finalPath); err != nil {
		return 0, fmt.Errorf("%w: 移动文件到 '%s' 失败: %v", constant.ErrIO, finalPath, err)
	}
	return size, nil
}

func (s *LocalStorage) Import(srcPath, fileName, scope string) error {
	finalPath, err := s.StoragePath(fileName, scope)
	if err != nil {
		return err
	}
	if err := MoveFile(srcPath, finalPath); err != nil {
		return fmt.Errorf("%w: 移动文件到 '%s' 失败: %v", constant.ErrIO, finalPath, err)
	}
	return nil
}

func (s *LocalStorage) Archive(fileName, scope, dstPath string) error {
	srcPath, err := s.StoragePath(fileName, scope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), os.ModePerm); err != nil {
		return fmt.Errorf("%w: 无法创建目录 '%s': %v", constant.ErrIO, filepath.Dir(dstPath), err)
	}
	if err := copyFile(srcPath, dstPath); err != nil {
		return fmt.Errorf("%w: 归档 '%s' 失败: %v", constant.ErrIO, srcPath, err)
	}
	return nil
}

// WriteCreatedInfo 创建历史目录并写入 createdInfo.json
func (s *LocalStorage) WriteCreatedInfo(storagePath string, info *model.CreatedInfo) error {
	histDir := s.HistoryDir(storagePath)
	if err := os.MkdirAll(histDir, os.ModePerm); err != nil {
		return fmt.Errorf("%w: 无法创建历史目录 '%s': %v", constant.ErrIO, histDir, err)
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("序列化 createdInfo 失败: %w", err)
	}
	target := filepath.Join(histDir, constant.CreatedInfoFileName)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("%w: 写入 '%s' 失败: %v", constant.ErrIO, target, err)
	}
	return nil
}

// Remove 删除文件及其整个历史目录，二者都不存在时静默成功
func (s *LocalStorage) Remove(fileName, scope string) error {
	p, err := s.StoragePath(fileName, scope)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: 删除 '%s' 失败: %v", constant.ErrIO, p, err)
	}
	if err := os.RemoveAll(s.HistoryDir(p)); err != nil {
		return fmt.Errorf("%w: 删除历史目录失败: %v", constant.ErrIO, err)
	}
	return nil
}
