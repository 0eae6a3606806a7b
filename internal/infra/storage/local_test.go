package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	base := t.TempDir()
	return NewLocalStorage(filepath.Join(base, "files"), filepath.Join(base, "temp"), "http://docs.local")
}

func TestUserScopeID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"IPv4 保持不变", "192.168.1.10", "192.168.1.10"},
		{"IPv6 冒号被替换", "::1", "__1"},
		{"保留等号", "a=b", "a=b"},
		{"路径分隔符被替换", "../etc/passwd", ".._etc_passwd"},
		{"非 ASCII 字符被替换", "用户", "__"},
		{"空字符串", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserScopeID(tt.in))
		})
	}
}

func TestStoragePath_SanitizesFileName(t *testing.T) {
	s := newTestStorage(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"普通文件名", "report.docx", "report.docx"},
		{"上级目录被剥离", "../../secret.docx", "secret.docx"},
		{"反斜杠路径", `..\..\win.docx`, "win.docx"},
		{"绝对路径", "/etc/passwd", "passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.StoragePath(tt.in, "scope1")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(s.Root(), "scope1", tt.want), p)
		})
	}

	dir, err := os.Stat(filepath.Join(s.Root(), "scope1"))
	require.NoError(t, err)
	assert.True(t, dir.IsDir())

	_, err = s.StoragePath("..", "scope1")
	assert.ErrorIs(t, err, constant.ErrBadRequest)
}

func TestStoragePath_DirectoryCreationFailure(t *testing.T) {
	base := t.TempDir()
	// 用一个普通文件占住根目录的位置
	blocker := filepath.Join(base, "files")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s := NewLocalStorage(blocker, filepath.Join(base, "temp"), "")
	_, err := s.StoragePath("a.docx", "scope1")
	assert.ErrorIs(t, err, constant.ErrIO)
}

func TestFileVersionCount(t *testing.T) {
	s := newTestStorage(t)
	histDir := filepath.Join(t.TempDir(), "report.docx-hist")

	assert.Equal(t, 0, s.FileVersionCount(histDir), "历史目录不存在时应为 0")

	require.NoError(t, os.MkdirAll(histDir, 0755))
	assert.Equal(t, 1, s.FileVersionCount(histDir))

	// 普通文件不计入版本
	require.NoError(t, os.WriteFile(filepath.Join(histDir, constant.CreatedInfoFileName), []byte("{}"), 0644))
	assert.Equal(t, 1, s.FileVersionCount(histDir))

	require.NoError(t, os.MkdirAll(s.VersionDir(histDir, 1), 0755))
	require.NoError(t, os.MkdirAll(s.VersionDir(histDir, 2), 0755))
	assert.Equal(t, 3, s.FileVersionCount(histDir))
}

func TestHistoryAndVersionDir(t *testing.T) {
	s := newTestStorage(t)
	assert.Equal(t, "/data/a.docx-hist", s.HistoryDir("/data/a.docx"))
	assert.Equal(t, filepath.Join("/data/a.docx-hist", "3"), s.VersionDir("/data/a.docx-hist", 3))
}

func TestCorrectName(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	name, err := s.CorrectName("report.docx", "scope1")
	require.NoError(t, err)
	assert.Equal(t, "report.docx", name)

	// 没有冲突时结果稳定
	again, err := s.CorrectName(name, "scope1")
	require.NoError(t, err)
	assert.Equal(t, name, again)

	_, err = s.Save(ctx, "report.docx", "scope1", strings.NewReader("v1"))
	require.NoError(t, err)

	name, err = s.CorrectName("report.docx", "scope1")
	require.NoError(t, err)
	assert.Equal(t, "report (1).docx", name)

	_, err = s.Save(ctx, name, "scope1", strings.NewReader("v2"))
	require.NoError(t, err)

	name, err = s.CorrectName("report.docx", "scope1")
	require.NoError(t, err)
	assert.Equal(t, "report (2).docx", name)

	// 其他作用域互不影响
	other, err := s.CorrectName("report.docx", "scope2")
	require.NoError(t, err)
	assert.Equal(t, "report.docx", other)
}

func TestSaveStatAndRemove(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	size, err := s.Save(ctx, "notes.txt", "scope1", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	f, err := s.Stat("notes.txt", "scope1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, int64(5), f.Size)
	assert.Equal(t, 0, f.Version)
	assert.NotEmpty(t, f.Key)
	assert.LessOrEqual(t, len(f.Key), 20)

	key, err := s.DocumentKey("notes.txt", "scope1")
	require.NoError(t, err)
	assert.Equal(t, f.Key, key, "未修改的文件修订键应保持稳定")

	p, _ := s.StoragePath("notes.txt", "scope1")
	require.NoError(t, s.WriteCreatedInfo(p, &model.CreatedInfo{Created: "2025-01-01 10:00:00", UID: "uid-1", UserName: "John Smith"}))

	raw, err := os.ReadFile(filepath.Join(s.HistoryDir(p), constant.CreatedInfoFileName))
	require.NoError(t, err)
	var info model.CreatedInfo
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, "uid-1", info.UID)

	f, err = s.Stat("notes.txt", "scope1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Version)

	require.NoError(t, s.Remove("notes.txt", "scope1"))
	_, err = s.Stat("notes.txt", "scope1")
	assert.ErrorIs(t, err, constant.ErrNotFound)
	_, err = os.Stat(s.HistoryDir(p))
	assert.True(t, os.IsNotExist(err))

	// 重复删除不报错
	assert.NoError(t, s.Remove("notes.txt", "scope1"))
}

func TestStoredFilesSkipsHistoryDirs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "a.docx", "scope1", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = s.Save(ctx, "b.xlsx", "scope1", strings.NewReader("bb"))
	require.NoError(t, err)
	p, _ := s.StoragePath("a.docx", "scope1")
	require.NoError(t, s.WriteCreatedInfo(p, &model.CreatedInfo{}))

	files, err := s.StoredFiles("scope1")
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := []string{files[0].Name, files[1].Name}
	assert.ElementsMatch(t, []string{"a.docx", "b.xlsx"}, names)

	empty, err := s.StoredFiles("nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestForcesavePath(t *testing.T) {
	s := newTestStorage(t)

	p, err := s.ForcesavePath("a.docx", "scope1", false)
	require.NoError(t, err)
	assert.Empty(t, p, "不创建时历史目录不存在应返回空")

	p, err = s.ForcesavePath("a.docx", "scope1", true)
	require.NoError(t, err)
	storagePath, _ := s.StoragePath("a.docx", "scope1")
	assert.Equal(t, filepath.Join(s.HistoryDir(storagePath), "a.docx"), p)

	p, err = s.ForcesavePath("a.docx", "scope1", false)
	require.NoError(t, err)
	assert.Empty(t, p, "副本文件不存在时应返回空")
}

func TestURLs(t *testing.T) {
	s := newTestStorage(t)

	assert.Equal(t, "http://docs.local/storage/scope1/my%20report.docx", s.FileURL("my report.docx", "scope1"))
	assert.Equal(t, "http://docs.local/storage/scope1/a.docx-hist/2/diff.zip", s.PathURL("scope1", "a.docx-hist", "2", "diff.zip"))
	assert.Equal(t, "http://docs.local/api/track?fileName=a+b.docx&userAddress=scope1", s.CallbackURL("a b.docx", "scope1"))
}

func TestImportAndArchive(t *testing.T) {
	s := newTestStorage(t)

	src := filepath.Join(t.TempDir(), "fetched.tmp")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0644))
	require.NoError(t, s.Import(src, "doc.docx", "scope1"))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err), "导入后源文件应被移走")

	dst := filepath.Join(t.TempDir(), "nested", "prev.docx")
	require.NoError(t, s.Archive("doc.docx", "scope1", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}
