package file

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-docs/pkg/config"
	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/converter"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/utility"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	createdTimeLayout     = "2006-01-02 15:04:05"
	stagingPrefix         = "fetch-"
	convertProgressPrefix = "convert:progress:"
	convertProgressTTL    = 10 * time.Minute
)

// FileService 定义了上传、转换以及文档服务器回调相关的业务逻辑。
// 每个操作的结果都通过返回值交给调用方，服务本身不保存“最近一次上传”之类的状态。
type FileService interface {
	// Upload 校验并保存一个上传的文件，同时创建历史目录和 createdInfo.json。
	Upload(ctx context.Context, req *model.UploadRequest) (*model.UploadResult, error)
	// UploadFromURL 从远程地址抓取文件；抓取失败时返回 fetch_failed 结果而不是错误。
	UploadFromURL(ctx context.Context, req *model.URLUploadRequest) (*model.UploadResult, error)
	// Convert 把旧格式文件转换为内部格式，未完成时返回进度且不改动任何文件。
	Convert(ctx context.Context, req *model.ConvertRequest) (*model.ConvertResult, error)
	// ConvertProgress 返回最近一次报告的转换进度。
	ConvertProgress(ctx context.Context, fileName, scope string) (*model.ConvertProgress, error)
	// ConvertProgressList 返回作用域内所有仍在缓存中的转换进度，按文件名排序。
	ConvertProgressList(ctx context.Context, scope string) ([]*model.ConvertProgress, error)
	// Track 处理文档服务器的状态回调。
	Track(ctx context.Context, req *model.TrackRequest) (*model.TrackResult, error)
	// Remove 删除文件及其历史。
	Remove(ctx context.Context, fileName, scope string) error
	// List 列出作用域内的文件。
	List(ctx context.Context, scope string) ([]*model.FileListItem, error)
	// FilesInfo 返回文件的存储信息；fileID 不为空时只返回修订键匹配的文件。
	FilesInfo(ctx context.Context, scope, fileID string) ([]*model.FileInfo, error)
	// CleanupStaging 清理暂存目录中超过 olderThan 的抓取残留文件。
	CleanupStaging(ctx context.Context, olderThan time.Duration) (int, error)
}

// fileService 是 FileService 接口的实现。
type fileService struct {
	settings  *config.DocumentSettings
	store     storage.Store
	converter converter.Client
	fetcher   Fetcher
	signer    auth.Signer
	cacheSvc  utility.CacheService
	now       func() time.Time

	convertGroup singleflight.Group
}

// NewFileService 是 fileService 的构造函数
func NewFileService(
	settings *config.DocumentSettings,
	store storage.Store,
	converterClient converter.Client,
	fetcher Fetcher,
	signer auth.Signer,
	cacheSvc utility.CacheService,
) FileService {
	if settings.TempDir != "" {
		if err := os.MkdirAll(settings.TempDir, os.ModePerm); err != nil {
			log.Printf("警告: 无法创建暂存目录 %s: %v", settings.TempDir, err)
		}
	}
	return &fileService{
		settings:  settings,
		store:     store,
		converter: converterClient,
		fetcher:   fetcher,
		signer:    signer,
		cacheSvc:  cacheSvc,
		now:       time.Now,
	}
}

// state 是上传/转换流程中的阶段
type state string

const (
	stateValidating state = "validating"
	statePersisting state = "persisting"
	stateConverting state = "converting"
	statePolling    state = "polling"
	stateDone       state = "done"
	stateRejected   state = "rejected"
	stateFailed     state = "failed"
)

func logState(op, fileName string, st state, detail string) {
	if detail == "" {
		log.Printf("[%s] %s -> %s", op, fileName, st)
		return
	}
	log.Printf("[%s] %s -> %s (%s)", op, fileName, st, detail)
}

// baseName 只保留文件名的最后一段
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

func (s *fileService) validate(fileName string, size int64) error {
	if size <= 0 || size > s.settings.MaxFileSize {
		return constant.NewSizeError()
	}
	if !s.settings.IsAllowed(fileName) {
		return constant.NewTypeError()
	}
	return nil
}

func (s *fileService) createdInfo(user model.Identity) *model.CreatedInfo {
	uid := user.UserID
	if uid == "" {
		uid = constant.DefaultUserIDPage
	}
	name := user.UserName
	if name == "" {
		name = constant.DefaultUserName
	}
	return &model.CreatedInfo{
		Created:  s.now().Format(createdTimeLayout),
		UID:      uid,
		UserName: name,
	}
}

// writeCreatedInfo 为刚落盘的文件创建历史目录。
// 同名文件被外部删除后可能残留旧的历史目录，新文件从第 1 版重新开始。
func (s *fileService) writeCreatedInfo(fileName, scope string, user model.Identity) error {
	storagePath, err := s.store.StoragePath(fileName, scope)
	if err != nil {
		return err
	}
	histDir := s.store.HistoryDir(storagePath)
	if err := os.RemoveAll(histDir); err != nil {
		return fmt.Errorf("%w: 清理残留历史目录 '%s' 失败: %v", constant.ErrIO, histDir, err)
	}
	return s.store.WriteCreatedInfo(storagePath, s.createdInfo(user))
}

// stagingDir 返回暂存目录，未配置时使用系统临时目录
func (s *fileService) stagingDir() string {
	if s.settings.TempDir != "" {
		return s.settings.TempDir
	}
	return os.TempDir()
}

// fetchToStaging 把远程内容下载到暂存目录，返回暂存文件路径和字节数。
// limit 大于 0 时最多读取 limit+1 个字节，由调用方判断是否超限。
func (s *fileService) fetchToStaging(ctx context.Context, rawURL string, limit int64) (string, int64, error) {
	dir := s.stagingDir()
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", 0, fmt.Errorf("%w: 无法创建暂存目录 '%s': %v", constant.ErrIO, dir, err)
	}
	stagingPath := filepath.Join(dir, stagingPrefix+uuid.NewString()+".tmp")
	f, err := os.Create(stagingPath)
	if err != nil {
		return "", 0, fmt.Errorf("%w: 无法创建暂存文件: %v", constant.ErrIO, err)
	}

	n, fetchErr := s.fetcher.Fetch(ctx, rawURL, f, limit)
	closeErr := f.Close()
	if fetchErr != nil {
		_ = os.Remove(stagingPath)
		return "", 0, fetchErr
	}
	if closeErr != nil {
		_ = os.Remove(stagingPath)
		return "", 0, fmt.Errorf("%w: 关闭暂存文件失败: %v", constant.ErrIO, closeErr)
	}
	return stagingPath, n, nil
}

func progressKey(scope, fileName string) string {
	return convertProgressPrefix + scope + ":" + fileName
}

// progressPattern 匹配作用域下的全部进度键，作用域里的通配字符按字面处理
func progressPattern(scope string) string {
	var b strings.Builder
	b.WriteString(convertProgressPrefix)
	for _, r := range scope {
		if strings.ContainsRune(`*?[]\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteString(":*")
	return b.String()
}
