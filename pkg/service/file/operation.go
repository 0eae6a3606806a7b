package file

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
)

func (s *fileService) Remove(ctx context.Context, fileName, scope string) error {
	name := baseName(fileName)
	if err := s.store.Remove(name, scope); err != nil {
		return err
	}
	s.forgetProgress(ctx, name, scope)
	log.Printf("[Remove] %s 已删除 (scope=%s)", name, scope)
	return nil
}

func (s *fileService) List(ctx context.Context, scope string) ([]*model.FileListItem, error) {
	files, err := s.store.StoredFiles(scope)
	if err != nil {
		return nil, err
	}
	items := make([]*model.FileListItem, 0, len(files))
	for _, f := range files {
		items = append(items, &model.FileListItem{
			Name:         f.Name,
			DocumentType: string(constant.DocumentTypeOf(f.Name)),
			Version:      f.Version,
			Size:         f.Size,
			Updated:      f.ModTime.Format(createdTimeLayout),
			CanEdit:      s.settings.CanEdit(f.Name),
			CanConvert:   s.settings.CanConvert(f.Name),
			URL:          s.store.FileURL(f.Name, scope),
		})
	}
	return items, nil
}

// FilesInfo 返回存储文件的信息，fileID 不为空时只返回修订键与之相同的那个文件
func (s *fileService) FilesInfo(ctx context.Context, scope, fileID string) ([]*model.FileInfo, error) {
	files, err := s.store.StoredFiles(scope)
	if err != nil {
		return nil, err
	}

	infos := make([]*model.FileInfo, 0, len(files))
	for _, f := range files {
		info := &model.FileInfo{
			Version:           f.Version,
			ID:                f.Key,
			ContentLength:     fmt.Sprintf("%.2f KB", float64(f.Size)/1024.0),
			PureContentLength: f.Size,
			Title:             f.Name,
			Updated:           f.ModTime.Format(createdTimeLayout),
		}
		if fileID == "" {
			infos = append(infos, info)
			continue
		}
		if info.ID == fileID {
			return []*model.FileInfo{info}, nil
		}
	}
	if fileID != "" {
		return nil, fmt.Errorf("%w: 没有 id 为 '%s' 的文件", constant.ErrNotFound, fileID)
	}
	return infos, nil
}

// CleanupStaging 删除抓取远程文件时遗留在暂存目录中的过期文件
func (s *fileService) CleanupStaging(ctx context.Context, olderThan time.Duration) (int, error) {
	dir := s.stagingDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: 无法读取暂存目录 '%s': %v", constant.ErrIO, dir, err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), stagingPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			log.Printf("警告: 删除暂存文件 '%s' 失败: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}
