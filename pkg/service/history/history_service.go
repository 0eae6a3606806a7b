/*
 * @Description: 根据历史目录中的边车文件重建文件版本历史
 * @Author: 安知鱼
 * @Date: 2025-09-02 16:20:11
 * @LastEditTime: 2025-10-17 11:48:05
 * @LastEditors: 安知鱼
 */
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anzhiyu-c/anheyu-docs/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
)

// HistoryStore 是历史构建所需的存储能力
type HistoryStore interface {
	storage.PathResolver
	storage.URLBuilder
	DocumentKey(fileName, scope string) (string, error)
}

// IHistoryService 定义了版本历史相关的业务逻辑接口。
type IHistoryService interface {
	// Build 返回文件的完整版本历史；文件还没有历史目录时返回 nil, nil。
	Build(ctx context.Context, fileName, scope string) (*model.History, error)
}

type historyService struct {
	store  HistoryStore
	signer auth.Signer
}

// NewHistoryService 是 historyService 的构造函数
func NewHistoryService(store HistoryStore, signer auth.Signer) IHistoryService {
	return &historyService{store: store, signer: signer}
}

// Build 从版本 1 到当前版本依次读取边车文件。
// 任何一个已归档版本缺少 key.txt 或 changes.json 都会使整个调用失败。
func (s *historyService) Build(ctx context.Context, fileName, scope string) (*model.History, error) {
	storagePath, err := s.store.StoragePath(fileName, scope)
	if err != nil {
		return nil, err
	}
	histDir := s.store.HistoryDir(storagePath)
	current := s.store.FileVersionCount(histDir)
	if current == 0 {
		return nil, nil
	}

	currentKey, err := s.store.DocumentKey(fileName, scope)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(storagePath)
	ext := constant.FileExt(name)
	fileType := strings.TrimPrefix(ext, ".")
	histDirName := filepath.Base(histDir)

	result := &model.History{
		CurrentVersion: current,
		Versions:       make([]model.VersionRecord, 0, current),
		Reopen:         make(map[int]model.ReopenData, current),
	}

	for version := 1; version <= current; version++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		verDir := s.store.VersionDir(histDir, version)

		key := currentKey
		if version < current {
			key, err = readKey(verDir)
			if err != nil {
				return nil, fmt.Errorf("%w: 版本 %d: %v", constant.ErrMissingHistoryData, version, err)
			}
		}

		record := model.VersionRecord{Version: version, Key: key}
		if version == 1 {
			info, err := readCreatedInfo(histDir)
			if err != nil {
				return nil, fmt.Errorf("%w: 版本 1: %v", constant.ErrMissingHistoryData, err)
			}
			if info != nil {
				record.Created = info.Created
				record.User = &model.HistoryUser{ID: info.UID, Name: info.UserName}
			}
		} else {
			// 导致版本 i 的变更记录保存在版本 i-1 的目录里
			changes, author, err := readChanges(s.store.VersionDir(histDir, version-1))
			if err != nil {
				return nil, fmt.Errorf("%w: 版本 %d: %v", constant.ErrMissingHistoryData, version, err)
			}
			record.Created = author.Created
			record.User = &model.HistoryUser{ID: author.User.ID, Name: author.User.Name}
			record.Changes = changes.Changes
			record.ServerVersion = changes.ServerVersion
		}
		result.Versions = append(result.Versions, record)

		reopen := model.ReopenData{
			FileType: fileType,
			Version:  version,
			Key:      key,
		}
		if version == current {
			reopen.URL = s.store.FileURL(name, scope)
		} else {
			reopen.URL = s.store.PathURL(scope, histDirName, strconv.Itoa(version), constant.PrevFilePrefix+ext)
		}
		if version > 1 {
			prev := result.Reopen[version-1]
			reopen.Previous = &model.ReopenLink{FileType: prev.FileType, Key: prev.Key, URL: prev.URL}
			reopen.ChangesURL = s.store.PathURL(scope, histDirName, strconv.Itoa(version-1), constant.DiffFileName)
		}
		if s.signer != nil && s.signer.Enabled() {
			token, err := s.signer.Encode(reopen)
			if err != nil {
				return nil, fmt.Errorf("为版本 %d 签发令牌失败: %w", version, err)
			}
			reopen.Token = token
		}
		result.Reopen[version] = reopen
	}

	return result, nil
}

func readKey(verDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(verDir, constant.KeyFileName))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readCreatedInfo 文件不存在时返回 nil, nil；存在但无法解析时返回错误
func readCreatedInfo(histDir string) (*model.CreatedInfo, error) {
	data, err := os.ReadFile(filepath.Join(histDir, constant.CreatedInfoFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var info model.CreatedInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", constant.CreatedInfoFileName, err)
	}
	return &info, nil
}

func readChanges(verDir string) (*model.ChangesRecord, *model.ChangeAuthor, error) {
	data, err := os.ReadFile(filepath.Join(verDir, constant.ChangesFileName))
	if err != nil {
		return nil, nil, err
	}
	var record model.ChangesRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, nil, fmt.Errorf("解析 %s 失败: %w", constant.ChangesFileName, err)
	}
	if len(record.Changes) == 0 {
		return nil, nil, fmt.Errorf("%s 中没有任何变更", constant.ChangesFileName)
	}
	var author model.ChangeAuthor
	if err := json.Unmarshal(record.Changes[0], &author); err != nil {
		return nil, nil, fmt.Errorf("解析首条变更失败: %w", err)
	}
	return &record, &author, nil
}

// Marshal 生成返回给编辑器的两段 JSON：历史列表和按版本排列的重新打开数据
func Marshal(h *model.History) (historyJSON, reopenJSON []byte, err error) {
	if h == nil {
		return []byte("null"), []byte("[]"), nil
	}
	historyJSON, err = json.Marshal(h)
	if err != nil {
		return nil, nil, fmt.Errorf("序列化历史列表失败: %w", err)
	}
	reopenJSON, err = json.Marshal(ReopenList(h))
	if err != nil {
		return nil, nil, fmt.Errorf("序列化历史数据失败: %w", err)
	}
	return historyJSON, reopenJSON, nil
}

// ReopenList 按版本号升序返回重新打开数据
func ReopenList(h *model.History) []model.ReopenData {
	if h == nil {
		return nil
	}
	list := make([]model.ReopenData, 0, len(h.Reopen))
	for v := 1; v <= h.CurrentVersion; v++ {
		if r, ok := h.Reopen[v]; ok {
			list = append(list, r)
		}
	}
	return list
}
