package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/converter"
)

// Convert 对同一作用域下同一文件的并发转换请求只执行一次，其余请求共享结果
func (s *fileService) Convert(ctx context.Context, req *model.ConvertRequest) (*model.ConvertResult, error) {
	key := progressKey(req.User.Scope, baseName(req.FileName))
	v, err, shared := s.convertGroup.Do(key, func() (any, error) {
		return s.convert(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Printf("[Convert] 合并了 '%s' 的并发转换请求", req.FileName)
	}
	return v.(*model.ConvertResult), nil
}

func (s *fileService) convert(ctx context.Context, req *model.ConvertRequest) (*model.ConvertResult, error) {
	name := baseName(req.FileName)
	scope := req.User.Scope

	if _, err := s.store.Stat(name, scope); err != nil {
		return nil, err
	}

	internalExt := constant.InternalExtension(name)
	if !s.settings.CanConvert(name) || internalExt == "" {
		logState("Convert", name, stateDone, "无需转换")
		return &model.ConvertResult{FileName: name, Status: model.ConvertStatusSkipped, Step: 100}, nil
	}

	fileURL := req.FileURL
	if fileURL == "" {
		fileURL = s.store.FileURL(name, scope)
	}

	logState("Convert", name, stateConverting, internalExt)
	resp, err := s.converter.Convert(ctx, &converter.Request{
		FileURL: fileURL,
		FromExt: constant.FileExt(name),
		ToExt:   internalExt,
		Key:     idgen.GenerateRevisionID(fileURL),
		Title:   name,
		Async:   false,
	})
	if err != nil {
		logState("Convert", name, stateFailed, err.Error())
		return nil, err
	}

	if !resp.Done() {
		logState("Convert", name, statePolling, fmt.Sprintf("%d%%", resp.Percent))
		s.rememberProgress(ctx, name, scope, resp.Percent)
		return &model.ConvertResult{FileName: name, Status: model.ConvertStatusInProgress, Step: resp.Percent}, nil
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	targetName, err := s.store.CorrectName(stem+internalExt, scope)
	if err != nil {
		logState("Convert", name, stateFailed, err.Error())
		return nil, err
	}

	stagingPath, _, err := s.fetchToStaging(ctx, resp.FileURL, 0)
	if err != nil {
		logState("Convert", name, stateFailed, err.Error())
		return nil, err
	}
	if err := s.store.Import(stagingPath, targetName, scope); err != nil {
		_ = os.Remove(stagingPath)
		logState("Convert", name, stateFailed, err.Error())
		return nil, err
	}

	// 原文件及其整个历史都会被删除，之后的步骤失败也不回滚
	if err := s.store.Remove(name, scope); err != nil {
		logState("Convert", name, stateFailed, err.Error())
		return nil, err
	}
	if err := s.writeCreatedInfo(targetName, scope, req.User); err != nil {
		logState("Convert", targetName, stateFailed, err.Error())
		return nil, err
	}
	s.forgetProgress(ctx, name, scope)

	logState("Convert", name, stateDone, targetName)
	return &model.ConvertResult{FileName: targetName, Status: model.ConvertStatusDone, Step: 100}, nil
}

func (s *fileService) rememberProgress(ctx context.Context, fileName, scope string, step int) {
	if s.cacheSvc == nil {
		return
	}
	data, err := json.Marshal(model.ConvertProgress{FileName: fileName, Step: step, UpdatedAt: s.now().Unix()})
	if err != nil {
		return
	}
	if err := s.cacheSvc.Set(ctx, progressKey(scope, fileName), string(data), convertProgressTTL); err != nil {
		log.Printf("警告: 缓存转换进度失败: %v", err)
	}
}

func (s *fileService) forgetProgress(ctx context.Context, fileName, scope string) {
	if s.cacheSvc == nil {
		return
	}
	if err := s.cacheSvc.Delete(ctx, progressKey(scope, fileName)); err != nil {
		log.Printf("警告: 清除转换进度失败: %v", err)
	}
}

func (s *fileService) ConvertProgress(ctx context.Context, fileName, scope string) (*model.ConvertProgress, error) {
	if s.cacheSvc == nil {
		return nil, constant.ErrNotFound
	}
	raw, err := s.cacheSvc.Get(ctx, progressKey(scope, baseName(fileName)))
	if err != nil {
		return nil, fmt.Errorf("读取转换进度失败: %w", err)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: 没有 '%s' 的转换记录", constant.ErrNotFound, fileName)
	}
	var progress model.ConvertProgress
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		return nil, fmt.Errorf("解析转换进度失败: %w", err)
	}
	return &progress, nil
}

func (s *fileService) ConvertProgressList(ctx context.Context, scope string) ([]*model.ConvertProgress, error) {
	list := []*model.ConvertProgress{}
	if s.cacheSvc == nil {
		return list, nil
	}
	keys, err := s.cacheSvc.Scan(ctx, progressPattern(scope))
	if err != nil {
		return nil, fmt.Errorf("扫描转换进度失败: %w", err)
	}
	for _, key := range keys {
		raw, err := s.cacheSvc.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("读取转换进度失败: %w", err)
		}
		// 扫描与读取之间过期的键直接跳过
		if raw == "" {
			continue
		}
		var progress model.ConvertProgress
		if err := json.Unmarshal([]byte(raw), &progress); err != nil {
			log.Printf("警告: 跳过无法解析的转换进度 %s: %v", key, err)
			continue
		}
		// "::1" 的模式也会匹配 "::1:2" 这类作用域，以完整键为准
		if progressKey(scope, progress.FileName) != key {
			continue
		}
		list = append(list, &progress)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FileName < list[j].FileName })
	return list, nil
}
