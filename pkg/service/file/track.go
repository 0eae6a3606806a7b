package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/anzhiyu-c/anheyu-docs/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/converter"
)

func (s *fileService) Track(ctx context.Context, req *model.TrackRequest) (*model.TrackResult, error) {
	if req.Payload == nil {
		return nil, fmt.Errorf("%w: 回调请求体为空", constant.ErrBadRequest)
	}
	payload, err := s.verifyTrackPayload(req.Payload, req.HeaderToken)
	if err != nil {
		return nil, err
	}

	name := baseName(req.FileName)
	scope := req.UserAddress
	log.Printf("[Track] %s 状态 %d (key=%s)", name, payload.Status, payload.Key)

	switch payload.Status {
	case constant.TrackStatusMustSave, constant.TrackStatusCorrupted:
		err = s.processSave(ctx, payload, name, scope)
	case constant.TrackStatusMustForceSave, constant.TrackStatusCorruptedForceSave:
		err = s.processForceSave(ctx, payload, name, scope)
	}
	if err != nil {
		log.Printf("[Track] %s 处理失败: %v", name, err)
		return nil, err
	}
	return &model.TrackResult{Error: 0}, nil
}

// verifyTrackPayload 在启用签名时用令牌中的声明替换请求体。
// 令牌优先取请求体中的 token，其次取请求头；请求头令牌的声明包在 payload 字段里。
func (s *fileService) verifyTrackPayload(body *model.TrackPayload, headerToken string) (*model.TrackPayload, error) {
	if s.signer == nil || !s.signer.Enabled() {
		return body, nil
	}

	token := body.Token
	if token == "" {
		token = headerToken
	}
	if token == "" {
		return nil, fmt.Errorf("%w: 缺少 JWT", constant.ErrInvalidToken)
	}

	claims, err := s.signer.Decode(token)
	if err != nil {
		return nil, err
	}
	var source any = claims
	if inner, ok := claims["payload"]; ok {
		if _, isMap := inner.(map[string]any); !isMap {
			return nil, fmt.Errorf("%w: payload 格式错误", constant.ErrInvalidToken)
		}
		source = inner
	}

	data, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constant.ErrInvalidToken, err)
	}
	var verified model.TrackPayload
	if err := json.Unmarshal(data, &verified); err != nil {
		return nil, fmt.Errorf("%w: 无法解析令牌中的回调数据: %v", constant.ErrInvalidToken, err)
	}
	return &verified, nil
}

// downloadExt 返回回调内容的扩展名，优先使用 filetype 字段
func downloadExt(p *model.TrackPayload) string {
	if p.FileType != "" {
		return "." + strings.ToLower(strings.TrimPrefix(p.FileType, "."))
	}
	if u, err := url.Parse(p.URL); err == nil {
		return constant.FileExt(u.Path)
	}
	return constant.FileExt(p.URL)
}

// resolveDownload 在回调内容格式与原文件不一致时尝试转换回原格式。
// 转换不可用时返回 false，调用方应把内容另存为新扩展名的文件。
func (s *fileService) resolveDownload(ctx context.Context, p *model.TrackPayload, fileName string) (string, bool) {
	curExt := constant.FileExt(fileName)
	ext := downloadExt(p)
	if ext == curExt || ext == "" {
		return p.URL, true
	}

	resp, err := s.converter.Convert(ctx, &converter.Request{
		FileURL: p.URL,
		FromExt: ext,
		ToExt:   curExt,
		Key:     idgen.GenerateRevisionID(p.URL),
		Title:   fileName,
		Async:   false,
	})
	if err != nil || !resp.Done() {
		log.Printf("[Track] %s 无法转换回 %s，内容将另存为 %s", fileName, curExt, ext)
		return p.URL, false
	}
	return resp.FileURL, true
}

// changesHistory 取出要写入 changes.json 的文本。
// changeshistory 以 JSON 字符串形式传来，history 则是对象。
func changesHistory(p *model.TrackPayload) []byte {
	raw := bytes.TrimSpace(p.ChangesHistory)
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			raw = []byte(text)
		}
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = bytes.TrimSpace(p.History)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

func (s *fileService) processSave(ctx context.Context, p *model.TrackPayload, fileName, scope string) (err error) {
	if p.URL == "" {
		return fmt.Errorf("%w: 回调缺少下载地址", constant.ErrBadRequest)
	}
	// 原文件已不存在时不建立任何历史目录
	current, err := s.store.Stat(fileName, scope)
	if err != nil {
		return err
	}

	downloadURL, sameFormat := s.resolveDownload(ctx, p, fileName)
	if !sameFormat {
		return s.saveAsNewFile(ctx, p, fileName, scope)
	}

	// 先把新内容和差异包下载到暂存目录，失败时不改动已有版本
	contentPath, _, err := s.fetchToStaging(ctx, downloadURL, 0)
	if err != nil {
		return err
	}
	defer os.Remove(contentPath)

	var diffPath string
	if p.ChangesURL != "" {
		diffPath, _, err = s.fetchToStaging(ctx, p.ChangesURL, 0)
		if err != nil {
			return err
		}
		defer os.Remove(diffPath)
	}

	histDir := s.store.HistoryDir(current.Path)
	_, statErr := os.Stat(histDir)
	histCreated := os.IsNotExist(statErr)
	if err := os.MkdirAll(histDir, os.ModePerm); err != nil {
		return fmt.Errorf("%w: 无法创建历史目录 '%s': %v", constant.ErrIO, histDir, err)
	}
	verDir := s.store.VersionDir(histDir, s.store.FileVersionCount(histDir))
	// 中途失败时撤掉本次建立的目录，版本号不能留下空洞
	defer func() {
		if err == nil {
			return
		}
		cleanup := verDir
		if histCreated {
			cleanup = histDir
		}
		if rmErr := os.RemoveAll(cleanup); rmErr != nil {
			log.Printf("警告: 回滚版本目录 '%s' 失败: %v", cleanup, rmErr)
		}
	}()
	if err = os.MkdirAll(verDir, os.ModePerm); err != nil {
		return fmt.Errorf("%w: 无法创建版本目录 '%s': %v", constant.ErrIO, verDir, err)
	}

	prevPath := filepath.Join(verDir, constant.PrevFilePrefix+constant.FileExt(fileName))
	if err = s.store.Archive(fileName, scope, prevPath); err != nil {
		return err
	}

	if diffPath != "" {
		if err = storage.MoveFile(diffPath, filepath.Join(verDir, constant.DiffFileName)); err != nil {
			return fmt.Errorf("%w: 保存差异包失败: %v", constant.ErrIO, err)
		}
	}
	if changes := changesHistory(p); changes != nil {
		if err = os.WriteFile(filepath.Join(verDir, constant.ChangesFileName), changes, 0644); err != nil {
			return fmt.Errorf("%w: 写入变更记录失败: %v", constant.ErrIO, err)
		}
	}
	if err = os.WriteFile(filepath.Join(verDir, constant.KeyFileName), []byte(p.Key), 0644); err != nil {
		return fmt.Errorf("%w: 写入版本键失败: %v", constant.ErrIO, err)
	}

	if err = s.store.Import(contentPath, fileName, scope); err != nil {
		return err
	}

	forcesavePath, fsErr := s.store.ForcesavePath(fileName, scope, false)
	if fsErr == nil && forcesavePath != "" {
		if rmErr := os.Remove(forcesavePath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("警告: 删除强制保存副本失败: %v", rmErr)
		}
	}

	log.Printf("[Track] %s 已保存为第 %d 版", fileName, s.store.FileVersionCount(histDir))
	return nil
}

// saveAsNewFile 把无法转换回原格式的内容保存为一个新文件，原文件保持不变
func (s *fileService) saveAsNewFile(ctx context.Context, p *model.TrackPayload, fileName, scope string) error {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	newName, err := s.store.CorrectName(stem+downloadExt(p), scope)
	if err != nil {
		return err
	}
	contentPath, _, err := s.fetchToStaging(ctx, p.URL, 0)
	if err != nil {
		return err
	}
	if err := s.store.Import(contentPath, newName, scope); err != nil {
		_ = os.Remove(contentPath)
		return err
	}

	user := model.Identity{Scope: scope}
	if len(p.Users) > 0 {
		user.UserID = p.Users[0]
	}
	if err := s.writeCreatedInfo(newName, scope, user); err != nil {
		return err
	}
	log.Printf("[Track] %s 的新内容已另存为 %s", fileName, newName)
	return nil
}

func (s *fileService) processForceSave(ctx context.Context, p *model.TrackPayload, fileName, scope string) error {
	if p.URL == "" {
		return fmt.Errorf("%w: 回调缺少下载地址", constant.ErrBadRequest)
	}
	if _, err := s.store.Stat(fileName, scope); err != nil {
		return err
	}

	downloadURL, sameFormat := s.resolveDownload(ctx, p, fileName)
	contentPath, _, err := s.fetchToStaging(ctx, downloadURL, 0)
	if err != nil {
		return err
	}
	target, err := s.store.ForcesavePath(fileName, scope, true)
	if err != nil {
		_ = os.Remove(contentPath)
		return err
	}
	// 无法转回原格式的副本仍放在原文件的历史目录下，扩展名随内容
	if !sameFormat {
		target = strings.TrimSuffix(target, filepath.Ext(target)) + downloadExt(p)
	}
	if err := storage.MoveFile(contentPath, target); err != nil {
		_ = os.Remove(contentPath)
		return fmt.Errorf("%w: 保存强制保存副本失败: %v", constant.ErrIO, err)
	}
	log.Printf("[Track] %s 强制保存完成: %s", fileName, filepath.Base(target))
	return nil
}
