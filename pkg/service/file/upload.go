package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
)

func (s *fileService) Upload(ctx context.Context, req *model.UploadRequest) (*model.UploadResult, error) {
	name := baseName(req.FileName)
	scope := req.User.Scope

	logState("Upload", name, stateValidating, "")
	if err := s.validate(name, req.Size); err != nil {
		logState("Upload", name, stateRejected, err.Error())
		return nil, err
	}

	logState("Upload", name, statePersisting, "")
	finalName, err := s.store.CorrectName(name, scope)
	if err != nil {
		logState("Upload", name, stateFailed, err.Error())
		return nil, err
	}

	// 声明的大小可能不可信，多读一个字节来判断实际内容是否超限
	written, err := s.store.Save(ctx, finalName, scope, io.LimitReader(req.Body, s.settings.MaxFileSize+1))
	if err != nil {
		logState("Upload", finalName, stateFailed, err.Error())
		return nil, err
	}
	if written == 0 || written > s.settings.MaxFileSize {
		_ = s.store.Remove(finalName, scope)
		logState("Upload", finalName, stateRejected, "实际大小不合法")
		return nil, constant.NewSizeError()
	}

	if err := s.writeCreatedInfo(finalName, scope, req.User); err != nil {
		logState("Upload", finalName, stateFailed, err.Error())
		return nil, err
	}

	logState("Upload", finalName, stateDone, fmt.Sprintf("%d bytes", written))
	return &model.UploadResult{
		FileName: finalName,
		Status:   model.UploadStatusPersisted,
		Size:     written,
		Version:  1,
	}, nil
}

// fileNameFromURL 取地址路径的最后一段作为文件名
func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: 无效的文件地址 '%s'", constant.ErrBadRequest, rawURL)
	}
	name := baseName(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("%w: 无法从地址 '%s' 中得到文件名", constant.ErrBadRequest, rawURL)
	}
	return name, nil
}

func (s *fileService) UploadFromURL(ctx context.Context, req *model.URLUploadRequest) (*model.UploadResult, error) {
	name, err := fileNameFromURL(req.URL)
	if err != nil {
		return nil, err
	}
	scope := req.User.Scope

	// 远程文件的大小要下载后才知道，这里先只校验类型
	logState("UploadFromURL", name, stateValidating, "")
	if !s.settings.IsAllowed(name) {
		logState("UploadFromURL", name, stateRejected, constant.ReasonType)
		return nil, constant.NewTypeError()
	}

	finalName, err := s.store.CorrectName(name, scope)
	if err != nil {
		return nil, err
	}

	logState("UploadFromURL", finalName, statePersisting, req.URL)
	stagingPath, size, err := s.fetchToStaging(ctx, req.URL, s.settings.MaxFileSize)
	if err != nil {
		if errors.Is(err, constant.ErrRemoteFetch) {
			logState("UploadFromURL", finalName, stateFailed, err.Error())
			return &model.UploadResult{
				FileName: finalName,
				Status:   model.UploadStatusFetchFailed,
				Reason:   err.Error(),
			}, nil
		}
		return nil, err
	}

	if size <= 0 || size > s.settings.MaxFileSize {
		_ = os.Remove(stagingPath)
		logState("UploadFromURL", finalName, stateRejected, constant.ReasonSize)
		return nil, constant.NewSizeError()
	}

	if err := s.store.Import(stagingPath, finalName, scope); err != nil {
		_ = os.Remove(stagingPath)
		logState("UploadFromURL", finalName, stateFailed, err.Error())
		return nil, err
	}
	if err := s.writeCreatedInfo(finalName, scope, req.User); err != nil {
		logState("UploadFromURL", finalName, stateFailed, err.Error())
		return nil, err
	}

	logState("UploadFromURL", finalName, stateDone, fmt.Sprintf("%d bytes", size))
	return &model.UploadResult{
		FileName: finalName,
		Status:   model.UploadStatusPersisted,
		Size:     size,
		Version:  1,
	}, nil
}
