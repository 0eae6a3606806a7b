/*
 * @Description: 组装文档编辑器的打开配置
 * @Author: 安知鱼
 * @Date: 2025-09-03 10:02:47
 * @LastEditTime: 2025-10-17 15:26:19
 * @LastEditors: 安知鱼
 */
package editor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/types"
	"github.com/anzhiyu-c/anheyu-docs/pkg/config"
	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
)

// BuildRequest 是构建配置所需的全部输入，修订键和各个地址都由调用方提供。
type BuildRequest struct {
	FileName      string
	Mode          string // 默认 edit
	Type          string // 默认 desktop
	UserID        string
	UserName      string
	Lang          string
	ActionData    string // 原始 JSON 文本，为空表示没有
	DocumentKey   string
	FileURL       string // 文档服务器下载文件的地址
	UserFileURL   string // 浏览器下载文件的地址
	CallbackURL   string
	GobackURL     string
	DefaultUserID string // UserID 为空时使用，默认 uid-0
}

// ConfigParams 是 HTTP 层传入的打开参数
type ConfigParams struct {
	Mode          string
	Type          string
	Lang          string
	ActionData    string
	User          model.Identity
	DefaultUserID string
}

// EditorStore 提供修订键和各类地址
type EditorStore interface {
	DocumentKey(fileName, scope string) (string, error)
	FileURL(fileName, scope string) string
	CallbackURL(fileName, scope string) string
}

// IEditorService 定义了编辑器配置相关的业务逻辑接口。
type IEditorService interface {
	// Build 是纯函数：相同的输入总是得到逐字节相同的配置。
	Build(req BuildRequest) (types.Value, error)
	// ForFile 读取文件当前的修订键和地址后构建配置。
	ForFile(ctx context.Context, fileName string, params ConfigParams) (types.Value, error)
}

type editorService struct {
	settings *config.DocumentSettings
	signer   auth.Signer
	store    EditorStore
}

// NewEditorService 是 editorService 的构造函数
func NewEditorService(settings *config.DocumentSettings, signer auth.Signer, store EditorStore) IEditorService {
	return &editorService{settings: settings, signer: signer, store: store}
}

func (s *editorService) ForFile(ctx context.Context, fileName string, params ConfigParams) (types.Value, error) {
	if err := ctx.Err(); err != nil {
		return types.Value{}, err
	}
	name := filepath.Base(fileName)
	scope := params.User.Scope

	key, err := s.store.DocumentKey(name, scope)
	if err != nil {
		return types.Value{}, err
	}
	fileURL := s.store.FileURL(name, scope)

	return s.Build(BuildRequest{
		FileName:      name,
		Mode:          params.Mode,
		Type:          params.Type,
		UserID:        params.User.UserID,
		UserName:      params.User.UserName,
		Lang:          params.Lang,
		ActionData:    params.ActionData,
		DocumentKey:   key,
		FileURL:       fileURL,
		UserFileURL:   fileURL,
		CallbackURL:   s.store.CallbackURL(name, scope),
		GobackURL:     s.settings.PublicURL + "/",
		DefaultUserID: params.DefaultUserID,
	})
}

func (s *editorService) Build(req BuildRequest) (types.Value, error) {
	title := filepath.Base(req.FileName)
	fileType := strings.TrimPrefix(constant.FileExt(title), ".")
	docType := constant.DocumentTypeOf(title)
	canEdit := s.settings.CanEdit(title)

	mode := req.Mode
	if mode == "" {
		mode = constant.ModeEdit
	}
	editorType := req.Type
	if editorType == "" {
		editorType = constant.EditorTypeDesktop
	}
	effectiveMode := constant.ModeView
	if canEdit && mode != constant.ModeView {
		effectiveMode = constant.ModeEdit
	}
	lang := req.Lang
	if lang == "" {
		lang = constant.DefaultLang
	}

	document := types.Object(
		types.Field("title", types.String(title)),
		types.Field("url", types.String(req.FileURL)),
		types.Field("fileType", types.String(fileType)),
		types.Field("key", types.String(req.DocumentKey)),
		types.Field("info", documentInfo(req.UserID)),
		types.Field("permissions", permissionsValue(ResolvePermissions(mode, canEdit))),
	)

	editorConfig := types.Object()
	if req.ActionData != "" {
		action, err := types.Parse([]byte(req.ActionData))
		if err != nil {
			return types.Value{}, fmt.Errorf("%w: actionLink 不是合法的 JSON: %v", constant.ErrConfigBuild, err)
		}
		editorConfig = editorConfig.With("actionLink", action)
	}
	editorConfig = editorConfig.
		With("mode", types.String(effectiveMode)).
		With("lang", types.String(lang)).
		With("callbackUrl", types.String(req.CallbackURL)).
		With("user", userValue(req))
	// 只有嵌入式页面才需要分享与保存地址
	if editorType == constant.EditorTypeEmbedded {
		editorConfig = editorConfig.With("embedded", types.Object(
			types.Field("saveUrl", types.String(req.UserFileURL)),
			types.Field("embedUrl", types.String(req.UserFileURL)),
			types.Field("shareUrl", types.String(req.UserFileURL)),
			types.Field("toolbarDocked", types.String("top")),
		))
	}
	editorConfig = editorConfig.
		With("customization", types.Object(
			types.Field("forcesave", types.Bool(false)),
			types.Field("goback", types.Object(
				types.Field("url", types.String(req.GobackURL)),
			)),
		))

	cfg := types.Object(
		types.Field("type", types.String(editorType)),
		types.Field("documentType", types.String(string(docType))),
		types.Field("document", document),
		types.Field("editorConfig", editorConfig),
	)

	// 签名必须最后进行，令牌覆盖的是不含 token 字段的完整配置
	if s.signer != nil && s.signer.Enabled() {
		token, err := s.signer.Encode(cfg)
		if err != nil {
			return types.Value{}, fmt.Errorf("%w: 签发令牌失败: %v", constant.ErrConfigBuild, err)
		}
		cfg = cfg.With("token", types.String(token))
	}
	return cfg, nil
}

func documentInfo(userID string) types.Value {
	if userID == "" {
		return types.Object()
	}
	return types.Object(types.Field("favorite", types.Bool(userID == constant.FavoriteUserID)))
}

func userValue(req BuildRequest) types.Value {
	id := req.UserID
	if id == "" {
		id = req.DefaultUserID
	}
	if id == "" {
		id = constant.DefaultUserIDConfig
	}
	name := req.UserName
	if name == "" {
		name = constant.DefaultUserName
	}
	return types.Object(
		types.Field("id", types.String(id)),
		types.Field("name", types.String(name)),
	)
}

func permissionsValue(p Permissions) types.Value {
	return types.Object(
		types.Field("comment", types.Bool(p.Comment)),
		types.Field("download", types.Bool(p.Download)),
		types.Field("edit", types.Bool(p.Edit)),
		types.Field("fillForms", types.Bool(p.FillForms)),
		types.Field("modifyFilter", types.Bool(p.ModifyFilter)),
		types.Field("modifyContentControl", types.Bool(p.ModifyContentControl)),
		types.Field("review", types.Bool(p.Review)),
	)
}
