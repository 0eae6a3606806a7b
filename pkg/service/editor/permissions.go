package editor

import "github.com/anzhiyu-c/anheyu-docs/pkg/constant"

// 以下规则表只在包初始化时构建，之后只读。
var (
	// 这些模式下不允许评论
	commentDenied = modeSet(constant.ModeView, constant.ModeFillForms, constant.ModeEmbedded, constant.ModeBlockContent)
	// 这些模式下不允许填写表单
	fillFormsDenied = modeSet(constant.ModeView, constant.ModeComment, constant.ModeEmbedded, constant.ModeBlockContent)
	// 这些模式下（且文件可编辑时）允许编辑
	editGranted = modeSet(constant.ModeEdit, constant.ModeFilter, constant.ModeBlockContent)
	// 这些模式下允许审阅
	reviewGranted = modeSet(constant.ModeEdit, constant.ModeReview)
)

func modeSet(modes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(modes))
	for _, m := range modes {
		set[m] = struct{}{}
	}
	return set
}

func in(set map[string]struct{}, mode string) bool {
	_, ok := set[mode]
	return ok
}

// Permissions 是编辑器中的权限开关
type Permissions struct {
	Comment              bool
	Download             bool
	Edit                 bool
	FillForms            bool
	ModifyFilter         bool
	ModifyContentControl bool
	Review               bool
}

// ResolvePermissions 根据请求的模式（而不是降级后的实际模式）计算权限
func ResolvePermissions(mode string, canEdit bool) Permissions {
	return Permissions{
		Comment:              !in(commentDenied, mode),
		Download:             true,
		Edit:                 canEdit && in(editGranted, mode),
		FillForms:            !in(fillFormsDenied, mode),
		ModifyFilter:         mode != constant.ModeFilter,
		ModifyContentControl: mode != constant.ModeBlockContent,
		Review:               in(reviewGranted, mode),
	}
}
