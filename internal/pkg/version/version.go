package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// 这些变量将在构建时通过 ldflags 注入
var (
	Version   = "dev"             // 版本号，如 v1.0.0
	Commit    = "unknown"         // Git commit hash
	Date      = "unknown"         // 构建时间
	GoVersion = runtime.Version() // Go 版本
)

// BuildInfo 包含构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// vcsSetting 从构建信息中读取 vcs.* 设置
func vcsSetting(key string) (string, bool) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == key {
			return setting.Value, true
		}
	}
	return "", false
}

// GetVersion 返回应用版本号，ldflags 未注入时回退到模块版本
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown (no build info)"
	}
	if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}
	return "dev"
}

// GetCommit 返回短 commit hash
func GetCommit() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}
	rev, ok := vcsSetting("vcs.revision")
	if !ok {
		return "unknown"
	}
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// GetBuildDate 返回构建时间
func GetBuildDate() string {
	if Date != "unknown" && Date != "" {
		return Date
	}
	value, ok := vcsSetting("vcs.time")
	if !ok {
		return "unknown"
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format("2006-01-02 15:04:05")
	}
	return value
}

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		Commit:    GetCommit(),
		Date:      GetBuildDate(),
		GoVersion: GoVersion,
	}
}

// GetVersionString 返回完整的版本字符串
func GetVersionString() string {
	parts := []string{GetVersion()}
	if commit := GetCommit(); commit != "unknown" {
		parts = append(parts, fmt.Sprintf("commit %s", commit))
	}
	if date := GetBuildDate(); date != "unknown" {
		parts = append(parts, fmt.Sprintf("built at %s", date))
	}
	return strings.Join(parts, ", ")
}
