package config

import (
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
)

// DocumentSettings 是文档服务相关配置的只读快照，启动时构建一次后传给各个服务。
type DocumentSettings struct {
	StorageRoot   string
	TempDir       string
	PublicURL     string
	MaxFileSize   int64
	DocServerURL  string
	ConverterURL  string
	APIURL        string
	PreloaderURL  string
	ExampleURL    string
	Timeout       time.Duration
	Secret        string
	SecretHeader  string
	ViewedExts    []string
	EditedExts    []string
	ConvertExts   []string
	viewedLookup  map[string]struct{}
	editedLookup  map[string]struct{}
	convertLookup map[string]struct{}
}

// NewDocumentSettings 从配置中派生文档设置
func NewDocumentSettings(cfg *Config) *DocumentSettings {
	site := strings.TrimRight(cfg.GetString(KeyDocSiteURL), "/")
	timeout := time.Duration(cfg.GetInt(KeyDocTimeout)) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	s := &DocumentSettings{
		StorageRoot:  cfg.GetString(KeyStoragePath),
		TempDir:      cfg.GetString(KeyStorageTempDir),
		PublicURL:    strings.TrimRight(cfg.GetString(KeyServerPublicURL), "/"),
		MaxFileSize:  cfg.GetInt64(KeyStorageMaxFileSize),
		DocServerURL: site,
		ConverterURL: joinSite(site, cfg.GetString(KeyDocConverterPath)),
		APIURL:       joinSite(site, cfg.GetString(KeyDocAPIPath)),
		PreloaderURL: joinSite(site, cfg.GetString(KeyDocPreloaderPath)),
		ExampleURL:   strings.TrimRight(cfg.GetString(KeyDocExampleURL), "/"),
		Timeout:      timeout,
		Secret:       cfg.GetString(KeyDocSecret),
		SecretHeader: cfg.GetString(KeyDocHeader),
		ViewedExts:   cfg.GetStringList(KeyDocViewedExts),
		EditedExts:   cfg.GetStringList(KeyDocEditedExts),
		ConvertExts:  cfg.GetStringList(KeyDocConvertExts),
	}
	if s.PublicURL == "" {
		s.PublicURL = "http://localhost:" + cfg.GetString(KeyServerPort)
	}
	if s.SecretHeader == "" {
		s.SecretHeader = "Authorization"
	}
	s.index()
	return s
}

func joinSite(site, path string) string {
	if path == "" {
		return site
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return site + "/" + strings.TrimLeft(path, "/")
}

func (s *DocumentSettings) index() {
	s.viewedLookup = toSet(s.ViewedExts)
	s.editedLookup = toSet(s.EditedExts)
	s.convertLookup = toSet(s.ConvertExts)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// WithExtensions 返回替换了扩展名列表的副本
func (s DocumentSettings) WithExtensions(viewed, edited, convert []string) *DocumentSettings {
	s.ViewedExts = viewed
	s.EditedExts = edited
	s.ConvertExts = convert
	s.index()
	return &s
}

// CanView 判断文件是否可以以只读方式打开
func (s *DocumentSettings) CanView(fileName string) bool {
	_, ok := s.viewedLookup[constant.FileExt(fileName)]
	return ok
}

// CanEdit 判断文件扩展名是否属于可编辑集合
func (s *DocumentSettings) CanEdit(fileName string) bool {
	_, ok := s.editedLookup[constant.FileExt(fileName)]
	return ok
}

// CanConvert 判断文件扩展名是否属于可转换集合
func (s *DocumentSettings) CanConvert(fileName string) bool {
	_, ok := s.convertLookup[constant.FileExt(fileName)]
	return ok
}

// IsAllowed 判断文件是否为受支持的上传类型（可查看、可编辑或可转换）
func (s *DocumentSettings) IsAllowed(fileName string) bool {
	return s.CanView(fileName) || s.CanEdit(fileName) || s.CanConvert(fileName)
}

// SigningEnabled 表示是否配置了 JWT 密钥
func (s *DocumentSettings) SigningEnabled() bool {
	return s.Secret != ""
}
