/*
 * @Description: 统一配置管理 (手动加载 ini + 环境变量覆盖)
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-16 16:03:27
 * @LastEditors: 安知鱼
 */
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
)

// DefaultConfigPath 是默认的配置文件位置
const DefaultConfigPath = "data/conf.ini"

// 定义所有已知的配置键
var allKeys = []string{
	KeyServerPort, KeyServerDebug, KeyServerPublicURL, KeyServerIDSeed,
	KeyStoragePath, KeyStorageMaxFileSize, KeyStorageTempDir,
	KeyDocSiteURL, KeyDocConverterPath, KeyDocAPIPath, KeyDocPreloaderPath, KeyDocExampleURL,
	KeyDocViewedExts, KeyDocEditedExts, KeyDocConvertExts, KeyDocTimeout,
	KeyDocSecret, KeyDocHeader,
	KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
	KeyTaskTempCleanupCron,
}

const (
	KeyServerPort      = "System.Port"
	KeyServerDebug     = "System.Debug"
	KeyServerPublicURL = "System.PublicURL"
	KeyServerIDSeed    = "System.IDSeed"

	KeyStoragePath        = "Storage.Path"
	KeyStorageMaxFileSize = "Storage.MaxFileSize"
	KeyStorageTempDir     = "Storage.TempDir"

	KeyDocSiteURL       = "DocService.SiteURL"
	KeyDocConverterPath = "DocService.ConverterPath"
	KeyDocAPIPath       = "DocService.ApiPath"
	KeyDocPreloaderPath = "DocService.PreloaderPath"
	KeyDocExampleURL    = "DocService.ExampleURL"
	KeyDocViewedExts    = "DocService.ViewedDocs"
	KeyDocEditedExts    = "DocService.EditedDocs"
	KeyDocConvertExts   = "DocService.ConvertDocs"
	KeyDocTimeout       = "DocService.Timeout"
	KeyDocSecret        = "DocService.Secret"
	KeyDocHeader        = "DocService.Header"

	KeyRedisAddr     = "Redis.Addr"
	KeyRedisPassword = "Redis.Password"
	KeyRedisDB       = "Redis.DB"

	KeyTaskTempCleanupCron = "Task.TempCleanupCron"
)

type Config struct {
	vp *viper.Viper
}

// NewConfig 从默认位置加载配置
func NewConfig() (*Config, error) {
	return NewConfigFromFile(DefaultConfigPath)
}

// NewConfigFromFile 手动加载配置：先读 ini 文件，再用 ANHEYU_DOCS_* 环境变量覆盖
func NewConfigFromFile(filePath string) (*Config, error) {
	vp := viper.New()
	setDefaults(vp)

	// --- 步骤 1: 使用 go-ini 从文件加载配置 ---
	iniCfg, err := ini.Load(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("提示: 未找到 %s，将创建默认配置文件。", filePath)
			if err := createDefaultConfigFile(filePath); err != nil {
				log.Printf("警告: 创建默认配置文件失败: %v，将仅依赖环境变量或内部默认值。", err)
			} else {
				log.Printf("✅ 已创建默认配置文件: %s", filePath)
				iniCfg, err = ini.Load(filePath)
				if err != nil {
					log.Printf("警告: 重新加载配置文件失败: %v", err)
				}
			}
		} else {
			return nil, fmt.Errorf("错误: 解析配置文件 '%s' 失败: %w", filePath, err)
		}
	}

	if iniCfg != nil {
		for _, section := range iniCfg.Sections() {
			for _, key := range section.Keys() {
				viperKey := fmt.Sprintf("%s.%s", section.Name(), key.Name())
				if section.Name() == ini.DefaultSection {
					viperKey = key.Name()
				}
				vp.Set(viperKey, key.Value())
			}
		}
		log.Printf("从 %s 文件加载了配置。", filePath)
	}

	// --- 步骤 2: 手动检查并覆盖环境变量 ---
	envReplacer := strings.NewReplacer(".", "_")
	envPrefix := "ANHEYU_DOCS"

	for _, key := range allKeys {
		// 例如 ANHEYU_DOCS_DOCSERVICE_SECRET
		envVarName := fmt.Sprintf("%s_%s", envPrefix, envReplacer.Replace(strings.ToUpper(key)))
		if value, found := os.LookupEnv(envVarName); found {
			vp.Set(key, value)
			log.Printf("发现环境变量: %s, 已覆盖配置 '%s'。", envVarName, key)
		}
	}

	log.Println("✅ 配置加载器初始化完成。")
	return &Config{vp: vp}, nil
}

// NewConfigFromMap 直接从键值对构建配置，便于测试和嵌入使用
func NewConfigFromMap(values map[string]any) *Config {
	vp := viper.New()
	setDefaults(vp)
	for k, v := range values {
		vp.Set(k, v)
	}
	return &Config{vp: vp}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault(KeyServerPort, "8092")
	vp.SetDefault(KeyServerDebug, false)
	vp.SetDefault(KeyStoragePath, "data/storage")
	vp.SetDefault(KeyStorageMaxFileSize, 5*1024*1024)
	vp.SetDefault(KeyStorageTempDir, "data/temp")
	vp.SetDefault(KeyDocConverterPath, "/ConvertService.ashx")
	vp.SetDefault(KeyDocAPIPath, "/web-apps/apps/api/documents/api.js")
	vp.SetDefault(KeyDocPreloaderPath, "/web-apps/apps/api/documents/cache-scripts.html")
	vp.SetDefault(KeyDocViewedExts, ".pdf|.djvu|.xps")
	vp.SetDefault(KeyDocEditedExts, ".docx|.xlsx|.csv|.pptx|.txt")
	vp.SetDefault(KeyDocConvertExts, ".docm|.dotx|.dotm|.dot|.doc|.odt|.fodt|.ott|.xlsm|.xltx|.xltm|.xlt|.xls|.ods|.fods|.ots|.pptm|.ppt|.ppsx|.ppsm|.pps|.potx|.potm|.pot|.odp|.fodp|.otp|.rtf|.mht|.html|.htm|.epub|.fb2")
	vp.SetDefault(KeyDocTimeout, 120)
	vp.SetDefault(KeyDocHeader, "Authorization")
	vp.SetDefault(KeyRedisDB, 0)
	vp.SetDefault(KeyTaskTempCleanupCron, "@every 30m")
}

func (c *Config) GetString(key string) string {
	return c.vp.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetInt64(key string) int64 {
	return c.vp.GetInt64(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

// GetStringList 读取以 "|" 或 "," 分隔的列表，去除空白并转为小写
func (c *Config) GetStringList(key string) []string {
	raw := c.vp.GetString(key)
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// createDefaultConfigFile 创建默认的配置文件
func createDefaultConfigFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	defaultConfig := `[System]
Port = 8092
Debug = false
# 本服务对文档服务器可见的地址，为空时使用 http://localhost:<Port>
PublicURL =
# 修订键编码种子，修改后所有文件的修订键都会变化
IDSeed =

[Storage]
Path = data/storage
# 单个文件的最大字节数
MaxFileSize = 5242880
TempDir = data/temp

[DocService]
# 文档服务器地址，例如 https://documentserver/
SiteURL =
ConverterPath = /ConvertService.ashx
ApiPath = /web-apps/apps/api/documents/api.js
PreloaderPath = /web-apps/apps/api/documents/cache-scripts.html
ExampleURL =
ViewedDocs = .pdf|.djvu|.xps
EditedDocs = .docx|.xlsx|.csv|.pptx|.txt
ConvertDocs = .docm|.dotx|.dotm|.dot|.doc|.odt|.fodt|.ott|.xlsm|.xltx|.xltm|.xlt|.xls|.ods|.fods|.ots|.pptm|.ppt|.ppsx|.ppsm|.pps|.potx|.potm|.pot|.odp|.fodp|.otp|.rtf|.mht|.html|.htm|.epub|.fb2
# 请求超时（秒）
Timeout = 120
# JWT 密钥，留空则不签名
Secret =
Header = Authorization

# Redis 配置（可选）
# 如果不配置或留空 Addr，转换进度将使用内存缓存
[Redis]
Addr =
Password =
DB = 0

[Task]
TempCleanupCron = @every 30m
`

	if err := os.WriteFile(filePath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}
