/*
 * @Description: 统一配置管理 (手动加载 ini + 环境变量覆盖)
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2026-10-13 10:25:31
 * @LastEditors: 安知鱼
 */
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
)

// DefaultFilePath 是默认的配置文件位置
const DefaultFilePath = "data/conf.ini"

const (
	KeyServerPort  = "System.Port"
	KeyServerDebug = "System.Debug"

	KeyDBType     = "Database.Type"
	KeyDBHost     = "Database.Host"
	KeyDBPort     = "Database.Port"
	KeyDBUser     = "Database.User"
	KeyDBPassword = "Database.Password"
	KeyDBName     = "Database.Name"
	KeyDBDebug    = "Database.Debug"

	KeyRedisAddr     = "Redis.Addr"
	KeyRedisPassword = "Redis.Password"
	KeyRedisDB       = "Redis.DB"

	KeySiteURL        = "Site.URL"
	KeySiteAboutPath  = "Site.AboutPath"
	KeySiteName       = "Site.Name"
	KeySiteOwnerEmail = "Site.OwnerEmail"

	KeySmtpHost        = "Smtp.Host"
	KeySmtpPort        = "Smtp.Port"
	KeySmtpUsername    = "Smtp.Username"
	KeySmtpPassword    = "Smtp.Password"
	KeySmtpSenderName  = "Smtp.SenderName"
	KeySmtpSenderEmail = "Smtp.SenderEmail"
	KeySmtpForceSSL    = "Smtp.ForceSSL"

	KeyGeoIPDBPath   = "GeoIP.DBPath"
	KeyGeoIPAPIURL   = "GeoIP.APIURL"
	KeyGeoIPAPIToken = "GeoIP.APIToken"

	KeyJWTSecret = "JWT.Secret"
	KeyIDSeed    = "IDGen.Seed"

	KeyTaskWorkers       = "Task.Workers"
	KeyTaskQueueSize     = "Task.QueueSize"
	KeyTaskReconcileSpec = "Task.ReconcileSpec"
	KeyTaskCacheTTL      = "Task.PermalinkCacheTTL"

	KeyCommentRateLimit = "Comment.RateLimitPerMinute"
	KeyCommentRateBurst = "Comment.RateLimitBurst"
)

// 定义所有已知的配置键，环境变量覆盖只检查这些键
var allKeys = []string{
	KeyServerPort, KeyServerDebug,
	KeyDBType, KeyDBHost, KeyDBPort, KeyDBUser, KeyDBPassword, KeyDBName, KeyDBDebug,
	KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
	KeySiteURL, KeySiteAboutPath, KeySiteName, KeySiteOwnerEmail,
	KeySmtpHost, KeySmtpPort, KeySmtpUsername, KeySmtpPassword, KeySmtpSenderName, KeySmtpSenderEmail, KeySmtpForceSSL,
	KeyGeoIPDBPath, KeyGeoIPAPIURL, KeyGeoIPAPIToken,
	KeyJWTSecret, KeyIDSeed,
	KeyTaskWorkers, KeyTaskQueueSize, KeyTaskReconcileSpec, KeyTaskCacheTTL,
	KeyCommentRateLimit, KeyCommentRateBurst,
}

// EnvPrefix 是环境变量前缀，例如 ANHEYU_DATABASE_HOST
const EnvPrefix = "ANHEYU"

type Config struct {
	vp *viper.Viper
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault(KeyServerPort, "8091")
	vp.SetDefault(KeyDBType, "sqlite")
	vp.SetDefault(KeyDBName, "anheyu_comment.db")
	vp.SetDefault(KeyRedisDB, "10")
	vp.SetDefault(KeySiteURL, "https://anheyu.com")
	vp.SetDefault(KeySiteAboutPath, "/about")
	vp.SetDefault(KeySiteName, "安和鱼")
	vp.SetDefault(KeySmtpPort, "465")
	vp.SetDefault(KeyTaskQueueSize, 1000)
	vp.SetDefault(KeyTaskReconcileSpec, "0 0 4 * * *")
	vp.SetDefault(KeyTaskCacheTTL, "10m")
	vp.SetDefault(KeyCommentRateLimit, 6)
	vp.SetDefault(KeyCommentRateBurst, 3)
}

// NewConfig 手动加载配置：先读取 ini 文件，再用环境变量覆盖
func NewConfig(filePath string) (*Config, error) {
	if filePath == "" {
		filePath = DefaultFilePath
	}
	vp := viper.New()
	setDefaults(vp)

	// --- 步骤 1: 使用 go-ini 从文件加载配置 ---
	iniCfg, err := ini.Load(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			// 文件存在但格式错误
			return nil, fmt.Errorf("错误: 解析配置文件 '%s' 失败: %w", filePath, err)
		}
		log.Printf("提示: 未找到 %s，将创建默认配置文件。", filePath)
		if err := createDefaultConfigFile(filePath); err != nil {
			log.Printf("警告: 创建默认配置文件失败: %v，将仅依赖环境变量或内部默认值。", err)
		} else if iniCfg, err = ini.Load(filePath); err != nil {
			log.Printf("警告: 重新加载配置文件失败: %v", err)
		}
	}

	if iniCfg != nil {
		for _, section := range iniCfg.Sections() {
			for _, key := range section.Keys() {
				viperKey := fmt.Sprintf("%s.%s", section.Name(), key.Name())
				if section.Name() == ini.DefaultSection {
					viperKey = key.Name()
				}
				// 空值不覆盖默认值
				if key.Value() == "" {
					continue
				}
				vp.Set(viperKey, key.Value())
			}
		}
		log.Printf("从 %s 文件加载了配置。", filePath)
	}

	// --- 步骤 2: 手动检查并覆盖环境变量 ---
	applyEnvOverrides(vp)

	log.Println("✅ 配置加载器初始化完成。")
	return &Config{vp: vp}, nil
}

// NewFromMap 直接从键值对构建配置，主要用于测试和嵌入式场景。
func NewFromMap(values map[string]interface{}) *Config {
	vp := viper.New()
	setDefaults(vp)
	for k, v := range values {
		vp.Set(k, v)
	}
	return &Config{vp: vp}
}

func applyEnvOverrides(vp *viper.Viper) {
	for _, key := range allKeys {
		envVarName := EnvName(key)
		if value, found := os.LookupEnv(envVarName); found {
			vp.Set(key, value)
			log.Printf("发现环境变量: %s, 已覆盖配置 '%s'。", envVarName, key)
		}
	}
}

// EnvName 返回配置键对应的环境变量名。
func EnvName(key string) string {
	return fmt.Sprintf("%s_%s", EnvPrefix, strings.NewReplacer(".", "_").Replace(strings.ToUpper(key)))
}

func (c *Config) GetString(key string) string {
	return c.vp.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	return c.vp.GetDuration(key)
}

// Debug 是否开启调试模式
func (c *Config) Debug() bool {
	return c.vp.GetBool(KeyServerDebug)
}

// createDefaultConfigFile 创建默认的配置文件
func createDefaultConfigFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	defaultConfig := `[System]
Port = 8091
Debug = false

# Type 可选 sqlite / mysql / postgres / memory
[Database]
Type = sqlite
Name = anheyu_comment.db
Debug = false

# 留空 Addr 时使用内存缓存
[Redis]
Addr =
Password =
DB = 10

[Site]
URL = https://anheyu.com
AboutPath = /about
Name =
OwnerEmail =

[Smtp]
Host =
Port = 465
Username =
Password =
SenderName =
SenderEmail =
ForceSSL = true

# DBPath 指向 MaxMind mmdb 文件；未配置时尝试远程 API，两者都未配置则跳过属地解析
[GeoIP]
DBPath =
APIURL =
APIToken =

[JWT]
Secret =

[IDGen]
Seed =

[Task]
Workers = 0
QueueSize = 1000
ReconcileSpec = 0 0 4 * * *
PermalinkCacheTTL = 10m

# 每个IP每分钟可发表的评论数，0 表示不限制
[Comment]
RateLimitPerMinute = 6
RateLimitBurst = 3
`

	if err := os.WriteFile(filePath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
