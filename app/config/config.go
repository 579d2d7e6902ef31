package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Backlinks  BacklinksConfig  `mapstructure:"backlinks"`
	Characters CharactersConfig `mapstructure:"characters"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	MediaDir string `mapstructure:"media_dir"` // 生成结果（图片/视频/缩略图）的本地存放目录
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

// EngineConfig 外部 AI 生成引擎配置
type EngineConfig struct {
	BaseURL        string `mapstructure:"base_url"`         // 引擎 API 地址
	APIKey         string `mapstructure:"api_key"`          // 引擎 API 密钥
	Timeout        int    `mapstructure:"timeout"`          // 请求超时（秒）
	PollIntervalMs int    `mapstructure:"poll_interval_ms"` // 任务轮询间隔（毫秒）
}

// BacklinksConfig 外链数据源配置
type BacklinksConfig struct {
	ProviderAPI      string `mapstructure:"provider_api"`      // 外链数据提供方 API 地址
	APIKey           string `mapstructure:"api_key"`           // 提供方 API 密钥
	CacheMinutes     int    `mapstructure:"cache_minutes"`     // 提供方响应缓存时间（分钟）
	MaintenanceCron  string `mapstructure:"maintenance_cron"`  // 外链巡检任务的 cron 表达式
	RecheckAfterDays int    `mapstructure:"recheck_after_days"` // 超过该天数未检查的外链需要巡检
}

// CharactersConfig 角色参考图监控配置
type CharactersConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	WatchDir string `mapstructure:"watch_dir"` // 角色参考图投放目录
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.media_dir", "data/media")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// 生成引擎默认配置
	viper.SetDefault("engine.timeout", 30)
	viper.SetDefault("engine.poll_interval_ms", 3000)

	// 外链默认配置
	viper.SetDefault("backlinks.cache_minutes", 10)
	viper.SetDefault("backlinks.maintenance_cron", "0 3 * * *")
	viper.SetDefault("backlinks.recheck_after_days", 7)

	// 角色参考图监控默认配置
	viper.SetDefault("characters.enabled", false)
	viper.SetDefault("characters.watch_dir", "data/characters")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.Engine.PollIntervalMs <= 0 {
		return fmt.Errorf("任务轮询间隔必须大于 0")
	}
	return nil
}
