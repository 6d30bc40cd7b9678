package config

import (
	"fmt"
	"os"
	"time"

	"shieldscan/pkg/embedded"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"

	"gopkg.in/yaml.v3"
)

// Config 系统总配置结构
type Config struct {
	// 路径配置
	DataPaths types.DataPaths `yaml:"data_paths"`
	// 性能配置
	Performance types.Performance `yaml:"performance"`
	// 输出配置
	Output types.Output `yaml:"output"`
	// 启用的分析器列表
	EnabledAnalyzers []string `yaml:"enabled_analyzers"`
	// 检测配置
	Detection DetectionConfig `yaml:"detection"`
	// 存储配置
	Storage StorageConfig `yaml:"storage"`
	// 实时扫描配置
	Realtime RealtimeConfig `yaml:"realtime"`
	// 定时扫描配置
	Schedule ScheduleConfig `yaml:"schedule"`
	// 告警配置
	Alert AlertConfig `yaml:"alert"`
}

// DetectionConfig 检测算法相关配置
type DetectionConfig struct {
	PHPVersion  string `yaml:"php_version"`   // AST解析器使用的PHP版本
	MaxFileSize int64  `yaml:"max_file_size"` // 最大扫描文件大小(bytes)
}

// StorageConfig 存储相关配置
type StorageConfig struct {
	HistoryDB     string `yaml:"history_db"`     // 历史记录数据库文件路径
	RetentionDays int    `yaml:"retention_days"` // 历史记录保留天数
	MaxRecords    int64  `yaml:"max_records"`    // 最大记录数
}

// RealtimeConfig 实时扫描配置
type RealtimeConfig struct {
	Enabled        bool     `yaml:"enabled"`         // 是否启用实时扫描
	MaxConcurrency int      `yaml:"max_concurrency"` // 最大并发扫描数
	Directories    []string `yaml:"directories"`     // 监控目录列表
	ExcludeDirs    []string `yaml:"exclude_dirs"`    // 排除的目录列表
	FileTypes      []string `yaml:"file_types"`      // 监控的文件类型，如 [".php"]
}

// ScheduleConfig 定时扫描配置
type ScheduleConfig struct {
	Enabled       bool     `yaml:"enabled"`        // 是否启用定时扫描
	StartTime     string   `yaml:"start_time"`     // 首次扫描时间 "HH:MM"，为空立即开始
	IntervalHours int      `yaml:"interval_hours"` // 扫描周期(小时)
	Directories   []string `yaml:"directories"`    // 扫描目录列表
	ExcludeDirs   []string `yaml:"exclude_dirs"`   // 排除的目录列表
}

// AlertConfig 告警相关配置
type AlertConfig struct {
	// 邮件告警配置
	Email struct {
		Enabled  bool     `yaml:"enabled"`
		Host     string   `yaml:"host"`
		Port     int      `yaml:"port"`
		Username string   `yaml:"username"`
		Password string   `yaml:"password"`
		From     string   `yaml:"from"`
		To       []string `yaml:"to"`
	} `yaml:"email"`

	// Webhook告警配置
	Webhook struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"webhook"`
}

// LoadConfig 加载配置文件；磁盘文件不存在时回退到嵌入的默认配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logging.InfoLogger.Infof("配置文件 %s 不存在，使用嵌入的默认配置", path)
		data, err = embedded.GetFileContent("config.yaml")
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded config: %w", err)
		}
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults 填充未设置的配置项
func applyDefaults(cfg *Config) {
	if cfg.DataPaths.Models == "" {
		cfg.DataPaths.Models = "data/models"
	}
	if cfg.DataPaths.Signatures == "" {
		cfg.DataPaths.Signatures = "data/signatures"
	}
	if cfg.Performance.Concurrency <= 0 {
		cfg.Performance.Concurrency = 8
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "console"
	}
	if len(cfg.EnabledAnalyzers) == 0 {
		cfg.EnabledAnalyzers = []string{"regex", "yara", "statistical", "bayes_words", "svm_prosses"}
	}
	if cfg.Detection.PHPVersion == "" {
		cfg.Detection.PHPVersion = "7"
	}
	if cfg.Detection.MaxFileSize <= 0 {
		cfg.Detection.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.Storage.HistoryDB == "" {
		cfg.Storage.HistoryDB = "data/history.db"
	}
	if cfg.Storage.RetentionDays <= 0 {
		cfg.Storage.RetentionDays = 30
	}
	if cfg.Realtime.MaxConcurrency <= 0 {
		cfg.Realtime.MaxConcurrency = 4
	}
	if len(cfg.Realtime.FileTypes) == 0 {
		cfg.Realtime.FileTypes = []string{".php"}
	}
	if cfg.Schedule.IntervalHours <= 0 {
		cfg.Schedule.IntervalHours = 24
	}
}

// validateConfig 验证配置是否有效
func validateConfig(cfg *Config) error {
	// 验证邮件告警配置
	if cfg.Alert.Email.Enabled {
		if cfg.Alert.Email.Host == "" || cfg.Alert.Email.Port == 0 {
			return fmt.Errorf("invalid email alert configuration")
		}
		if len(cfg.Alert.Email.To) == 0 {
			return fmt.Errorf("no email recipients specified")
		}
	}

	// 验证Webhook告警配置
	if cfg.Alert.Webhook.Enabled && cfg.Alert.Webhook.URL == "" {
		return fmt.Errorf("webhook alert enabled but url is empty")
	}

	// 验证实时扫描配置
	if cfg.Realtime.Enabled && len(cfg.Realtime.Directories) == 0 {
		return fmt.Errorf("realtime scanning enabled but no directories configured")
	}

	// 验证定时扫描配置
	if cfg.Schedule.Enabled {
		if len(cfg.Schedule.Directories) == 0 {
			return fmt.Errorf("scheduled scanning enabled but no directories configured")
		}
		if cfg.Schedule.StartTime != "" {
			if _, err := time.Parse("15:04", cfg.Schedule.StartTime); err != nil {
				return fmt.Errorf("invalid schedule start time %q: %w", cfg.Schedule.StartTime, err)
			}
		}
	}

	return nil
}
