package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"actioncore/internal/condition"
)

// Config 应用配置
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Logger        LoggerConfig        `yaml:"logger"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	I18n          I18nConfig          `yaml:"i18n"`
	Escalation    EscalationConfig    `yaml:"escalation"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
}

type ServerConfig struct {
	HTTPPort int    `yaml:"http_port"`
	GRPCPort int    `yaml:"grpc_port"`
	Host     string `yaml:"host"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	LogLevel string `yaml:"log_level"` // silent, error, warn, info
}

type LoggerConfig struct {
	Level    string `yaml:"level"`     // debug, info, warn, error
	Output   string `yaml:"output"`    // stdout, stderr, or file path
	AuditDir string `yaml:"audit_dir"` // evaluation audit JSONL files, empty disables
}

type ElasticsearchConfig struct {
	Enabled     bool     `yaml:"enabled"`      // 是否启用 Elasticsearch
	Addresses   []string `yaml:"addresses"`    // ES 节点地址，如 ["http://localhost:9200"]
	Username    string   `yaml:"username"`     // ES 用户名
	Password    string   `yaml:"password"`     // ES 密码
	IndexPrefix string   `yaml:"index_prefix"` // 索引前缀，如 "action-evaluations"
}

type I18nConfig struct {
	Language    string `yaml:"language"`     // BCP 47 tag, e.g. "en", "de"
	CatalogFile string `yaml:"catalog_file"` // optional YAML translation file
}

type EscalationConfig struct {
	DefaultPeriod string            `yaml:"default_period"` // used when an action has no esc_period
	Macros        map[string]string `yaml:"macros"`         // user macros for periods, e.g. {$ESC}: 5m
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	CleanupMinutes    int     `yaml:"cleanup_minutes"`
}

// LoadFromFile 从文件加载配置
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{RateLimit: RateLimitConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// 设置默认值
	setDefaults(&config)

	return &config, nil
}

// SaveToFile 保存配置到文件
func SaveToFile(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load 从环境变量加载配置
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: getEnvInt("HTTP_PORT", 8080),
			GRPCPort: getEnvInt("GRPC_PORT", 9090),
			Host:     getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "actions.db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Output:   getEnv("LOG_OUTPUT", "stdout"),
			AuditDir: getEnv("LOG_AUDIT_DIR", "logs"),
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:     getEnvBool("ES_ENABLED", false),
			Addresses:   getEnvSlice("ES_ADDRESSES", []string{"http://localhost:9200"}),
			Username:    getEnv("ES_USERNAME", ""),
			Password:    getEnv("ES_PASSWORD", ""),
			IndexPrefix: getEnv("ES_INDEX_PREFIX", "action-evaluations"),
		},
		I18n: I18nConfig{
			Language:    getEnv("LANGUAGE", "en"),
			CatalogFile: getEnv("I18N_CATALOG", ""),
		},
		Escalation: EscalationConfig{
			DefaultPeriod: getEnv("ESC_DEFAULT_PERIOD", "1h"),
			Macros:        map[string]string{},
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 100),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 200),
			CleanupMinutes:    getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 5),
		},
	}
}

// setDefaults 设置默认值
func setDefaults(config *Config) {
	if config.Server.HTTPPort == 0 {
		config.Server.HTTPPort = 8080
	}
	if config.Server.GRPCPort == 0 {
		config.Server.GRPCPort = 9090
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "sqlite"
	}
	if config.Database.DBName == "" {
		config.Database.DBName = "actions.db"
	}
	if config.Database.LogLevel == "" {
		config.Database.LogLevel = "warn"
	}
	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Output == "" {
		config.Logger.Output = "stdout"
	}
	if config.Elasticsearch.IndexPrefix == "" {
		config.Elasticsearch.IndexPrefix = "action-evaluations"
	}
	if config.I18n.Language == "" {
		config.I18n.Language = "en"
	}
	if config.Escalation.DefaultPeriod == "" {
		config.Escalation.DefaultPeriod = "1h"
	}
	if config.Escalation.Macros == nil {
		config.Escalation.Macros = map[string]string{}
	}
	if config.RateLimit.RequestsPerSecond == 0 {
		config.RateLimit.RequestsPerSecond = 100
	}
	if config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = 200
	}
	if config.RateLimit.CleanupMinutes == 0 {
		config.RateLimit.CleanupMinutes = 5
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var intVal int
		if _, err := fmt.Sscanf(val, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		var floatVal float64
		if _, err := fmt.Sscanf(val, "%g", &floatVal); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		return false
	}
	return defaultVal
}

func getEnvSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		// 支持逗号分隔的字符串
		if result := splitAndTrim(val, ","); len(result) > 0 {
			return result
		}
	}
	return defaultVal
}

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	// 验证服务器配置
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort < 1 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	// 验证数据库配置
	validDrivers := map[string]bool{
		"sqlite":   true,
		"mysql":    true,
		"postgres": true,
	}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver != "sqlite" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host cannot be empty for %s", c.Database.Driver)
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user cannot be empty for %s", c.Database.Driver)
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name cannot be empty")
		}
	} else if c.Database.DBName == "" {
		return fmt.Errorf("database file path cannot be empty for sqlite")
	}

	// 验证日志配置
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	// 验证Elasticsearch配置
	if c.Elasticsearch.Enabled && len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch addresses cannot be empty when enabled")
	}

	// 验证升级配置
	if _, ok := condition.ParsePeriod(c.Escalation.DefaultPeriod, c.Escalation.Macros); !ok {
		return fmt.Errorf("invalid escalation default period: %s", c.Escalation.DefaultPeriod)
	}
	for name := range c.Escalation.Macros {
		if !strings.HasPrefix(name, "{$") || !strings.HasSuffix(name, "}") {
			return fmt.Errorf("invalid escalation macro name: %s", name)
		}
	}

	// 验证限流配置
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit must be positive")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be at least 1")
		}
	}

	return nil
}
