// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 快照聚合配置
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	// 定价扰动配置
	Pricing PricingConfig `mapstructure:"pricing"`
	// 情景网格配置
	Scenario ScenarioConfig `mapstructure:"scenario"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：mysql
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// Consumer Group ID
	GroupID string `mapstructure:"group_id"`
	// 行情 tick 主题
	TickTopic string `mapstructure:"tick_topic"`
	// 利率更新主题
	RateTopic string `mapstructure:"rate_topic"`
	// 情景结果发布主题
	ScenarioTopic string `mapstructure:"scenario_topic"`
}

// AggregatorConfig 快照聚合配置
type AggregatorConfig struct {
	// 标的指数代码
	IndexSymbol string `mapstructure:"index_symbol"`
	// 刷新周期（毫秒）
	RefreshIntervalMs int `mapstructure:"refresh_interval_ms"`
	// 订阅确认轮询间隔（毫秒）
	AckPollIntervalMs int `mapstructure:"ack_poll_interval_ms"`
	// 订阅确认超时（毫秒）
	AckTimeoutMs int `mapstructure:"ack_timeout_ms"`
	// 开仓量流动性门槛
	OpenInterestCutoff float64 `mapstructure:"open_interest_cutoff"`
	// 初始无风险利率
	InitialRate float64 `mapstructure:"initial_rate"`
	// 股息率
	DividendYield float64 `mapstructure:"dividend_yield"`
}

// PricingConfig 定价扰动配置
type PricingConfig struct {
	// 远期相对扰动
	ForwardBumpRel float64 `mapstructure:"forward_bump_rel"`
	// 波动率绝对扰动
	VolBumpAbs float64 `mapstructure:"vol_bump_abs"`
	// 利率绝对扰动
	RateBumpAbs float64 `mapstructure:"rate_bump_abs"`
}

// ScenarioConfig 情景网格配置
type ScenarioConfig struct {
	// 现货相对偏移档位
	SpotShifts []float64 `mapstructure:"spot_shifts"`
	// 波动率绝对偏移档位
	VolShifts []float64 `mapstructure:"vol_shifts"`
	// 时间推移档位（年）
	TimeShifts []float64 `mapstructure:"time_shifts"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	// 日志级别
	Level string `mapstructure:"level"`
	// 输出格式
	Format string `mapstructure:"format"`
	// 输出目标
	Output string `mapstructure:"output"`
	// 文件路径
	FilePath string `mapstructure:"file_path"`
	// 最大文件大小（MB）
	MaxSize int `mapstructure:"max_size"`
	// 最大备份文件数
	MaxBackups int `mapstructure:"max_backups"`
	// 最大保留天数
	MaxAge int `mapstructure:"max_age"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `mapstructure:"enabled"`
	// 指标路径
	Path string `mapstructure:"path"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Aggregator.IndexSymbol == "" {
		return fmt.Errorf("aggregator.index_symbol is required")
	}
	if c.Aggregator.AckTimeoutMs <= 0 {
		return fmt.Errorf("aggregator.ack_timeout_ms must be positive")
	}
	if c.Pricing.ForwardBumpRel < 0 || c.Pricing.VolBumpAbs < 0 || c.Pricing.RateBumpAbs < 0 {
		return fmt.Errorf("pricing bump sizes must be non-negative")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("kafka.group_id", "pricingengine")
	v.SetDefault("kafka.tick_topic", "market.ticks")
	v.SetDefault("kafka.rate_topic", "market.rates")
	v.SetDefault("kafka.scenario_topic", "pricing.scenarios")

	v.SetDefault("aggregator.refresh_interval_ms", 1000)
	v.SetDefault("aggregator.ack_poll_interval_ms", 100)
	v.SetDefault("aggregator.ack_timeout_ms", 10000)
	v.SetDefault("aggregator.open_interest_cutoff", 500000)
	v.SetDefault("aggregator.initial_rate", 0.05)
	v.SetDefault("aggregator.dividend_yield", 0.0)

	v.SetDefault("pricing.forward_bump_rel", 0.001)
	v.SetDefault("pricing.vol_bump_abs", 0.01)
	v.SetDefault("pricing.rate_bump_abs", 0.0001)

	v.SetDefault("scenario.spot_shifts", []float64{-0.03, -0.02, -0.01, 0, 0.01, 0.02, 0.03})
	v.SetDefault("scenario.vol_shifts", []float64{-0.02, -0.01, 0, 0.01, 0.02})
	v.SetDefault("scenario.time_shifts", []float64{0, 1.0 / 365.0})

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
