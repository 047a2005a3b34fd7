package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	DevTools struct {
		URL              string `yaml:"url"`
		Target           string `yaml:"target"`
		ProcessTimeoutMS int    `yaml:"processTimeoutMS"`
	} `yaml:"devtools"`

	Watch struct {
		Host     string   `yaml:"host"`
		Mockable []string `yaml:"mockable"`
		Ignored  []string `yaml:"ignored"`
	} `yaml:"watch"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`
}

// NewConfig 创建默认配置（Factorial 测试环境）
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}

	c.DevTools.URL = "http://127.0.0.1:9222"
	c.DevTools.ProcessTimeoutMS = 3000

	c.Watch.Host = "api.factorialhr.com"
	c.Watch.Mockable = []string{
		"https://api.factorialhr.com/companies",
		"https://api.factorialhr.com/leaves",
	}
	c.Watch.Ignored = []string{
		"https://api.factorialhr.com/sessions",
		"https://api.factorialhr.com/attendance/shifts",
		"https://api.factorialhr.com/attendance/shifts/open_shift",
		"https://api.factorialhr.com/attendance/periods",
	}

	c.Sqlite.Dsn = "db.sqlite3"
	c.Sqlite.Prefix = "permock_"

	c.Log.Level = "debug"
	c.Log.Writer = []string{"console", "file"}
	c.Log.File = "permock.log"

	return c
}

// Load 从文件加载配置，path 为空时返回默认配置
func Load(path string) (*Config, error) {
	c := NewConfig()
	if path == "" {
		return c, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(c, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate 校验配置基本完整性
func (c *Config) Validate() error {
	if c.DevTools.URL == "" {
		return fmt.Errorf("devtools.url is required")
	}
	if c.Watch.Host == "" {
		return fmt.Errorf("watch.host is required")
	}
	return nil
}

// Pattern 返回监听主机的 Fetch URL 匹配模式
func (c *Config) Pattern() string {
	return "*://" + c.Watch.Host + "/*"
}
