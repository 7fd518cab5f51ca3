package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
	Paths    PathsConfig    `yaml:"paths"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LLMConfig 生成式分析能力的配置
type LLMConfig struct {
	Provider  string            `yaml:"provider"` // "openai" or "anthropic"
	OpenAI    LLMProviderConfig `yaml:"openai"`
	Anthropic LLMProviderConfig `yaml:"anthropic"`
}

// LLMProviderConfig LLM 提供商配置
type LLMProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	APIURL      string  `yaml:"api_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AnalyzerConfig 消息分析器配置
type AnalyzerConfig struct {
	// EnableLLM 为 false 时只走确定性规则策略。
	EnableLLM bool `yaml:"enable_llm"`
	// LLMTimeout 生成式调用的超时；超时等同于能力失败，触发规则降级。
	LLMTimeout time.Duration `yaml:"llm_timeout"`
}

type SessionConfig struct {
	MaxInactiveTime time.Duration `yaml:"max_inactive_time"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PathsConfig struct {
	Scenarios string `yaml:"scenarios"`
}

// Load 从文件加载配置
func Load(path string) (*Config, error) {
	fmt.Printf("📋 Loading config from: %s\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	fmt.Printf("✅ Config parsed successfully\n")

	// 从环境变量覆盖敏感信息
	if llmKey := os.Getenv("LLM_API_KEY"); llmKey != "" {
		fmt.Printf("🔑 Using LLM_API_KEY from environment variable\n")
		if cfg.LLM.Provider == "openai" {
			cfg.LLM.OpenAI.APIKey = llmKey
		} else if cfg.LLM.Provider == "anthropic" {
			cfg.LLM.Anthropic.APIKey = llmKey
		}
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		fmt.Printf("🔑 Using OPENAI_API_KEY from environment variable\n")
		cfg.LLM.OpenAI.APIKey = apiKey
	}
	if anthropicKey := os.Getenv("ANTHROPIC_API_KEY"); anthropicKey != "" {
		fmt.Printf("🔑 Using ANTHROPIC_API_KEY from environment variable\n")
		cfg.LLM.Anthropic.APIKey = anthropicKey
	}

	// 缺省值：超时不配置时给一个保守值，避免生成式调用悬挂。
	if cfg.Analyzer.LLMTimeout == 0 {
		cfg.Analyzer.LLMTimeout = 30 * time.Second
	}

	// 打印关键配置
	fmt.Printf("\n📊 Configuration Summary:\n")
	fmt.Printf("   Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   LLM Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("   Analyzer LLM Enabled: %v\n", cfg.Analyzer.EnableLLM)
	fmt.Printf("   Scenarios Path: %s\n", cfg.Paths.Scenarios)
	fmt.Printf("\n")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	fmt.Printf("✅ Config validation passed\n\n")

	return &cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Paths.Scenarios == "" {
		return fmt.Errorf("scenarios path is required")
	}
	if c.Analyzer.EnableLLM {
		switch c.LLM.Provider {
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return fmt.Errorf("OpenAI API key is required when analyzer LLM is enabled (set OPENAI_API_KEY)")
			}
		case "anthropic":
			if c.LLM.Anthropic.APIKey == "" {
				return fmt.Errorf("Anthropic API key is required when analyzer LLM is enabled (set ANTHROPIC_API_KEY)")
			}
		default:
			return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
		}
	}
	return nil
}
