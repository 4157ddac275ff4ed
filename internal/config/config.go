package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Elastic   ElasticConfig
	DuckDB    DuckDBConfig
	Vector    VectorConfig
	AI        AIConfig
	Embedding EmbeddingConfig
	Agent     AgentConfig
	Search    SearchConfig
	Auth      AuthConfig
	Secrets   SecretsConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// IsProduction 是否生产环境
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string // postgres | sqlite
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string // sqlite 文件路径
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ElasticConfig Elasticsearch配置
type ElasticConfig struct {
	Host        string
	Username    string
	Password    string
	IndexPrefix string
	Timeout     int // 单次请求超时（秒）
}

// DuckDBConfig DuckDB 配置
type DuckDBConfig struct {
	Path string // 为空时使用内存库
}

// VectorConfig 向量索引配置
type VectorConfig struct {
	Backend    string // elasticsearch | duckdb | memory
	Dimensions int
}

// AIConfig AI配置
type AIConfig struct {
	Provider            string
	OpenAI              OpenAIConfig
	Alibaba             AlibabaConfig
	DeepSeek            DeepSeekConfig
	Gemini              GeminiConfig
	ClassifyTemperature float32
	RespondTemperature  float32
	ToolCallTemperature float32
	MaxTokens           int
	Timeout             int
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AlibabaConfig 阿里云配置
type AlibabaConfig struct {
	AccessKeySecret string
	BaseURL         string
	Model           string
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GeminiConfig Gemini配置
type GeminiConfig struct {
	APIKey string
	Model  string
}

// EmbeddingConfig Embedding配置
type EmbeddingConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int
	Dimensions int
	CacheTTL   int // 秒，0 表示不缓存
}

// AgentConfig 购物助手配置
type AgentConfig struct {
	MaxToolIterations int
	HistoryLimit      int
	ClassifyWindow    int
	RespondWindow     int
	MaxSuggestions    int
	SystemPrompt      string
}

// SearchConfig 语义检索配置
type SearchConfig struct {
	DefaultTopK     int
	MinScore        float64
	SimilarMinScore float64
	MaxToolLimit    int
	ScorePrecision  int
	IndexBatchSize  int
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string
	TokenTTL  int // 小时
}

// SecretsConfig 密钥来源配置
type SecretsConfig struct {
	Provider string // none | ssm
	Prefix   string
}

var globalConfig *Config

// Load 加载配置
// 顺序：默认值 -> 配置文件 -> .env -> 环境变量
func Load(path string) (*Config, error) {
	// 本地开发时加载 .env，文件不存在不算错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// 环境变量
	v.SetEnvPrefix("SHOP_AI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Vector.Backend {
	case "elasticsearch", "duckdb", "memory":
	default:
		return fmt.Errorf("unsupported vector backend: %s", c.Vector.Backend)
	}
	if c.Agent.MaxToolIterations <= 0 {
		return errors.New("agent.maxToolIterations must be positive")
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return fmt.Errorf("search.minScore out of range: %v", c.Search.MinScore)
	}
	return nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProductIndex 商品向量索引名
func (c *ElasticConfig) ProductIndex() string {
	return c.IndexPrefix + "_products"
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "shop-ai")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "shop_ai")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "shop_ai.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Elastic
	v.SetDefault("elastic.host", "http://localhost:9200")
	v.SetDefault("elastic.username", "")
	v.SetDefault("elastic.password", "")
	v.SetDefault("elastic.indexPrefix", "shop_ai")
	v.SetDefault("elastic.timeout", 30)

	// DuckDB
	v.SetDefault("duckdb.path", "")

	// Vector
	v.SetDefault("vector.backend", "elasticsearch")
	v.SetDefault("vector.dimensions", 1024)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.apiKey", "")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.alibaba.accessKeySecret", "")
	v.SetDefault("ai.alibaba.baseUrl", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("ai.alibaba.model", "qwen-plus")
	v.SetDefault("ai.deepseek.apiKey", "")
	v.SetDefault("ai.deepseek.baseUrl", "https://api.deepseek.com/v1")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.gemini.apiKey", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.classifyTemperature", 0.1)
	v.SetDefault("ai.respondTemperature", 0.7)
	v.SetDefault("ai.toolCallTemperature", 0.3)
	v.SetDefault("ai.maxTokens", 1024)
	v.SetDefault("ai.timeout", 30)

	// Embedding
	v.SetDefault("embedding.provider", "dashscope")
	v.SetDefault("embedding.model", "text-embedding-v3")
	v.SetDefault("embedding.apiKey", "")
	v.SetDefault("embedding.baseUrl", "")
	v.SetDefault("embedding.timeout", 30)
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("embedding.cacheTTL", 86400)

	// Agent
	v.SetDefault("agent.maxToolIterations", 3)
	v.SetDefault("agent.historyLimit", 20)
	v.SetDefault("agent.classifyWindow", 5)
	v.SetDefault("agent.respondWindow", 10)
	v.SetDefault("agent.maxSuggestions", 5)
	v.SetDefault("agent.systemPrompt", "")

	// Search
	v.SetDefault("search.defaultTopK", 10)
	v.SetDefault("search.minScore", 0.3)
	v.SetDefault("search.similarMinScore", 0.2)
	v.SetDefault("search.maxToolLimit", 10)
	v.SetDefault("search.scorePrecision", 4)
	v.SetDefault("search.indexBatchSize", 100)

	// Auth
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 24)

	// Secrets
	v.SetDefault("secrets.provider", "none")
	v.SetDefault("secrets.prefix", "/shop-ai")
}
