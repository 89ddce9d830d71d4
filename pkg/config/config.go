package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string
	Port        string

	// 数据库配置
	DatabaseDriver string // supabase | postgres | sqlite, empty = auto
	PostgresDSN    string
	SupabaseURL    string
	SupabaseKey    string
	SQLitePath     string

	// CORS配置
	AllowedOrigins []string

	// 日志配置
	LogLevel  string
	LogFormat string // text | json | auto

	// Feed 聚合配置
	FetchTimeout      time.Duration
	FeedPartialPolicy string // strict | degrade
	FeedPageSize      int

	// 调试配置
	Debug bool
}

// LoadConfig 加载配置（支持本地和Vercel环境）
func LoadConfig() *Config {
	// 根据环境加载对应的 .env 文件，已存在的环境变量优先
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development" // 默认开发环境
	}
	switch env {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}
	loadEnvFile(".env")

	config := &Config{
		Environment:       getEnvWithDefault("ENVIRONMENT", "development"),
		Port:              getEnvWithDefault("PORT", "3000"),
		DatabaseDriver:    strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))),
		SQLitePath:        getEnvWithDefault("SQLITE_PATH", "./data/portal.db"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:         strings.ToLower(getEnvWithDefault("LOG_FORMAT", "auto")),
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FeedPartialPolicy: strings.ToLower(getEnvWithDefault("FEED_PARTIAL_POLICY", "strict")),
		FeedPageSize:      getEnvInt("FEED_PAGE_SIZE", 20),
		Debug:             getEnvBool("DEBUG", false),
	}

	// 数据库配置
	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.SupabaseURL = strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	config.SupabaseKey = strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY"))

	// CORS配置
	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, o)
			}
		}
	}

	// 生产环境关闭调试
	if config.IsProduction() {
		config.Debug = false
	}
	if config.Debug {
		config.LogLevel = "debug"
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}

	switch c.DatabaseDriver {
	case "":
		// auto
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("DATABASE_DRIVER=supabase requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_DRIVER=postgres requires POSTGRES_DSN")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("DATABASE_DRIVER=sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	// 生产环境必须使用外部数据库（PostgreSQL或Supabase）
	if c.IsProduction() && c.DatabaseDriver != "sqlite" &&
		c.PostgresDSN == "" && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		return fmt.Errorf("数据库配置不完整：请配置 POSTGRES_DSN 或 SUPABASE_URL+SUPABASE_SERVICE_KEY")
	}

	switch c.FeedPartialPolicy {
	case "strict", "degrade":
	default:
		return fmt.Errorf("FEED_PARTIAL_POLICY must be strict or degrade, got %q", c.FeedPartialPolicy)
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be auto, text or json, got %q", c.LogFormat)
	}
	if c.FeedPageSize < 1 {
		return fmt.Errorf("FEED_PAGE_SIZE must be positive")
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("FETCH_TIMEOUT must not be negative")
	}
	return nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// 辅助函数

// getEnvWithDefault 获取环境变量，如果不存在则使用默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型的环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or plain seconds ("5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// loadEnvFile 加载 .env 文件到环境变量；文件不存在时静默返回
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); err != nil {
		return
	}
	// godotenv.Load never overrides variables that are already set
	_ = godotenv.Load(filename)
}
