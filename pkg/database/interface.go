package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// ContentRepository 内容存储接口（post/document/event/poll 统一存放在 content 表）
type ContentRepository interface {
	// FetchContentBySpace returns every item of one variant that belongs to spaceID.
	FetchContentBySpace(ctx context.Context, spaceID string, variant models.ContentType) ([]models.Content, error)
	// FetchContentByID returns ErrNotFound when no item of that variant has the id.
	FetchContentByID(ctx context.Context, id string, variant models.ContentType) (*models.Content, error)
	// ListContent lists one variant across all spaces, newest first.
	ListContent(ctx context.Context, variant models.ContentType) ([]models.Content, error)
	// CreateContent inserts a new item. fields may use any legacy naming; the id
	// is taken from fields when present, otherwise generated.
	CreateContent(ctx context.Context, variant models.ContentType, fields map[string]interface{}) (*models.Content, error)
	// UpdateContent applies a partial update and stamps "updated".
	UpdateContent(ctx context.Context, id string, variant models.ContentType, patch map[string]interface{}) (*models.Content, error)
	// DeleteContent removes an item. Poll options and images are not cascaded.
	DeleteContent(ctx context.Context, id string, variant models.ContentType) error
	// UpsertContent writes c as-is (used by the seed importer).
	UpsertContent(ctx context.Context, c *models.Content) error
}

// SpaceRepository 空间存储接口
type SpaceRepository interface {
	ListSpaces(ctx context.Context) ([]models.Space, error)
	GetSpace(ctx context.Context, id string) (*models.Space, error)
	CreateSpace(ctx context.Context, space *models.Space) error
	UpdateSpace(ctx context.Context, id string, patch models.SpacePatch) (*models.Space, error)
	DeleteSpace(ctx context.Context, id string) error
	UpsertSpace(ctx context.Context, space *models.Space) error
}

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	SpaceRepository
	ContentRepository

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// Driver names
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver      string
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	SQLitePath  string
	Debug       bool
}

// ConfigFrom 从应用配置提取数据库配置
func ConfigFrom(cfg *config.Config) DatabaseConfig {
	return DatabaseConfig{
		Driver:      cfg.DatabaseDriver,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		SQLitePath:  cfg.SQLitePath,
		Debug:       cfg.Debug,
	}
}

// ResolveDriver picks the backend: the explicit driver when set, otherwise
// Supabase on serverless (avoids IPv6 issues), then Postgres, then Supabase,
// then the local SQLite file.
func (c DatabaseConfig) ResolveDriver() string {
	if d := strings.ToLower(strings.TrimSpace(c.Driver)); d != "" {
		return d
	}
	hasSupabase := c.SupabaseURL != "" && c.SupabaseKey != ""
	if IsServerlessEnvironment() && hasSupabase {
		return DriverSupabase
	}
	if c.PostgresDSN != "" {
		return DriverPostgres
	}
	if hasSupabase {
		return DriverSupabase
	}
	return DriverSQLite
}

// NewDatabase 根据配置选择数据库实现
func NewDatabase(config DatabaseConfig, log logrus.FieldLogger) (DatabaseInterface, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	driver := config.ResolveDriver()
	log = log.WithField("driver", driver)

	switch driver {
	case DriverSupabase:
		if config.SupabaseURL == "" || config.SupabaseKey == "" {
			return nil, fmt.Errorf("supabase driver requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
		log.Info("Using Supabase REST API")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey, log), nil
	case DriverPostgres:
		if config.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres driver requires POSTGRES_DSN")
		}
		log.Info("Using PostgreSQL database")
		db, err := NewPostgresDatabase(config.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverSQLite:
		path := config.SQLitePath
		if path == "" {
			path = "./data/portal.db"
		}
		log.WithField("path", path).Info("Using local SQLite database")
		db, err := NewSQLiteDatabase(path, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// IsServerlessEnvironment 检查是否在 Vercel / Lambda 环境中
func IsServerlessEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}
