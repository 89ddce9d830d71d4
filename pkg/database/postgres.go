package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	*sqlStore
}

var postgresDialect = sqlDialect{
	name:        DriverPostgres,
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	contentSelect: "id, content_type, space_id, subject, title, question, author::text, tags::text, " +
		"like_count, view_count, follower_count, published::text, updated::text, start_date::text, details::text",
	spaceSelect: "id, name, display_name, description, tags::text, content_types::text, published::text",
}

// connectionStrategies 尝试多种连接参数来解决 Lambda 的 IPv6 问题
func connectionStrategies(dsn string) []string {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	return []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // 最后尝试原始DSN
	}
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string, log logrus.FieldLogger) (*PostgresDatabase, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var lastErr error
	for i, strategy := range connectionStrategies(dsn) {
		entry := log.WithField("strategy", i+1)
		entry.Debug("Trying connection strategy")

		db, err := sql.Open("postgres", strategy)
		if err != nil {
			entry.WithError(err).Warn("Strategy failed to open")
			lastErr = err
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			entry.WithError(err).Warn("Strategy failed to ping")
			db.Close()
			lastErr = err
			continue
		}

		entry.Info("PostgreSQL connection established")
		return &PostgresDatabase{sqlStore: &sqlStore{db: db, dialect: postgresDialect, log: log, now: time.Now}}, nil
	}

	// 所有策略都失败了
	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", lastErr)
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	// key=value DSNs take space separated params
	if !strings.Contains(dsn, "://") {
		return strings.TrimSpace(dsn + " " + strings.ReplaceAll(params, "&", " "))
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// TunePool 调整应用侧连接池参数（长驻进程使用，主要池化由 pgBouncer 负责）
func (db *PostgresDatabase) TunePool() {
	if db == nil || db.db == nil {
		return
	}
	db.db.SetMaxOpenConns(20)
	db.db.SetMaxIdleConns(10)
	db.db.SetConnMaxLifetime(5 * time.Minute)
	db.db.SetConnMaxIdleTime(2 * time.Minute)
}

// Migrate 创建表结构
func (db *PostgresDatabase) Migrate(ctx context.Context) error {
	return ApplySchema(ctx, db.db, PostgresSchema)
}
