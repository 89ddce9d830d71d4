package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Opener creates a repository for a config (NewDatabase in production)
type Opener func(DatabaseConfig, logrus.FieldLogger) (DatabaseInterface, error)

// Pool 复用数据库连接（warm serverless 调用与长驻进程共用）
type Pool struct {
	open    Opener
	log     logrus.FieldLogger
	maxIdle time.Duration

	mu          sync.Mutex
	connections map[string]*pooledConn
}

type pooledConn struct {
	db       DatabaseInterface
	config   DatabaseConfig
	lastUsed time.Time
}

// NewPool 创建连接池；open 为 nil 时使用 NewDatabase
func NewPool(open Opener, log logrus.FieldLogger) *Pool {
	if open == nil {
		open = NewDatabase
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pool{
		open:        open,
		log:         log,
		maxIdle:     10 * time.Minute,
		connections: make(map[string]*pooledConn),
	}
}

// Get returns the cached connection for config, reopening it when the config
// changed, it sat idle past maxIdle, or its health check fails.
func (p *Pool) Get(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	key := configKey(config)

	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[key]; ok {
		reason := ""
		if time.Since(conn.lastUsed) > p.maxIdle {
			reason = "expired"
		} else if err := conn.db.HealthCheck(ctx); err != nil {
			reason = "health check failed: " + err.Error()
		}
		if reason == "" {
			conn.lastUsed = time.Now()
			p.log.WithField("key", key[:8]).Debug("Reusing database connection")
			return conn.db, nil
		}
		p.log.WithField("key", key[:8]).Warnf("Recreating database connection (%s)", reason)
		_ = conn.db.Close()
		delete(p.connections, key)
	}

	p.log.WithField("key", key[:8]).Info("Creating new database connection")
	db, err := p.open(config, p.log)
	if err != nil {
		return nil, err
	}
	p.connections[key] = &pooledConn{db: db, config: config, lastUsed: time.Now()}
	return db, nil
}

// CleanupIdle 关闭超过 maxIdle 未使用的连接，返回关闭数量
func (p *Pool) CleanupIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	closed := 0
	for key, conn := range p.connections {
		if time.Since(conn.lastUsed) > p.maxIdle {
			_ = conn.db.Close()
			delete(p.connections, key)
			closed++
		}
	}
	if closed > 0 {
		p.log.WithField("count", closed).Info("Cleaned up idle connections")
	}
	return closed
}

// RunCleanup 定期清理空闲连接直到 ctx 结束
func (p *Pool) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CleanupIdle()
		}
	}
}

// Stats 获取连接池统计信息
func (p *Pool) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns := make([]map[string]interface{}, 0, len(p.connections))
	for key, conn := range p.connections {
		conns = append(conns, map[string]interface{}{
			"key":       key[:8] + "...",
			"driver":    conn.config.ResolveDriver(),
			"last_used": conn.lastUsed.Format(time.RFC3339),
			"age":       time.Since(conn.lastUsed).String(),
		})
	}
	return map[string]interface{}{
		"total_connections": len(p.connections),
		"connections":       conns,
	}
}

// Close 强制关闭所有连接
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for key, conn := range p.connections {
		if err := conn.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.connections, key)
	}
	return firstErr
}

// configKey hashes the connection settings so secrets never show up in logs
func configKey(c DatabaseConfig) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s|%t",
		c.ResolveDriver(), c.PostgresDSN, c.SupabaseURL, c.SupabaseKey, c.SQLitePath, c.Debug)))
	return hex.EncodeToString(sum[:])
}
