package handlers

import (
	"context"
	"net/http"
	"time"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/utils"
)

// Version of the service reported by the health check
const Version = "1.0.0"

// HealthHandler 健康检查处理器
type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	pool   *database.Pool
}

// NewHealthHandler 创建健康检查处理器；pool 可以为 nil
func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface, pool *database.Pool) *HealthHandler {
	return &HealthHandler{
		config: cfg,
		db:     db,
		pool:   pool,
	}
}

// HealthCheck 健康检查（数据库不可用时返回 503）
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	if err := h.db.HealthCheck(ctx); err != nil {
		status = "degraded"
		dbStatus = "unhealthy: " + err.Error()
	}

	body := map[string]interface{}{
		"service":     "fusion-portal-backend",
		"version":     Version,
		"environment": h.config.Environment,
		"database":    h.databaseType(),
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
		"status":      status,
	}
	if status != "healthy" {
		utils.WriteErrorResponseWithData(w, http.StatusServiceUnavailable, utils.CodeDataUnavailable, "Database unavailable", dbStatus, body)
		return
	}
	utils.WriteSuccessResponse(w, body)
}

// PoolStats 连接池状态（调试用）
func (h *HealthHandler) PoolStats(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		utils.WriteSuccessResponse(w, map[string]interface{}{"total_connections": 0})
		return
	}
	utils.WriteSuccessResponse(w, h.pool.Stats())
}

// databaseType 获取数据库类型
func (h *HealthHandler) databaseType() string {
	return database.ConfigFrom(h.config).ResolveDriver()
}
