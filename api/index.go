package handler

import (
	"context"
	"net/http"
	"sync"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/logger"
	"fusion-portal-backend/pkg/router"
	"fusion-portal-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// 每个冷启动初始化一次，warm 调用复用
var (
	pool    *database.Pool
	initLog *logrus.Logger
	poolMu  sync.Once
)

// Handler 是Vercel函数的入口点
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	poolMu.Do(func() {
		initLog = logger.New(cfg)
		pool = database.NewPool(nil, initLog)
	})

	// 连接由 pool 管理：配置未变且健康检查通过时复用
	db, err := pool.Get(context.Background(), database.ConfigFrom(cfg))
	if err != nil {
		initLog.WithError(err).Error("Database connection failed")
		utils.WriteServiceUnavailableResponse(w, "Database unavailable", err.Error(), nil)
		return
	}

	mux := routerFor(cfg, db)
	mux.ServeHTTP(w, r)
}

// routerFor caches the router per repository handle; a new handle (after the
// pool reconnects) gets a fresh router
var (
	routerMu     sync.Mutex
	cachedDB     database.DatabaseInterface
	cachedRouter *chi.Mux
)

func routerFor(cfg *config.Config, db database.DatabaseInterface) *chi.Mux {
	routerMu.Lock()
	defer routerMu.Unlock()
	if cachedRouter == nil || cachedDB != db {
		cachedRouter = router.New(router.Deps{Config: cfg, DB: db, Log: initLog, Pool: pool})
		cachedDB = db
	}
	return cachedRouter
}
