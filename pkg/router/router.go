package router

import (
	"fmt"
	"net/http"
	"time"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/handlers"
	customMiddleware "fusion-portal-backend/pkg/middleware"
	"fusion-portal-backend/pkg/models"
	"fusion-portal-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes 请求体上限（富文本正文可能较大）
const maxBodyBytes = 2 << 20

// Deps are the collaborators the router wires into handlers
type Deps struct {
	Config *config.Config
	DB     database.DatabaseInterface
	Log    logrus.FieldLogger
	// Pool is optional; only used for the debug stats endpoint
	Pool *database.Pool
}

// New 创建Chi路由器（"单体路由模式"，所有 API 端点集中管理）
func New(deps Deps) *chi.Mux {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	router := chi.NewRouter()
	setupMiddleware(router, deps)
	setupRoutes(router, deps)
	return router
}

// NewEngine builds the feed engine configured from cfg
func NewEngine(cfg *config.Config, db feed.ContentFetcher, log logrus.FieldLogger) *feed.Engine {
	return feed.New(db,
		feed.WithLogger(log),
		feed.WithPartialPolicy(feed.ParsePartialPolicy(cfg.FeedPartialPolicy)),
		feed.WithFetchTimeout(cfg.FetchTimeout),
	)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, deps Deps) {
	cfg := deps.Config

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.RequestLogger(deps.Log))
	router.Use(customMiddleware.Recovery(cfg, deps.Log))

	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, deps Deps) {
	cfg, db, log := deps.Config, deps.DB, deps.Log

	engine := NewEngine(cfg, db, log)
	healthHandler := handlers.NewHealthHandler(cfg, db, deps.Pool)
	spaceHandler := handlers.NewSpaceHandler(cfg, db, engine, log)

	// 健康检查端点
	router.Get("/", healthHandler.HealthCheck)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", healthHandler.PoolStats)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.MaxBodySize(maxBodyBytes))
		r.Use(customMiddleware.ContentTypeJSON)

		r.Get("/health", healthHandler.HealthCheck)

		r.Route("/spaces", func(r chi.Router) {
			r.Get("/", spaceHandler.ListSpaces)
			r.Post("/", spaceHandler.CreateSpace)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(customMiddleware.SpaceIDParam("id"))
				r.Get("/", spaceHandler.GetSpace)
				r.Put("/", spaceHandler.UpdateSpace)
				r.Patch("/", spaceHandler.UpdateSpace)
				r.Delete("/", spaceHandler.DeleteSpace)
				r.Get("/content", spaceHandler.GetSpaceContent)
				r.Get("/counts", spaceHandler.GetSpaceCounts)
			})
		})

		// 每种内容一组 CRUD 路由，例如 /api/posts、/api/polls
		for _, variant := range models.ContentVariants {
			h := handlers.NewContentHandler(cfg, db, variant, log)
			r.Route("/"+string(variant)+"s", h.Routes)
		}
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
