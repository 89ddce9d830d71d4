package middleware

import (
	"net/http"
	"strings"

	"fusion-portal-backend/pkg/config"

	"github.com/go-chi/cors"
)

// CORS 创建CORS中间件
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	corsOptions := cors.Options{
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Requested-With",
			"X-Request-Id",
			"Cache-Control",
		},
		ExposedHeaders: []string{
			"X-Request-Id",
			"X-Total-Count",
		},
		MaxAge: 300, // 5分钟
	}

	// 开发环境或通配符：允许所有来源，不带凭据
	if cfg.IsDevelopment() || contains(cfg.AllowedOrigins, "*") || len(cfg.AllowedOrigins) == 0 {
		corsOptions.AllowedOrigins = []string{"*"}
		corsOptions.AllowCredentials = false
		return cors.Handler(corsOptions)
	}

	// 配置的来源支持前缀通配，例如 "https://preview-*"
	allowed := cfg.AllowedOrigins
	corsOptions.AllowOriginFunc = func(r *http.Request, origin string) bool {
		return isOriginAllowed(origin, allowed)
	}
	corsOptions.AllowCredentials = true
	return cors.Handler(corsOptions)
}

// isOriginAllowed 检查来源是否被允许
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" || len(allowedOrigins) == 0 {
		return false
	}
	if contains(allowedOrigins, "*") || contains(allowedOrigins, origin) {
		return true
	}
	// 简单的前缀通配
	for _, allowed := range allowedOrigins {
		if prefix, ok := strings.CutSuffix(allowed, "*"); ok && strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// contains 检查切片是否包含指定的字符串
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
