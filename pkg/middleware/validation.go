package middleware

import (
	"net/http"
	"strings"

	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// ContentTypeJSON 验证请求Content-Type为application/json
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 只对有请求体的方法验证
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				utils.WriteBadRequestResponse(w, "Content-Type header is required")
				return
			}
			// 忽略charset等参数
			if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
				utils.WriteBadRequestResponse(w, "Content-Type must be application/json")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// MaxBodySize 限制请求体大小
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// SpaceIDParam rejects a malformed {param} space id with 400 before the
// handler (and any repository call) runs.
func SpaceIDParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := feed.ValidateSpaceID(chi.URLParam(r, param)); err != nil {
				utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, utils.CodeInvalidSpace, "Invalid space id", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
