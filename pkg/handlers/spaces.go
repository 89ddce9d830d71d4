package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/models"
	"fusion-portal-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// SpaceHandler 空间与空间内容聚合处理器
type SpaceHandler struct {
	config *config.Config
	db     database.SpaceRepository
	engine *feed.Engine
	log    logrus.FieldLogger
}

// NewSpaceHandler 创建空间处理器
func NewSpaceHandler(cfg *config.Config, db database.SpaceRepository, engine *feed.Engine, log logrus.FieldLogger) *SpaceHandler {
	return &SpaceHandler{
		config: cfg,
		db:     db,
		engine: engine,
		log:    log,
	}
}

// ListSpaces 列出所有空间（按发布时间倒序）
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.db.ListSpaces(r.Context())
	if err != nil {
		writeError(w, h.log, err, "Failed to list spaces")
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"spaces": spaces,
		"count":  len(spaces),
	})
}

// GetSpace returns the space with its content grouped by variant
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	space, err := h.db.GetSpace(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err, "Space not found")
		return
	}

	items, err := h.engine.LoadSpaceFeed(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err, "Failed to load space content")
		return
	}

	grouped := map[models.ContentType][]models.Content{}
	for _, v := range models.ContentVariants {
		grouped[v] = []models.Content{}
	}
	for _, item := range items {
		grouped[item.ContentType] = append(grouped[item.ContentType], item)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"space":     space,
		"posts":     grouped[models.ContentPost],
		"documents": grouped[models.ContentDocument],
		"events":    grouped[models.ContentEvent],
		"polls":     grouped[models.ContentPoll],
	})
}

// CreateSpace 创建空间
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	var space models.Space
	if err := utils.ParseJSONBody(r, &space); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(space.Name) == "" {
		utils.WriteValidationErrorResponse(w, "Space name is required", "")
		return
	}
	if space.ID != "" {
		if err := feed.ValidateSpaceID(space.ID); err != nil {
			writeError(w, h.log, err, "Invalid space id")
			return
		}
	}

	if err := h.db.CreateSpace(r.Context(), &space); err != nil {
		writeError(w, h.log, err, "Failed to create space")
		return
	}
	utils.WriteCreatedResponse(w, space)
}

// UpdateSpace 部分更新空间
func (h *SpaceHandler) UpdateSpace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch models.SpacePatch
	if err := utils.ParseJSONBody(r, &patch); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body: "+err.Error())
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		utils.WriteValidationErrorResponse(w, "Space name cannot be empty", "")
		return
	}

	space, err := h.db.UpdateSpace(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.log, err, "Failed to update space")
		return
	}
	utils.WriteSuccessResponse(w, space)
}

// DeleteSpace 删除空间（内容不级联删除）
func (h *SpaceHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteSpace(r.Context(), id); err != nil {
		writeError(w, h.log, err, "Failed to delete space")
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message": "Space deleted successfully",
		"id":      id,
	})
}

// GetSpaceContent 空间 feed：合并、过滤、分页
func (h *SpaceHandler) GetSpaceContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opts := feed.Options{
		Tab:      utils.GetRawQueryParam(r, "tab", feed.TabAll),
		Query:    utils.GetRawQueryParam(r, "q", utils.GetRawQueryParam(r, "search", "")),
		Category: utils.GetQueryParam(r, "category", ""),
		Action:   utils.GetQueryParam(r, "action", ""),
		Sort:     utils.GetQueryParam(r, "sort", feed.SortNewest),
	}
	page := feed.Page{
		Number: utils.GetIntQueryParam(r, "page", 1),
		Size:   utils.GetIntQueryParam(r, "page_size", h.config.FeedPageSize),
	}

	res, err := h.engine.Query(r.Context(), id, opts, page)
	if err != nil {
		writeError(w, h.log, err, "Failed to load space feed")
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(res.Total))
	utils.WritePaginatedResponse(w, map[string]interface{}{
		"items":  res.Items,
		"counts": res.Counts,
	}, utils.NewMeta(res.Page.Number, res.Page.Size, res.Total))
}

// GetSpaceCounts 空间内各类型数量
func (h *SpaceHandler) GetSpaceCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.engine.GetCounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "Failed to count space content")
		return
	}
	utils.WriteSuccessResponse(w, counts)
}
