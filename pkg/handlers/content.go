package handlers

import (
	"net/http"
	"strings"

	"fusion-portal-backend/pkg/config"
	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/models"
	"fusion-portal-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ContentHandler 单一内容类型（post/document/event/poll）的增删改查
type ContentHandler struct {
	config  *config.Config
	db      database.ContentRepository
	variant models.ContentType
	log     logrus.FieldLogger
}

// NewContentHandler 创建内容处理器
func NewContentHandler(cfg *config.Config, db database.ContentRepository, variant models.ContentType, log logrus.FieldLogger) *ContentHandler {
	return &ContentHandler{
		config:  cfg,
		db:      db,
		variant: variant,
		log:     log.WithField("content_type", variant),
	}
}

// label 首字母大写的类型名，用于提示信息
func (h *ContentHandler) label() string {
	v := string(h.variant)
	if v == "" {
		return "Content"
	}
	return strings.ToUpper(v[:1]) + v[1:]
}

// Routes mounts the CRUD endpoints of this variant
func (h *ContentHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List 列出内容；?space_id= 限定到一个空间
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		items []models.Content
		err   error
	)
	if spaceID := utils.GetQueryParam(r, "space_id", ""); spaceID != "" {
		if err := feed.ValidateSpaceID(spaceID); err != nil {
			writeError(w, h.log, err, "Invalid space id")
			return
		}
		items, err = h.db.FetchContentBySpace(r.Context(), spaceID, h.variant)
		if err == nil {
			items = feed.Merge(items)
		}
	} else {
		items, err = h.db.ListContent(r.Context(), h.variant)
	}
	if err != nil {
		writeError(w, h.log, err, "Failed to list "+string(h.variant)+" content")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Get 获取单条内容
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.db.FetchContentByID(r.Context(), chi.URLParam(r, "id"), h.variant)
	if err != nil {
		writeError(w, h.log, err, h.label()+" not found")
		return
	}
	utils.WriteSuccessResponse(w, item)
}

// Create 创建内容；字段名接受旧版 camelCase
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var fields map[string]interface{}
	if err := utils.ParseJSONBody(r, &fields); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body: "+err.Error())
		return
	}

	// normalize once to validate what the caller actually sent
	probe := database.NormalizeContent(fields, h.variant)
	if probe.DisplayTitle() == "" {
		utils.WriteValidationErrorResponse(w, "A subject, title or question is required", "")
		return
	}
	if !probe.Unassigned() {
		if err := feed.ValidateSpaceID(probe.SpaceID); err != nil {
			writeError(w, h.log, err, "Invalid space id")
			return
		}
	}
	if h.variant == models.ContentPoll && len(probe.Options) < 2 {
		utils.WriteValidationErrorResponse(w, "A poll needs at least two options", "")
		return
	}

	item, err := h.db.CreateContent(r.Context(), h.variant, fields)
	if err != nil {
		writeError(w, h.log, err, "Failed to create "+string(h.variant))
		return
	}
	utils.WriteCreatedResponse(w, item)
}

// Update 部分更新，并刷新 updated 时间
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]interface{}
	if err := utils.ParseJSONBody(r, &patch); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.db.UpdateContent(r.Context(), chi.URLParam(r, "id"), h.variant, patch)
	if err != nil {
		writeError(w, h.log, err, "Failed to update "+string(h.variant))
		return
	}
	utils.WriteSuccessResponse(w, item)
}

// Delete 删除内容（投票选项、图片不级联）
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteContent(r.Context(), id, h.variant); err != nil {
		writeError(w, h.log, err, "Failed to delete "+string(h.variant))
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message": h.label() + " deleted successfully",
		"id":      id,
	})
}
