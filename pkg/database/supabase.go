package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fusion-portal-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// SupabaseDatabase Supabase (PostgREST) 数据库实现
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logrus.FieldLogger
	now        func() time.Time
}

// RequestError PostgREST 返回的错误状态
type RequestError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("API request %s %s failed with status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(baseURL, key string, log logrus.FieldLogger) *SupabaseDatabase {
	// 确保URL格式正确
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &SupabaseDatabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

// makeRequest 发送HTTP请求到Supabase
func (db *SupabaseDatabase) makeRequest(ctx context.Context, method, endpoint string, body interface{}, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, db.baseURL+"/rest/v1"+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置请求头
	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	db.log.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("supabase request")

	if resp.StatusCode >= 400 {
		return nil, &RequestError{Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// getRows GET 并解析为通用行
func (db *SupabaseDatabase) getRows(ctx context.Context, endpoint string) ([]map[string]interface{}, error) {
	data, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(data)
}

func decodeRows(data []byte) ([]map[string]interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return rows, nil
}

// eq 构造 PostgREST 等值过滤
func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

// ================= Spaces =================

func (db *SupabaseDatabase) ListSpaces(ctx context.Context) ([]models.Space, error) {
	rows, err := db.getRows(ctx, "/spaces?select=*&order=published.desc.nullslast")
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	spaces := make([]models.Space, 0, len(rows))
	for _, row := range rows {
		spaces = append(spaces, NormalizeSpace(row))
	}
	return spaces, nil
}

func (db *SupabaseDatabase) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	rows, err := db.getRows(ctx, "/spaces?"+eq("id", id)+"&select=*")
	if err != nil {
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	if len(rows) == 0 {
		return nil, notFound("space", id)
	}
	s := NormalizeSpace(rows[0])
	return &s, nil
}

func (db *SupabaseDatabase) CreateSpace(ctx context.Context, space *models.Space) error {
	newSpace(space)
	data, err := db.makeRequest(ctx, http.MethodPost, "/spaces", spaceRecord(space), nil)
	if err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}
	if rows, err := decodeRows(data); err == nil && len(rows) > 0 {
		*space = NormalizeSpace(rows[0])
	}
	db.log.WithField("space_id", space.ID).Info("Created space via Supabase REST")
	return nil
}

func (db *SupabaseDatabase) UpdateSpace(ctx context.Context, id string, patch models.SpacePatch) (*models.Space, error) {
	existing, err := db.GetSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(existing)
	rec := spaceRecord(existing)
	delete(rec, "id")
	data, err := db.makeRequest(ctx, http.MethodPatch, "/spaces?"+eq("id", id), rec, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update space: %w", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("space", id)
	}
	s := NormalizeSpace(rows[0])
	return &s, nil
}

func (db *SupabaseDatabase) DeleteSpace(ctx context.Context, id string) error {
	data, err := db.makeRequest(ctx, http.MethodDelete, "/spaces?"+eq("id", id), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return notFound("space", id)
	}
	return nil
}

func (db *SupabaseDatabase) UpsertSpace(ctx context.Context, space *models.Space) error {
	newSpace(space)
	_, err := db.makeRequest(ctx, http.MethodPost, "/spaces?on_conflict=id", spaceRecord(space),
		map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"})
	if err != nil {
		return fmt.Errorf("failed to upsert space: %w", err)
	}
	return nil
}

// ================= Content =================

func (db *SupabaseDatabase) FetchContentBySpace(ctx context.Context, spaceID string, variant models.ContentType) ([]models.Content, error) {
	if err := checkVariant(variant); err != nil {
		return nil, err
	}
	endpoint := "/content?" + eq("space_id", spaceID) + "&" + eq("content_type", string(variant)) + "&select=*"
	rows, err := db.getRows(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s content: %w", variant, err)
	}
	items := make([]models.Content, 0, len(rows))
	for _, row := range rows {
		items = append(items, NormalizeContent(row, variant))
	}
	return items, nil
}

func (db *SupabaseDatabase) FetchContentByID(ctx context.Context, id string, variant models.ContentType) (*models.Content, error) {
	if err := checkVariant(variant); err != nil {
		return nil, err
	}
	rows, err := db.getRows(ctx, "/content?"+eq("id", id)+"&"+eq("content_type", string(variant))+"&select=*")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", variant, err)
	}
	if len(rows) == 0 {
		return nil, notFound(string(variant), id)
	}
	c := NormalizeContent(rows[0], variant)
	return &c, nil
}

func (db *SupabaseDatabase) ListContent(ctx context.Context, variant models.ContentType) ([]models.Content, error) {
	if err := checkVariant(variant); err != nil {
		return nil, err
	}
	rows, err := db.getRows(ctx, "/content?"+eq("content_type", string(variant))+"&select=*&order=published.desc.nullslast")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s content: %w", variant, err)
	}
	items := make([]models.Content, 0, len(rows))
	for _, row := range rows {
		items = append(items, NormalizeContent(row, variant))
	}
	return items, nil
}

func (db *SupabaseDatabase) CreateContent(ctx context.Context, variant models.ContentType, fields map[string]interface{}) (*models.Content, error) {
	c, err := newContent(variant, fields, db.now())
	if err != nil {
		return nil, err
	}
	data, err := db.makeRequest(ctx, http.MethodPost, "/content", contentRecord(&c), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", variant, err)
	}
	if rows, err := decodeRows(data); err == nil && len(rows) > 0 {
		c = NormalizeContent(rows[0], variant)
	}
	db.log.WithFields(logrus.Fields{"id": c.ID, "content_type": variant}).Info("Created content via Supabase REST")
	return &c, nil
}

func (db *SupabaseDatabase) UpdateContent(ctx context.Context, id string, variant models.ContentType, patch map[string]interface{}) (*models.Content, error) {
	existing, err := db.FetchContentByID(ctx, id, variant)
	if err != nil {
		return nil, err
	}
	updated, err := patchContent(*existing, patch, db.now())
	if err != nil {
		return nil, err
	}
	rec := contentRecord(&updated)
	delete(rec, "id")
	data, err := db.makeRequest(ctx, http.MethodPatch, "/content?"+eq("id", id)+"&"+eq("content_type", string(variant)), rec, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", variant, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound(string(variant), id)
	}
	c := NormalizeContent(rows[0], variant)
	return &c, nil
}

func (db *SupabaseDatabase) DeleteContent(ctx context.Context, id string, variant models.ContentType) error {
	if err := checkVariant(variant); err != nil {
		return err
	}
	data, err := db.makeRequest(ctx, http.MethodDelete, "/content?"+eq("id", id)+"&"+eq("content_type", string(variant)), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", variant, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return notFound(string(variant), id)
	}
	db.log.WithFields(logrus.Fields{"id": id, "content_type": variant}).Info("Deleted content via Supabase REST")
	return nil
}

func (db *SupabaseDatabase) UpsertContent(ctx context.Context, c *models.Content) error {
	if err := checkVariant(c.ContentType); err != nil {
		return err
	}
	_, err := db.makeRequest(ctx, http.MethodPost, "/content?on_conflict=id", contentRecord(c),
		map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"})
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", c.ContentType, c.ID, err)
	}
	return nil
}

// HealthCheck 健康检查
func (db *SupabaseDatabase) HealthCheck(ctx context.Context) error {
	_, err := db.makeRequest(ctx, http.MethodGet, "/", nil, nil)
	return err
}

// Close 关闭连接
func (db *SupabaseDatabase) Close() error {
	// HTTP客户端无需显式关闭
	db.httpClient.CloseIdleConnections()
	return nil
}
