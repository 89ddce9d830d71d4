package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fusion-portal-backend/pkg/models"
	"fusion-portal-backend/pkg/utils"
)

var (
	// ErrNotFound 单条记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrInvalidVariant 不支持的内容类型
	ErrInvalidVariant = errors.New("unsupported content variant")
)

// notFound wraps ErrNotFound with the entity description
func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func checkVariant(variant models.ContentType) error {
	if !variant.IsVariant() {
		return fmt.Errorf("%w: %q", ErrInvalidVariant, variant)
	}
	return nil
}

// newContent builds the record to insert for a create call. The id is the
// caller's when supplied, otherwise generated; published/updated default to now.
func newContent(variant models.ContentType, fields map[string]interface{}, now time.Time) (models.Content, error) {
	if err := checkVariant(variant); err != nil {
		return models.Content{}, err
	}
	c := NormalizeContent(fields, variant)
	c.ContentType = variant
	if strings.TrimSpace(c.ID) == "" {
		c.ID = utils.NewContentID(string(variant))
	}
	now = now.UTC()
	if c.Published == nil {
		c.Published = &now
	}
	c.Updated = &now
	return c, nil
}

// patchContent overlays a partial update onto existing and stamps updated.
// Patch keys may use any naming variant; id and content_type are immutable.
func patchContent(existing models.Content, patch map[string]interface{}, now time.Time) (models.Content, error) {
	base, err := genericRecord(contentRecord(&existing))
	if err != nil {
		return models.Content{}, err
	}
	merged := canonicalize(base)
	for k, v := range canonicalize(patch) {
		switch k {
		case "id", "content_type":
			continue
		}
		merged[k] = v
	}
	out := NormalizeContent(merged, existing.ContentType)
	out.ID = existing.ID
	out.ContentType = existing.ContentType
	now = now.UTC()
	out.Updated = &now
	return out, nil
}

// newSpace fills the id of a space to create.
func newSpace(s *models.Space) {
	if strings.TrimSpace(s.ID) == "" {
		s.ID = utils.NewSpaceID()
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.ContentTypes == nil {
		s.ContentTypes = []string{}
	}
}

// genericRecord round-trips v through JSON so typed slices become []interface{}
func genericRecord(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return m, nil
}
