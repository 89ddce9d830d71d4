package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewContentID 生成内容 ID，格式为 "<variant>-<uuid>"（例如 poll-3f2a...）
func NewContentID(variant string) string {
	prefix := strings.ToLower(strings.TrimSpace(variant))
	if prefix == "" {
		prefix = "content"
	}
	return prefix + "-" + uuid.NewString()
}

// NewSpaceID 生成空间 ID
func NewSpaceID() string {
	return "space-" + uuid.NewString()
}
