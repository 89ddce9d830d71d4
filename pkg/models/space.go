package models

import "time"

// Space is a named container ("place") that owns content items
type Space struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	DisplayName  string     `json:"display_name,omitempty" db:"display_name"`
	Description  string     `json:"description,omitempty" db:"description"`
	Tags         []string   `json:"tags" db:"tags"`
	ContentTypes []string   `json:"content_types" db:"content_types"`
	Published    *time.Time `json:"published,omitempty" db:"published"`
}

// SpacePatch carries the fields of a partial space update; nil means "leave as is"
type SpacePatch struct {
	Name         *string    `json:"name"`
	DisplayName  *string    `json:"display_name"`
	Description  *string    `json:"description"`
	Tags         []string   `json:"tags"`
	ContentTypes []string   `json:"content_types"`
	Published    *time.Time `json:"published"`
}

// Apply copies the non-nil patch fields onto s.
func (p SpacePatch) Apply(s *Space) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.DisplayName != nil {
		s.DisplayName = *p.DisplayName
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Tags != nil {
		s.Tags = p.Tags
	}
	if p.ContentTypes != nil {
		s.ContentTypes = p.ContentTypes
	}
	if p.Published != nil {
		s.Published = p.Published
	}
}
