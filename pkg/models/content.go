package models

import (
	"strings"
	"time"
)

// ContentType 内容类型标签（content_type 判别字段）
type ContentType string

const (
	ContentPost       ContentType = "post"
	ContentDocument   ContentType = "document"
	ContentEvent      ContentType = "event"
	ContentPoll       ContentType = "poll"
	ContentDiscussion ContentType = "discussion"
	ContentVideo      ContentType = "video"
)

// ContentVariants 一个空间聚合时需要拉取的四种内容，顺序即合并顺序
var ContentVariants = []ContentType{ContentPost, ContentDocument, ContentEvent, ContentPoll}

// ParseContentType maps a stored or user supplied tag onto a ContentType.
// Legacy spellings ("blog", "blogs", "posts", ...) collapse onto the variant;
// anything else is returned lower-cased as-is.
func ParseContentType(s string) ContentType {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case "post", "posts", "blog", "blogs", "blogpost":
		return ContentPost
	case "document", "documents", "doc", "file":
		return ContentDocument
	case "event", "events":
		return ContentEvent
	case "poll", "polls":
		return ContentPoll
	default:
		return ContentType(t)
	}
}

// IsVariant 是否为可增删改查的四种内容之一
func (t ContentType) IsVariant() bool {
	switch t {
	case ContentPost, ContentDocument, ContentEvent, ContentPoll:
		return true
	}
	return false
}

// Author is the denormalized author reference stored with each item
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// ContentImage is an ordered image reference of a post or document
type ContentImage struct {
	ID   string `json:"id,omitempty"`
	Ref  string `json:"ref"`
	Name string `json:"name,omitempty"`
}

// PollOption is one answer of a poll
type PollOption struct {
	ID           string `json:"id,omitempty"`
	Text         string `json:"text"`
	DisplayOrder int    `json:"display_order"`
	Votes        int    `json:"votes,omitempty"`
}

// Content 统一的内容记录（post/document/event/poll 四选一）
type Content struct {
	ID            string      `json:"id"`
	ContentType   ContentType `json:"content_type"`
	Subject       string      `json:"subject,omitempty"`
	Title         string      `json:"title,omitempty"`
	Author        Author      `json:"author"`
	SpaceID       string      `json:"space_id,omitempty"`
	Tags          []string    `json:"tags"`
	LikeCount     int         `json:"like_count"`
	ViewCount     int         `json:"view_count"`
	FollowerCount int         `json:"follower_count"`
	Published     *time.Time  `json:"published,omitempty"`
	Updated       *time.Time  `json:"updated,omitempty"`

	// post / document
	Body   string         `json:"body,omitempty"`
	Images []ContentImage `json:"images,omitempty"`

	// event
	Location     string     `json:"location,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EventAccess  string     `json:"event_access,omitempty"`
	MaxAttendees int        `json:"max_attendees,omitempty"`

	// event / poll
	EndDate *time.Time `json:"end_date,omitempty"`

	// poll
	Question           string       `json:"question,omitempty"`
	Description        string       `json:"description,omitempty"`
	Options            []PollOption `json:"options,omitempty"`
	AllowMultipleVotes bool         `json:"allow_multiple_votes,omitempty"`
}

// EffectiveTime is the feed sort key: published, else start_date, else the zero time.
func (c *Content) EffectiveTime() time.Time {
	if c.Published != nil && !c.Published.IsZero() {
		return *c.Published
	}
	if c.StartDate != nil && !c.StartDate.IsZero() {
		return *c.StartDate
	}
	return time.Time{}
}

// DisplayTitle returns the first non-empty of subject, question, title.
func (c *Content) DisplayTitle() string {
	for _, s := range []string{c.Subject, c.Question, c.Title} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Unassigned reports whether the item has no parent space.
func (c *Content) Unassigned() bool {
	return strings.TrimSpace(c.SpaceID) == ""
}

// HasTag 标签匹配（忽略大小写）
func (c *Content) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range c.Tags {
		if strings.ToLower(strings.TrimSpace(t)) == tag {
			return true
		}
	}
	return false
}
