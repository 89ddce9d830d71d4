package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"fusion-portal-backend/pkg/models"
)

// fieldAliases maps legacy / camelCase column names onto the canonical schema.
// Canonical names always win over an alias when both are present.
var fieldAliases = map[string]string{
	"type":               "content_type",
	"contentType":        "content_type",
	"likeCount":          "like_count",
	"viewCount":          "view_count",
	"followerCount":      "follower_count",
	"startDate":          "start_date",
	"endDate":            "end_date",
	"eventAccess":        "event_access",
	"maxAttendees":       "max_attendees",
	"allowMultipleVotes": "allow_multiple_votes",
	"contentImages":      "images",
	"content_images":     "images",
	"poll_options":       "options",
	"spaceId":            "space_id",
	"place_id":           "space_id",
	"placeId":            "space_id",
	"parentPlace":        "parent_place",
	"updated_at":         "updated",
	"updatedAt":          "updated",
	"published_at":       "published",
	"publishedAt":        "published",
	"displayName":        "display_name",
	"contentTypes":       "content_types",
}

// canonicalize 展开 details 并把别名字段改写为规范字段名
func canonicalize(raw map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "details" {
			continue
		}
		flat[k] = v
	}
	// variant-specific fields live in "details" in the unified table
	if details, ok := raw["details"].(map[string]interface{}); ok {
		for k, v := range details {
			if _, exists := flat[k]; !exists {
				flat[k] = v
			}
		}
	}

	out := make(map[string]interface{}, len(flat))
	for k, v := range flat {
		if canon, ok := fieldAliases[k]; ok {
			if _, exists := flat[canon]; exists {
				continue
			}
			out[canon] = v
			continue
		}
		out[k] = v
	}
	return out
}

// NormalizeContent converts a raw stored record (any naming variant) into the
// canonical Content model. fallback is the variant the record was fetched as
// and is used when the record carries no discriminator of its own.
func NormalizeContent(raw map[string]interface{}, fallback models.ContentType) models.Content {
	m := canonicalize(raw)

	c := models.Content{
		ID:                 asString(m["id"]),
		Subject:            asString(m["subject"]),
		Title:              asString(m["title"]),
		SpaceID:            asString(m["space_id"]),
		Tags:               asStrings(m["tags"]),
		LikeCount:          asInt(m["like_count"]),
		ViewCount:          asInt(m["view_count"]),
		FollowerCount:      asInt(m["follower_count"]),
		Published:          asTime(m["published"]),
		Updated:            asTime(m["updated"]),
		Author:             asAuthor(m["author"], m["author_id"]),
		Body:               asBody(m["body"], m["content"]),
		Images:             asImages(m["images"]),
		Location:           asString(m["location"]),
		Phone:              asString(m["phone"]),
		StartDate:          asTime(m["start_date"]),
		EndDate:            asTime(m["end_date"]),
		EventAccess:        asString(m["event_access"]),
		MaxAttendees:       asInt(m["max_attendees"]),
		Question:           asQuestion(m["question"]),
		Description:        asString(m["description"]),
		Options:            asOptions(m["options"]),
		AllowMultipleVotes: asBool(m["allow_multiple_votes"]),
	}

	if c.SpaceID == "" {
		if pp, ok := m["parent_place"].(map[string]interface{}); ok {
			c.SpaceID = asString(pp["id"])
		}
	}

	if t := asString(m["content_type"]); t != "" {
		c.ContentType = models.ParseContentType(t)
	} else {
		c.ContentType = fallback
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return c
}

// NormalizeSpace converts a raw spaces row into the Space model.
func NormalizeSpace(raw map[string]interface{}) models.Space {
	m := canonicalize(raw)
	s := models.Space{
		ID:           asString(m["id"]),
		Name:         asString(m["name"]),
		DisplayName:  asString(m["display_name"]),
		Description:  asString(m["description"]),
		Tags:         asStrings(m["tags"]),
		ContentTypes: asStrings(m["content_types"]),
		Published:    asTime(m["published"]),
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.ContentTypes == nil {
		s.ContentTypes = []string{}
	}
	return s
}

// contentRecord is the canonical unified-table row of c: common columns at the
// top level, variant-specific fields under "details".
func contentRecord(c *models.Content) map[string]interface{} {
	details := map[string]interface{}{}
	switch c.ContentType {
	case models.ContentPost, models.ContentDocument:
		details["body"] = c.Body
		details["images"] = nonNilImages(c.Images)
	case models.ContentEvent:
		details["body"] = c.Body
		details["location"] = c.Location
		details["phone"] = c.Phone
		details["end_date"] = formatTime(c.EndDate)
		details["event_access"] = c.EventAccess
		details["max_attendees"] = c.MaxAttendees
	case models.ContentPoll:
		details["description"] = c.Description
		details["options"] = nonNilOptions(c.Options)
		details["end_date"] = formatTime(c.EndDate)
		details["allow_multiple_votes"] = c.AllowMultipleVotes
	default:
		details["body"] = c.Body
	}

	var spaceID interface{}
	if !c.Unassigned() {
		spaceID = c.SpaceID
	}
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}

	return map[string]interface{}{
		"id":             c.ID,
		"content_type":   string(c.ContentType),
		"space_id":       spaceID,
		"subject":        c.Subject,
		"title":          c.Title,
		"question":       c.Question,
		"author":         map[string]interface{}{"id": c.Author.ID, "display_name": c.Author.DisplayName},
		"tags":           tags,
		"like_count":     c.LikeCount,
		"view_count":     c.ViewCount,
		"follower_count": c.FollowerCount,
		"published":      formatTime(c.Published),
		"updated":        formatTime(c.Updated),
		"start_date":     formatTime(c.StartDate),
		"details":        details,
	}
}

// spaceRecord is the spaces row of s.
func spaceRecord(s *models.Space) map[string]interface{} {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	types := s.ContentTypes
	if types == nil {
		types = []string{}
	}
	return map[string]interface{}{
		"id":            s.ID,
		"name":          s.Name,
		"display_name":  s.DisplayName,
		"description":   s.Description,
		"tags":          tags,
		"content_types": types,
		"published":     formatTime(s.Published),
	}
}

func nonNilImages(in []models.ContentImage) []models.ContentImage {
	if in == nil {
		return []models.ContentImage{}
	}
	return in
}

func nonNilOptions(in []models.PollOption) []models.PollOption {
	if in == nil {
		return []models.PollOption{}
	}
	return in
}

// ================= loose value coercion =================

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	case int64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

// asQuestion: legacy exports use "question": false as a "is Q&A" flag on posts
func asQuestion(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asStrings(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s := asString(x); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return []string{}
		}
		// JSON array stored as text
		if strings.HasPrefix(s, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return arr
			}
		}
		// Postgres array literal {a,b}
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			inner := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
			if inner == "" {
				return []string{}
			}
			parts := strings.Split(inner, ",")
			for i := range parts {
				parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
			}
			return parts
		}
		return []string{s}
	default:
		return nil
	}
}

// storedTimeLayout is fixed-width so that text timestamps sort lexically (sqlite)
const storedTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func asTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case string:
		if parsed, ok := parseTime(t); ok {
			return &parsed
		}
	case float64:
		// epoch millis
		u := time.UnixMilli(int64(t)).UTC()
		return &u
	case int64:
		u := time.UnixMilli(t).UTC()
		return &u
	case int:
		u := time.UnixMilli(int64(t)).UTC()
		return &u
	}
	return nil
}

func formatTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(storedTimeLayout)
}

func asAuthor(v interface{}, authorID interface{}) models.Author {
	var a models.Author
	switch t := v.(type) {
	case map[string]interface{}:
		a.ID = asString(t["id"])
		a.DisplayName = asString(t["display_name"])
		if a.DisplayName == "" {
			a.DisplayName = asString(t["displayName"])
		}
		if a.DisplayName == "" {
			a.DisplayName = asString(t["name"])
		}
	case string:
		// author stored as JSON text (sqlite)
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(t), &m); err == nil {
			return asAuthor(m, authorID)
		}
		a.ID = t
	}
	if a.ID == "" {
		a.ID = asString(authorID)
	}
	return a
}

func asBody(body, content interface{}) string {
	if s := asString(body); s != "" {
		return s
	}
	switch t := content.(type) {
	case string:
		return t
	case map[string]interface{}:
		return asString(t["text"])
	}
	return ""
}

func asImages(v interface{}) []models.ContentImage {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]models.ContentImage, 0, len(arr))
	for _, x := range arr {
		switch t := x.(type) {
		case map[string]interface{}:
			ref := asString(t["ref"])
			if ref == "" {
				ref = asString(t["url"])
			}
			out = append(out, models.ContentImage{ID: asString(t["id"]), Ref: ref, Name: asString(t["name"])})
		case string:
			out = append(out, models.ContentImage{Ref: t})
		}
	}
	return out
}

func asOptions(v interface{}) []models.PollOption {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]models.PollOption, 0, len(arr))
	for i, x := range arr {
		switch t := x.(type) {
		case map[string]interface{}:
			text := asString(t["text"])
			if text == "" {
				text = asString(t["option_text"])
			}
			opt := models.PollOption{ID: asString(t["id"]), Text: text, DisplayOrder: i, Votes: asInt(t["votes"])}
			if d, ok := t["display_order"]; ok {
				opt.DisplayOrder = asInt(d)
			} else if d, ok := t["displayOrder"]; ok {
				opt.DisplayOrder = asInt(d)
			}
			out = append(out, opt)
		case string:
			out = append(out, models.PollOption{Text: t, DisplayOrder: i})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}
