package feed

import (
	"sort"
	"strings"
	"time"

	"fusion-portal-backend/pkg/models"
)

// Tab values with special meaning
const (
	TabAll   = "all"
	TabBlogs = "blogs"
)

// Action values
const (
	ActionRecent  = "recent"
	ActionPopular = "popular"
)

// Sort values
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
)

const (
	recentWindow     = 30 * 24 * time.Hour
	popularLikeFloor = 5
)

// Options 过滤条件，全部为空时等价于不过滤
type Options struct {
	Tab      string
	Query    string
	Category string
	Action   string
	Sort     string
	// Now anchors the "recent" action; zero means time.Now()
	Now time.Time
}

// ApplyFilters narrows feed by tab, search query, category and action, then
// applies the requested sort. It never fails and never mutates feed; without
// an explicit sort the input order is preserved. Applying the same options to
// the output again yields the same output.
func ApplyFilters(feed []models.Content, opts Options) []models.Content {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	// tab and query are matched verbatim: no trimming
	tab := opts.Tab
	query := strings.ToLower(opts.Query)
	category := strings.TrimSpace(opts.Category)
	action := strings.ToLower(strings.TrimSpace(opts.Action))

	out := make([]models.Content, 0, len(feed))
	for i := range feed {
		item := &feed[i]
		if !matchTab(item, tab) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(item.DisplayTitle()), query) {
			continue
		}
		if !matchCategory(item, category) {
			continue
		}
		if !matchAction(item, action, now) {
			continue
		}
		out = append(out, *item)
	}

	sortItems(out, strings.ToLower(strings.TrimSpace(opts.Sort)))
	return out
}

func matchTab(item *models.Content, tab string) bool {
	switch tab {
	case "", TabAll:
		return true
	case TabBlogs:
		return item.ContentType == models.ContentPost
	default:
		return string(item.ContentType) == tab
	}
}

func matchCategory(item *models.Content, category string) bool {
	if category == "" || strings.EqualFold(category, TabAll) {
		return true
	}
	return item.HasTag(category)
}

func matchAction(item *models.Content, action string, now time.Time) bool {
	switch action {
	case ActionRecent:
		t := item.EffectiveTime()
		return !t.IsZero() && !t.Before(now.Add(-recentWindow))
	case ActionPopular:
		return item.LikeCount >= popularLikeFloor
	default:
		return true
	}
}

// sortItems reorders in place; newest (and anything unknown) keeps merge order
func sortItems(items []models.Content, mode string) {
	switch mode {
	case SortOldest:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].EffectiveTime().Before(items[j].EffectiveTime())
		})
	case SortPopular:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].LikeCount != items[j].LikeCount {
				return items[i].LikeCount > items[j].LikeCount
			}
			return items[i].ViewCount > items[j].ViewCount
		})
	}
}
