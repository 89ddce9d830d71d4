package feed

import "fusion-portal-backend/pkg/models"

// Counts maps a tab key to the number of items of that type
type Counts map[string]int

// count keys as the space page tabs name them
const (
	CountTotal       = "total"
	CountBlogs       = "blogs"
	CountDocuments   = "documents"
	CountDiscussions = "discussions"
	CountPolls       = "polls"
	CountVideos      = "videos"
	CountEvents      = "events"
)

var countKeys = map[models.ContentType]string{
	models.ContentPost:       CountBlogs,
	models.ContentDocument:   CountDocuments,
	models.ContentDiscussion: CountDiscussions,
	models.ContentPoll:       CountPolls,
	models.ContentVideo:      CountVideos,
	models.ContentEvent:      CountEvents,
}

// CountByType tallies items per tab. Every known key is present; an item with
// a tag outside the known set is counted under that tag so the per-type
// counts always add up to total.
func CountByType(items []models.Content) Counts {
	c := Counts{
		CountTotal:       len(items),
		CountBlogs:       0,
		CountDocuments:   0,
		CountDiscussions: 0,
		CountPolls:       0,
		CountVideos:      0,
		CountEvents:      0,
	}
	for i := range items {
		key, ok := countKeys[items[i].ContentType]
		if !ok {
			key = string(items[i].ContentType)
			if key == "" || key == CountTotal {
				key = "unknown"
			}
		}
		c[key]++
	}
	return c
}

// Sum adds up every per-type count (everything except total)
func (c Counts) Sum() int {
	n := 0
	for k, v := range c {
		if k != CountTotal {
			n += v
		}
	}
	return n
}
