package feed

import (
	"sort"

	"fusion-portal-backend/pkg/models"
)

// Merge concatenates the lists in the given order and stable-sorts the result
// newest first by effective time. Items without any timestamp sort last, and
// equal timestamps keep their concatenation order.
func Merge(lists ...[]models.Content) []models.Content {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]models.Content, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveTime().After(out[j].EffectiveTime())
	})
	return out
}
