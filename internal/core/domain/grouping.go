package domain

// CategoryGroup is one presentation group of records sharing a category.
type CategoryGroup struct {
	Key      string       `json:"key"`
	Category CategoryInfo `json:"category"`
	Records  []Record     `json:"records"`
}

// GroupByCategory partitions records into groups keyed by category.
// Group order is first-occurrence order in files, in-group order is slice
// order; both must stay stable across recomputation so the UI does not
// reshuffle on re-render. Pure function.
func GroupByCategory(files []Record) []CategoryGroup {
	groups := make([]CategoryGroup, 0, len(files))
	index := make(map[string]int, len(files))

	for _, r := range files {
		i, ok := index[r.Category]
		if !ok {
			i = len(groups)
			index[r.Category] = i
			groups = append(groups, CategoryGroup{
				Key:      r.Category,
				Category: LookupCategory(r.Category),
			})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
