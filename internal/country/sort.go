package country

import "sort"

// SortedTags returns the tags of countries in lexical order.
func SortedTags(countries Countries) []string {
	tags := make([]string, 0, len(countries))
	for tag := range countries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
