package tmdb

// Merged is the accumulated state of an infinite-scroll list.
type Merged struct {
	Results    []Result `json:"results"`
	Added      int      `json:"added"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
	HasMore    bool     `json:"hasMore"`
}

// MergePages appends the results of next that are not already present in
// existing, keeping first-seen order. Duplicates inside next are dropped too.
func MergePages(existing []Result, next Page) Merged {
	seen := make(map[string]struct{}, len(existing)+len(next.Results))
	merged := make([]Result, 0, len(existing)+len(next.Results))
	for _, item := range existing {
		key := item.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}

	added := 0
	for _, item := range next.Results {
		key := item.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
		added++
	}

	return Merged{
		Results:    merged,
		Added:      added,
		Page:       next.Page,
		TotalPages: next.TotalPages,
		HasMore:    next.HasMore(),
	}
}

// FilterSeen removes results whose key is in seen, for clients that send the
// keys they already render instead of the full list.
func FilterSeen(seen map[string]struct{}, next Page) Page {
	filtered := make([]Result, 0, len(next.Results))
	local := make(map[string]struct{}, len(next.Results))
	for _, item := range next.Results {
		key := item.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		if _, ok := local[key]; ok {
			continue
		}
		local[key] = struct{}{}
		filtered = append(filtered, item)
	}
	next.Results = filtered
	return next
}
