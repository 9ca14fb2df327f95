package timeline

import "sort"

// Normalize deduplicates a raw event stream by event ID (first occurrence
// wins, later duplicates are dropped) and stable-sorts the survivors by
// timestamp ascending. Events with an empty ID carry no identity and are
// never treated as duplicates of each other. Normalizing an already
// normalized stream returns an equal stream.
func Normalize(events []LogEvent) []LogEvent {
	seen := make(map[string]struct{}, len(events))
	out := make([]LogEvent, 0, len(events))

	for _, e := range events {
		if e.ID != "" {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
