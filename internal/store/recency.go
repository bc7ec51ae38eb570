package store

// Recency index helpers shared by the key-value and in-memory backends.
// The index is an ordered, deduplicated trace-id list, most-recent-first,
// trimmed to a fixed cap. The table backend needs none of this: it derives
// recency from the updated_at column.

// promote moves traceID to the front of ids, removing any previous
// occurrence, and trims the result to limit entries.
func promote(ids []string, traceID string, limit int) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, traceID)
	for _, id := range ids {
		if id != traceID {
			out = append(out, id)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// remove deletes traceID from ids if present. Removing an absent id is a
// no-op, not an error.
func remove(ids []string, traceID string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != traceID {
			out = append(out, id)
		}
	}
	return out
}
