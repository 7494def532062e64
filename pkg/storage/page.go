package storage

// Page limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ClampLimit applies DefaultLimit to non-positive limits and caps at MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Page cuts one page out of ordered records. After and before are record
// IDs; an unknown cursor yields an empty page. The second result reports
// whether more records follow the page.
func Page[T any](records []T, id func(T) string, after, before string, limit int) ([]T, bool) {
	switch {
	case after != "":
		idx := indexOf(records, id, after)
		if idx < 0 {
			return nil, false
		}
		records = records[idx+1:]
	case before != "":
		idx := indexOf(records, id, before)
		if idx <= 0 {
			return nil, false
		}
		records = records[:idx]
	}

	limit = ClampLimit(limit)
	if len(records) > limit {
		return records[:limit], true
	}
	return records, false
}

func indexOf[T any](records []T, id func(T) string, want string) int {
	for i, r := range records {
		if id(r) == want {
			return i
		}
	}
	return -1
}
