package engine

// window selects the most recent limit sequence numbers after skipping the
// skip most recent ones, from a search result in ascending (oldest-first)
// server order. Both bounds are computed from the same base slice, clamped
// to it, and the window is returned reversed so the fetch proceeds
// newest-first. When limit+skip exceeds the result count the window clamps
// to what exists; that is not an error.
func window(results []uint32, limit, skip int) []uint32 {
	n := len(results)
	if n == 0 || limit <= 0 {
		return nil
	}
	if skip < 0 {
		skip = 0
	}

	hi := n - skip
	if hi <= 0 {
		return nil
	}
	lo := n - (limit + skip)
	if lo < 0 {
		lo = 0
	}

	out := make([]uint32, 0, hi-lo)
	for i := hi - 1; i >= lo; i-- {
		out = append(out, results[i])
	}
	return out
}
