package dependency

// isTypo reports whether a and b are distinct and differ by at most
// one elementary edit (substitution, insertion, or deletion). This is
// the classic two-pointer one-edit-apart scan, not generic Levenshtein
// DP: it runs in O(min(len(a), len(b))) and never allocates a distance
// matrix (spec.md §4.6).
func isTypo(a, b string) bool {
	if a == b {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(b)-len(a) > 1 {
		return false
	}

	i, j := 0, 0
	edited := false
	for i < len(a) && j < len(b) {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		if edited {
			return false
		}
		edited = true
		if len(a) == len(b) {
			// substitution
			i++
			j++
		} else {
			// insertion into b / deletion from b
			j++
		}
	}
	if j < len(b) {
		if edited {
			return false
		}
		edited = true
	}
	return true
}
