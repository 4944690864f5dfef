package ingest

import "strings"

// canonicalCourseName strips the decorations operating systems append when a
// download lands next to an earlier copy: a space-separated suffix
// ("XM123-24J 2"), a trailing dot-numeric suffix ("XM123-24J.1"), or an extra
// hyphen group ("XM123-24J-2"). The result is the <module>-<presentation>
// folder name the repository expects. This mirrors one OS's auto-rename
// convention and is a heuristic, not a duplicate detector.
func canonicalCourseName(name string) string {
	base := strings.TrimSpace(name)
	if i := strings.IndexByte(base, ' '); i > 0 {
		base = base[:i]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 && allDigits(base[i+1:]) {
		base = base[:i]
	}
	if parts := strings.Split(base, "-"); len(parts) > 2 {
		base = parts[0] + "-" + parts[1]
	}
	return base
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
