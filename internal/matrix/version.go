package matrix

import (
	"strconv"
	"strings"
)

// Version is the tool version that minversion declarations are checked
// against.
const Version = "1.0.0"

// versionLess reports whether dotted version a sorts before b. Parts
// compare numerically; missing or non-numeric parts count as zero.
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := versionPart(as, i), versionPart(bs, i)
		if av != bv {
			return av < bv
		}
	}
	return false
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	v, _ := strconv.Atoi(strings.TrimSpace(parts[i]))
	return v
}
