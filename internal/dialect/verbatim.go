package dialect

import (
	"regexp"
	"strconv"
)

var verbatimPattern = regexp.MustCompile(`^verbatim_([0-9]+)i_([0-9]+)o$`)

// parseVerbatimName parses `verbatim_<N>i_<M>o`, returning ok=false for
// anything that doesn't match the pattern exactly.
func parseVerbatimName(name string) (n, m int, ok bool) {
	match := verbatimPattern.FindStringSubmatch(name)
	if match == nil {
		return 0, 0, false
	}
	n, errN := strconv.Atoi(match[1])
	m, errM := strconv.Atoi(match[2])
	if errN != nil || errM != nil {
		return 0, 0, false
	}
	return n, m, true
}

func verbatimName(n, m int) string {
	return "verbatim_" + strconv.Itoa(n) + "i_" + strconv.Itoa(m) + "o"
}

// verbatimFromKey inverts the N*(maxVerbatimOut+1) + M encoding used for
// verbatim handles. The +1 keeps the encoding bijective even though M may
// itself equal maxVerbatimOut (§4.1 allows 0 <= M <= maxOut inclusive).
func verbatimFromKey(key int) (n, m int) {
	n = key / (maxVerbatimOut + 1)
	m = key % (maxVerbatimOut + 1)
	return n, m
}
