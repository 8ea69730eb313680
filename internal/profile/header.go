package profile

import "strings"

// headerKeywords are the substrings that make a row look like a header
// rather than data.
var headerKeywords = []string{"date", "amount", "payee", "description", "memo", "category"}

// headerInspectRows is how many leading rows are considered when
// locating the header.
const HeaderInspectRows = 10

// DetectHeaderRow scores each of the first HeaderInspectRows rows by
// counting cells containing a recognized keyword and returns the index
// of the first row scoring at least 2, defaulting to row 0. Bank
// exports often open with metadata lines ("Account: ...", date ranges)
// before the real header.
func DetectHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > HeaderInspectRows {
		limit = HeaderInspectRows
	}
	for i := 0; i < limit; i++ {
		if headerScore(rows[i]) >= 2 {
			return i
		}
	}
	return 0
}

func headerScore(row []string) int {
	score := 0
	for _, cell := range row {
		c := strings.ToLower(strings.TrimSpace(cell))
		for _, kw := range headerKeywords {
			if strings.Contains(c, kw) {
				score++
				break
			}
		}
	}
	return score
}
