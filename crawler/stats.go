package crawler

import "fmt"

// HumanSize formats a byte count the way digest stats have always been
// shown: each unit threshold is evaluated independently and the larger unit
// silently wins (last-match-wins, not exclusive tiers). The overlap at
// exactly 1024 and 1024*1024 is kept as-is pending product review.
func HumanSize(bytes int) string {
	s := fmt.Sprintf("%d B", bytes)
	if bytes > 1024 {
		s = fmt.Sprintf("%.2f KB", float64(bytes)/1024)
	}
	if bytes > 1024*1024 {
		s = fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
	return s
}
