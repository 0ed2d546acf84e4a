// Package analysis shapes grouped complaint counts into the admin dashboard figures.
package analysis

import "scms/backend/internal/models"

// Stats is the admin dashboard summary.
type Stats struct {
	Total      int64            `json:"total"`
	Pending    int64            `json:"pending"`
	InProgress int64            `json:"in_progress"`
	Resolved   int64            `json:"resolved"`
	ByCategory map[string]int64 `json:"by_category"`
}

// Summarize builds Stats from counts grouped by status and by category.
// Total is the sum over statuses so every complaint is counted exactly once.
func Summarize(byStatus, byCategory map[string]int64) Stats {
	s := Stats{ByCategory: make(map[string]int64, len(byCategory))}
	for status, n := range byStatus {
		s.Total += n
		switch status {
		case models.StatusPending:
			s.Pending = n
		case models.StatusInProgress:
			s.InProgress = n
		case models.StatusResolved:
			s.Resolved = n
		}
	}
	for category, n := range byCategory {
		s.ByCategory[category] = n
	}
	return s
}
