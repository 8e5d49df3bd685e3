package types

import "time"

type ChecklistStatus string

const (
	ChecklistPassed  ChecklistStatus = "passed"
	ChecklistPending ChecklistStatus = "pending"
	ChecklistFailed  ChecklistStatus = "failed"
	ChecklistSkipped ChecklistStatus = "skipped"
)

type ChecklistItem struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Status ChecklistStatus `json:"status"`
	Detail string          `json:"detail,omitempty"`
}

type CompletionChecklist struct {
	GeneratedAt time.Time       `json:"generated_at"`
	AllPassed   bool            `json:"all_passed"`
	Items       []ChecklistItem `json:"items"`
}

// Add appends an item; a failed or still-pending item clears AllPassed.
func (c *CompletionChecklist) Add(item ChecklistItem) {
	c.Items = append(c.Items, item)
	if item.Status == ChecklistFailed || item.Status == ChecklistPending {
		c.AllPassed = false
	}
}
