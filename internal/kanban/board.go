package kanban

import "github.com/david/grantai/internal/models"

type Column struct {
	Status models.Status         `json:"id"`
	Title  string                `json:"title"`
	Grants []models.TrackedGrant `json:"grants"`
}

// Board groups tracked grants into one column per status, in pipeline order.
// Grants keep their relative order inside a column.
func Board(tracked []models.TrackedGrant) []Column {
	cols := make([]Column, len(models.Statuses))
	byStatus := make(map[models.Status]int, len(models.Statuses))
	for i, s := range models.Statuses {
		cols[i] = Column{Status: s, Title: s.Title(), Grants: []models.TrackedGrant{}}
		byStatus[s] = i
	}
	for _, g := range tracked {
		if i, ok := byStatus[g.Status]; ok {
			cols[i].Grants = append(cols[i].Grants, g)
		}
	}
	return cols
}
