package domain

import "strings"

// BoardLayout is the serializable placement of one project's board.
type BoardLayout struct {
	ProjectID string         `json:"project_id"`
	Columns   []ColumnLayout `json:"columns"`
}

// ColumnLayout is one lane in a BoardLayout.
type ColumnLayout struct {
	Status Status       `json:"status"`
	Name   string       `json:"name"`
	Cards  []CardLayout `json:"cards"`
}

// CardLayout is one card in a ColumnLayout. Cards take the status of their lane.
type CardLayout struct {
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Due         string `json:"due,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

// Validate checks ids and status keys.
func (l BoardLayout) Validate() error {
	if strings.TrimSpace(l.ProjectID) == "" {
		return ErrInvalidID
	}
	seenStatus := map[Status]struct{}{}
	seenCard := map[string]struct{}{}
	for _, col := range l.Columns {
		status, err := ParseStatus(string(col.Status))
		if err != nil {
			return err
		}
		if _, ok := seenStatus[status]; ok {
			return ErrDuplicateStatus
		}
		seenStatus[status] = struct{}{}
		for _, card := range col.Cards {
			id := strings.TrimSpace(card.TaskID)
			if id == "" {
				return ErrInvalidID
			}
			if _, ok := seenCard[id]; ok {
				return ErrDuplicateCard
			}
			seenCard[id] = struct{}{}
		}
	}
	return nil
}

// CardCount returns the number of cards in the layout.
func (l BoardLayout) CardCount() int {
	total := 0
	for _, col := range l.Columns {
		total += len(col.Cards)
	}
	return total
}

// LayoutFromColumns projects live lanes back into a BoardLayout.
func LayoutFromColumns(projectID string, columns []*Column) BoardLayout {
	out := BoardLayout{ProjectID: projectID, Columns: make([]ColumnLayout, 0, len(columns))}
	for _, col := range columns {
		cl := ColumnLayout{Status: col.Status, Name: col.Name, Cards: make([]CardLayout, 0, col.Len())}
		for _, card := range col.cards {
			cl.Cards = append(cl.Cards, CardLayout{
				TaskID:      card.TaskID,
				Title:       card.Edit.Title,
				Description: card.Edit.Description,
				Due:         card.Edit.Due,
				Assignee:    card.Edit.Assignee,
			})
		}
		out.Columns = append(out.Columns, cl)
	}
	return out
}
