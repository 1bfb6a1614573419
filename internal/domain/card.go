package domain

import "strings"

// EditDataset is the cached field set the quick-edit trigger hands to the task editor.
type EditDataset struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Due         string
	Assignee    string
}

// Card is one task placed on the board.
type Card struct {
	TaskID string
	Status Status
	// Label is the status tag text rendered on the card.
	Label string
	Edit  EditDataset

	// OriginStatus and OriginIndex hold the latest settled placement used for rollback.
	OriginStatus Status
	OriginIndex  int
}

// CardInput holds values used to place a new card.
type CardInput struct {
	TaskID      string
	Status      Status
	Title       string
	Description string
	Due         string
	Assignee    string
}

// NewCard constructs a card settled in its initial status.
func NewCard(in CardInput, labels StatusLabels) (*Card, error) {
	in.TaskID = strings.TrimSpace(in.TaskID)
	if in.TaskID == "" {
		return nil, ErrInvalidID
	}
	status, err := ParseStatus(string(in.Status))
	if err != nil {
		return nil, err
	}
	return &Card{
		TaskID: in.TaskID,
		Status: status,
		Label:  labels.Label(status),
		Edit: EditDataset{
			ID:          in.TaskID,
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			Status:      status,
			Due:         strings.TrimSpace(in.Due),
			Assignee:    strings.TrimSpace(in.Assignee),
		},
		OriginStatus: status,
		OriginIndex:  -1,
	}, nil
}

// Title returns the card's display title.
func (c *Card) Title() string {
	if c == nil {
		return ""
	}
	if title := strings.TrimSpace(c.Edit.Title); title != "" {
		return title
	}
	return "#" + c.TaskID
}

// RecordOrigin stores the placement a later failed move must return to.
func (c *Card) RecordOrigin(status Status, index int) {
	c.OriginStatus = status
	c.OriginIndex = index
}

// Settle marks status as confirmed and refreshes the derived display fields.
func (c *Card) Settle(status Status, index int, labels StatusLabels) {
	c.Status = status
	c.RecordOrigin(status, index)
	c.Label = labels.Label(status)
	c.Edit.Status = status
}
