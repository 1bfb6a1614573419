package app

import (
	"fmt"

	"github.com/white6md/taskboard/internal/domain"
)

// Registry indexes the board's lanes by status key.
type Registry struct {
	columns  []*domain.Column
	byStatus map[domain.Status]*domain.Column
}

// NewRegistry builds lanes and cards from a layout. Each card takes its lane's status.
func NewRegistry(layout domain.BoardLayout, labels domain.StatusLabels) (*Registry, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("validate board layout: %w", err)
	}
	r := &Registry{
		columns:  make([]*domain.Column, 0, len(layout.Columns)),
		byStatus: make(map[domain.Status]*domain.Column, len(layout.Columns)),
	}
	for _, cl := range layout.Columns {
		status, _ := domain.ParseStatus(string(cl.Status))
		name := cl.Name
		if name == "" {
			name = labels.Label(status)
		}
		col, err := domain.NewColumn(status, name)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cl.Status, err)
		}
		for _, in := range cl.Cards {
			card, err := domain.NewCard(domain.CardInput{
				TaskID:      in.TaskID,
				Status:      status,
				Title:       in.Title,
				Description: in.Description,
				Due:         in.Due,
				Assignee:    in.Assignee,
			}, labels)
			if err != nil {
				return nil, fmt.Errorf("card %q: %w", in.TaskID, err)
			}
			card.OriginIndex = col.Insert(card, -1)
		}
		r.columns = append(r.columns, col)
		r.byStatus[status] = col
	}
	return r, nil
}

// Columns returns lanes in display order.
func (r *Registry) Columns() []*domain.Column {
	return r.columns
}

// Column returns the lane for one status key.
func (r *Registry) Column(status domain.Status) (*domain.Column, bool) {
	col, ok := r.byStatus[status]
	return col, ok
}

// Locate returns a card, the lane containing it, and its index there.
func (r *Registry) Locate(taskID string) (*domain.Card, *domain.Column, int, bool) {
	for _, col := range r.columns {
		idx := col.IndexOf(taskID)
		if idx < 0 {
			continue
		}
		return col.Cards()[idx], col, idx, true
	}
	return nil, nil, -1, false
}

// Place moves a card into the lane for status before index, appending when index is out of range.
func (r *Registry) Place(card *domain.Card, status domain.Status, index int) (int, error) {
	target, ok := r.byStatus[status]
	if !ok {
		return -1, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, status)
	}
	if _, current, _, ok := r.Locate(card.TaskID); ok {
		current.Remove(card.TaskID)
	}
	return target.Insert(card, index), nil
}
