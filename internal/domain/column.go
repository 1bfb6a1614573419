package domain

import (
	"slices"
	"strings"
)

// Column is one status lane with an ordered card sequence.
type Column struct {
	Status Status
	Name   string
	// Count is the badge value written by the stats pass.
	Count int

	cards []*Card
}

// NewColumn constructs an empty lane.
func NewColumn(status Status, name string) (*Column, error) {
	status, err := ParseStatus(string(status))
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	return &Column{Status: status, Name: name}, nil
}

// Cards returns the lane's cards in display order.
func (c *Column) Cards() []*Card {
	return slices.Clone(c.cards)
}

// Len reports the number of cards currently in the lane.
func (c *Column) Len() int {
	return len(c.cards)
}

// IndexOf returns the position of one task or -1.
func (c *Column) IndexOf(taskID string) int {
	for idx, card := range c.cards {
		if card.TaskID == taskID {
			return idx
		}
	}
	return -1
}

// Insert places card before index; an index outside [0, Len) appends.
func (c *Column) Insert(card *Card, index int) int {
	if card == nil {
		return -1
	}
	if index < 0 || index >= len(c.cards) {
		c.cards = append(c.cards, card)
		return len(c.cards) - 1
	}
	c.cards = slices.Insert(c.cards, index, card)
	return index
}

// Remove detaches one task and returns the index it held, or -1.
func (c *Column) Remove(taskID string) int {
	idx := c.IndexOf(taskID)
	if idx < 0 {
		return -1
	}
	c.cards = slices.Delete(c.cards, idx, idx+1)
	return idx
}
