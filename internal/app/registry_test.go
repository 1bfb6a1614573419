package app

import (
	"errors"
	"testing"

	"github.com/white6md/taskboard/internal/domain"
)

func TestNewRegistry(t *testing.T) {
	layout := sampleLayout()
	layout.Columns = append(layout.Columns, domain.ColumnLayout{Status: "Review"})
	reg, err := NewRegistry(layout, domain.DefaultStatusLabels())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if got := len(reg.Columns()); got != 4 {
		t.Fatalf("expected 4 lanes, got %d", got)
	}
	review, ok := reg.Column("review")
	if !ok || review.Name != "review" {
		t.Fatalf("expected normalized review lane named by key, got %+v", review)
	}

	card, col, idx, ok := reg.Locate("t2")
	if !ok || col.Status != domain.StatusTodo || idx != 1 {
		t.Fatalf("Locate() = %v %v %d %t", card, col, idx, ok)
	}
	if card.Status != domain.StatusTodo || card.OriginIndex != 1 || card.Label != "To do" {
		t.Fatalf("unexpected card state %+v", card)
	}
	if _, _, _, ok := reg.Locate("missing"); ok {
		t.Fatal("expected missing card")
	}
}

func TestNewRegistryRejectsInvalidLayouts(t *testing.T) {
	tests := []struct {
		name   string
		layout domain.BoardLayout
		want   error
	}{
		{
			name:   "bad status",
			layout: domain.BoardLayout{ProjectID: "p", Columns: []domain.ColumnLayout{{Status: "to do"}}},
			want:   domain.ErrInvalidStatus,
		},
		{
			name: "duplicate card",
			layout: domain.BoardLayout{ProjectID: "p", Columns: []domain.ColumnLayout{
				{Status: domain.StatusTodo, Cards: []domain.CardLayout{{TaskID: "x"}}},
				{Status: domain.StatusDone, Cards: []domain.CardLayout{{TaskID: "x"}}},
			}},
			want: domain.ErrDuplicateCard,
		},
		{
			name:   "blank card id",
			layout: domain.BoardLayout{ProjectID: "p", Columns: []domain.ColumnLayout{{Status: domain.StatusTodo, Cards: []domain.CardLayout{{TaskID: " "}}}}},
			want:   domain.ErrInvalidID,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRegistry(tc.layout, domain.DefaultStatusLabels()); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRegistryPlace(t *testing.T) {
	reg, err := NewRegistry(sampleLayout(), domain.DefaultStatusLabels())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	card, _, _, _ := reg.Locate("t1")
	idx, err := reg.Place(card, domain.StatusInProgress, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	idx, err = reg.Place(card, domain.StatusTodo, 9)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected out-of-range index to append at 1, got %d", idx)
	}
	if _, err := reg.Place(card, "archived", 0); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	total := 0
	for _, col := range reg.Columns() {
		total += col.Len()
	}
	if total != 3 {
		t.Fatalf("expected cards to be conserved, got %d", total)
	}
}
