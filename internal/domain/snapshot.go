package domain

import "math"

// Classification summarizes board progress.
type Classification string

// Classification values.
const (
	ClassificationEmpty      Classification = "empty"
	ClassificationComplete   Classification = "complete"
	ClassificationInProgress Classification = "in-progress"
)

// ChipTone selects the status chip styling.
type ChipTone string

// ChipTone values.
const (
	ChipToneNeutral ChipTone = "neutral"
	ChipToneSuccess ChipTone = "success"
	ChipToneWarning ChipTone = "warning"
)

// Chip is the board status chip derived from a classification.
type Chip struct {
	Text string
	Tone ChipTone
}

// ColumnCount is one lane badge value.
type ColumnCount struct {
	Status Status
	Count  int
}

// BoardSnapshot is the recomputed aggregate for one board. It is never stored.
type BoardSnapshot struct {
	Columns        []ColumnCount
	Total          int
	Done           int
	Active         int
	Percent        int
	Classification Classification
	Chip           Chip
}

// CountFor returns the badge value for one status.
func (s BoardSnapshot) CountFor(status Status) int {
	for _, col := range s.Columns {
		if col.Status == status {
			return col.Count
		}
	}
	return 0
}

// Aggregate derives board statistics from current card placement.
func Aggregate(columns []*Column, done Status, labels StatusLabels) BoardSnapshot {
	snap := BoardSnapshot{Columns: make([]ColumnCount, 0, len(columns))}
	for _, col := range columns {
		if col == nil {
			continue
		}
		count := col.Len()
		snap.Columns = append(snap.Columns, ColumnCount{Status: col.Status, Count: count})
		snap.Total += count
		if col.Status == done {
			snap.Done += count
		}
	}
	snap.Active = snap.Total - snap.Done
	if snap.Total > 0 {
		snap.Percent = int(math.Floor(float64(snap.Done)/float64(snap.Total)*100 + 0.5))
	}
	switch {
	case snap.Total == 0:
		snap.Classification = ClassificationEmpty
		snap.Chip = Chip{Text: "No tasks", Tone: ChipToneNeutral}
	case snap.Done == snap.Total:
		snap.Classification = ClassificationComplete
		snap.Chip = Chip{Text: labels.Label(StatusDone), Tone: ChipToneSuccess}
	default:
		snap.Classification = ClassificationInProgress
		snap.Chip = Chip{Text: labels.Label(StatusInProgress), Tone: ChipToneWarning}
	}
	return snap
}
