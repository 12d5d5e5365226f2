package models

// GridSnapshot is a point-in-time read of the rendered grid rows.
// Values holds one entry per row for the requested column, in display order.
type GridSnapshot struct {
	Column string
	Values []string
	// Toggles holds the on/off state of the column's toggle widget per row, when present
	Toggles []bool
}

// RowCount returns the number of rendered data rows
func (s GridSnapshot) RowCount() int {
	return len(s.Values)
}

// ToggleAction requests a boolean column of one row to reach a target state.
// Row is 1-based and only stable within a baseline or singleton-filtered view.
type ToggleAction struct {
	Row    int    `toml:"row" yaml:"row" json:"row" validate:"min=1"`
	Column string `toml:"column" yaml:"column" json:"column" validate:"required"`
	Target bool   `toml:"target" yaml:"target" json:"target"`
}
