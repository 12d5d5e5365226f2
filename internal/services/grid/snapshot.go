package grid

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/models"
)

// ParseSnapshot reads the rows of a rendered grid from its HTML.
// When column is empty only the rows are counted. Every row must carry the
// column's cell, otherwise the grid markup has drifted and ErrElementNotFound is returned.
func ParseSnapshot(html string, config common.GridConfig, column string) (models.GridSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.GridSnapshot{}, fmt.Errorf("failed to parse grid markup: %w", err)
	}

	table := doc.Find(config.Table).First()
	if table.Length() == 0 {
		return models.GridSnapshot{}, models.NewElementNotFound("grid", config.Table)
	}

	rows := table.Find(config.Rows)
	snapshot := models.GridSnapshot{
		Column:  column,
		Values:  make([]string, 0, rows.Length()),
		Toggles: make([]bool, 0, rows.Length()),
	}

	cellSelector := CellSelector(config, column)
	var cellErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if column == "" {
			snapshot.Values = append(snapshot.Values, "")
			snapshot.Toggles = append(snapshot.Toggles, false)
			return true
		}
		cell := row.Find(cellSelector).First()
		if cell.Length() == 0 {
			cellErr = models.NewElementNotFound(fmt.Sprintf("cell %q in row %d", column, i+1), cellSelector)
			return false
		}
		snapshot.Values = append(snapshot.Values, normalizeText(cell.Text()))
		snapshot.Toggles = append(snapshot.Toggles, cell.Find(config.ToggleOn).Length() > 0)
		return true
	})
	if cellErr != nil {
		return models.GridSnapshot{}, cellErr
	}

	return snapshot, nil
}

// CellSelector expands the cell template for a column
func CellSelector(config common.GridConfig, column string) string {
	return common.ExpandPlaceholders(config.Cell, map[string]string{"field": column})
}

// FilterSelector expands the filter control template for a field
func FilterSelector(config common.GridConfig, field string) string {
	return common.ExpandPlaceholders(config.FilterInput, map[string]string{"field": field})
}

// normalizeText collapses runs of whitespace, matching what a reader sees
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
