package catalog

import "github.com/ternarybob/gridcheck/internal/models"

// DefaultTax is the stock French VAT record every console installation ships with
var DefaultTax = struct {
	ID      string
	Name    string
	Rate    string
	Enabled string
}{
	ID:      "1",
	Name:    "TVA FR 20%",
	Rate:    "20",
	Enabled: "true",
}

// Taxes returns the built-in catalog for the taxes grid: one filter scenario per
// column, then a quick edit that disables and re-enables the default tax.
func Taxes() *Catalog {
	return &Catalog{
		Name: "taxes",
		Scenarios: []models.Scenario{
			{
				ID:     "filterId",
				Kind:   models.ScenarioKindFilter,
				Filter: &models.FilterCriterion{Field: "id_tax", Kind: models.FilterKindInput, Value: DefaultTax.ID},
			},
			{
				ID:     "filterName",
				Kind:   models.ScenarioKindFilter,
				Filter: &models.FilterCriterion{Field: "name", Kind: models.FilterKindInput, Value: DefaultTax.Name},
			},
			{
				ID:     "filterRate",
				Kind:   models.ScenarioKindFilter,
				Filter: &models.FilterCriterion{Field: "rate", Kind: models.FilterKindInput, Value: DefaultTax.Rate},
			},
			{
				ID:            "filterActive",
				Kind:          models.ScenarioKindFilter,
				Filter:        &models.FilterCriterion{Field: "active", Kind: models.FilterKindSelect, Value: DefaultTax.Enabled},
				ExpectedToken: "check",
			},
			{
				ID:      "filterForQuickEdit",
				Kind:    models.ScenarioKindToggle,
				Isolate: &models.FilterCriterion{Field: "name", Kind: models.FilterKindInput, Value: DefaultTax.Name},
				Toggles: []models.ToggleStep{
					{ID: "disableTax", Action: models.ToggleAction{Row: 1, Column: "active", Target: false}},
					{ID: "enableTax", Action: models.ToggleAction{Row: 1, Column: "active", Target: true}},
				},
				ResetID: "resetAfterQuickEdit",
			},
		},
	}
}
