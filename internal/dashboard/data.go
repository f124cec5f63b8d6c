// Package dashboard holds the budget overview: the sample category rows, the
// summary cards, the add-expense modal state and the budget/spent chart.
package dashboard

import (
	"fmt"

	"planner/internal/core"
)

// CategoryRow is one line of the sample budget.
type CategoryRow struct {
	Name   string
	Budget core.Money
	Spent  core.Money
}

// Over reports whether the row spent more than its budget.
func (r CategoryRow) Over() bool {
	return r.Spent.Cents > r.Budget.Cents
}

var sampleRows = []CategoryRow{
	{Name: "Housing", Budget: core.Dollars(2000), Spent: core.Dollars(1800)},
	{Name: "Food", Budget: core.Dollars(800), Spent: core.Dollars(750)},
	{Name: "Transport", Budget: core.Dollars(400), Spent: core.Dollars(380)},
	{Name: "Utilities", Budget: core.Dollars(300), Spent: core.Dollars(280)},
	{Name: "Healthcare", Budget: core.Dollars(500), Spent: core.Dollars(200)},
}

// SampleRows returns a copy of the fixed category rows.
func SampleRows() []CategoryRow {
	rows := make([]CategoryRow, len(sampleRows))
	copy(rows, sampleRows)
	return rows
}

// Categories lists the row names in display order, for the expense form.
func Categories() []string {
	names := make([]string, len(sampleRows))
	for i, r := range sampleRows {
		names[i] = r.Name
	}
	return names
}

// Summary is what the three cards display. The values are literals and are
// not computed from the rows.
type Summary struct {
	TotalBudget string
	TotalSpent  string
	SpentShare  string
	OverBudget  int
}

// StaticSummary returns the card figures.
func StaticSummary() Summary {
	return Summary{
		TotalBudget: "$4,000",
		TotalSpent:  "$3,410",
		SpentShare:  "85.25% of budget",
		OverBudget:  2,
	}
}

// Derived holds the figures actually implied by a set of rows.
type Derived struct {
	TotalBudget  core.Money
	TotalSpent   core.Money
	SpentPercent float64
	OverBudget   int
}

// Derive computes totals from rows. Its only consumer is the startup check
// comparing it with StaticSummary.
func Derive(rows []CategoryRow) Derived {
	var d Derived
	for _, r := range rows {
		d.TotalBudget.Cents += r.Budget.Cents
		d.TotalSpent.Cents += r.Spent.Cents
		if r.Over() {
			d.OverBudget++
		}
	}
	if d.TotalBudget.Cents > 0 {
		d.SpentPercent = float64(d.TotalSpent.Cents) * 100 / float64(d.TotalBudget.Cents)
	}
	return d
}

// Mismatches lists every card in s that disagrees with d.
func (d Derived) Mismatches(s Summary) []string {
	var out []string
	if got := d.TotalBudget.String(); got != s.TotalBudget {
		out = append(out, fmt.Sprintf("total budget card shows %s, rows sum to %s", s.TotalBudget, got))
	}
	if got := d.TotalSpent.String(); got != s.TotalSpent {
		out = append(out, fmt.Sprintf("total spent card shows %s, rows sum to %s", s.TotalSpent, got))
	}
	if got := fmt.Sprintf("%.2f%% of budget", d.SpentPercent); got != s.SpentShare {
		out = append(out, fmt.Sprintf("spent share card shows %q, rows give %q", s.SpentShare, got))
	}
	if d.OverBudget != s.OverBudget {
		out = append(out, fmt.Sprintf("budget alerts card shows %d categories over budget, rows give %d", s.OverBudget, d.OverBudget))
	}
	return out
}
