package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSampleRows(t *testing.T) {
	rows := SampleRows()
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	want := []struct {
		name          string
		budget, spent int64
	}{
		{"Housing", 2000, 1800},
		{"Food", 800, 750},
		{"Transport", 400, 380},
		{"Utilities", 300, 280},
		{"Healthcare", 500, 200},
	}
	for i, w := range want {
		r := rows[i]
		if r.Name != w.name || r.Budget.Cents != w.budget*100 || r.Spent.Cents != w.spent*100 {
			t.Errorf("row %d = %+v, want %+v", i, r, w)
		}
		if r.Budget.Cents < 0 || r.Spent.Cents < 0 {
			t.Errorf("row %d has a negative amount", i)
		}
	}

	rows[0].Name = "Mutated"
	if SampleRows()[0].Name != "Housing" {
		t.Error("SampleRows must return a copy")
	}
}

func TestStaticSummaryLiterals(t *testing.T) {
	s := StaticSummary()
	if s.TotalBudget != "$4,000" || s.TotalSpent != "$3,410" || s.SpentShare != "85.25% of budget" || s.OverBudget != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestDeriveFlagsOverBudgetMismatch(t *testing.T) {
	d := Derive(SampleRows())

	if d.TotalBudget.String() != "$4,000" || d.TotalSpent.String() != "$3,410" {
		t.Errorf("unexpected totals: %s / %s", d.TotalBudget, d.TotalSpent)
	}
	if d.OverBudget != 0 {
		t.Errorf("no sample row exceeds its budget, got %d", d.OverBudget)
	}

	mismatches := d.Mismatches(StaticSummary())
	if len(mismatches) != 1 {
		t.Fatalf("expected exactly the alerts card to disagree, got %v", mismatches)
	}
	if !strings.Contains(mismatches[0], "shows 2") || !strings.Contains(mismatches[0], "give 0") {
		t.Errorf("unexpected mismatch text: %q", mismatches[0])
	}
}

func TestDeriveEmpty(t *testing.T) {
	d := Derive(nil)
	if d.SpentPercent != 0 || d.OverBudget != 0 || d.TotalBudget.Cents != 0 {
		t.Errorf("unexpected derive of no rows: %+v", d)
	}
}

func TestViewModal(t *testing.T) {
	v := NewView()
	before := v.Summary()

	if v.ModalOpen() {
		t.Fatal("modal should start closed")
	}
	v.OpenModal()
	if !v.ModalOpen() {
		t.Fatal("OpenModal should show the modal")
	}
	v.CloseModal()
	if v.ModalOpen() {
		t.Fatal("CloseModal should hide the modal")
	}

	v.OpenModal()
	v.SubmitExpense(ExpenseDraft{Category: "Food", Amount: "9999", Description: "groceries"})
	if v.ModalOpen() {
		t.Fatal("SubmitExpense should hide the modal")
	}

	if v.Summary() != before {
		t.Error("submitting an expense must not change the summary")
	}
	if rows := v.Rows(); rows[1].Spent.Cents != 75000 {
		t.Errorf("submitting an expense must not change the rows, Food spent = %d", rows[1].Spent.Cents)
	}
}

func TestCategories(t *testing.T) {
	got := strings.Join(Categories(), ",")
	if got != "Housing,Food,Transport,Utilities,Healthcare" {
		t.Errorf("Categories() = %s", got)
	}
}

func TestRenderChartPNG(t *testing.T) {
	data, err := RenderChart(SampleRows(), FormatPNG)
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a PNG")
	}
}

func TestRenderChartSVG(t *testing.T) {
	data, err := RenderChart(SampleRows(), FormatSVG)
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("output is not an SVG document")
	}
}

func TestRenderChartErrors(t *testing.T) {
	if _, err := RenderChart(nil, FormatPNG); err == nil {
		t.Error("expected error for no rows")
	}
	if _, err := RenderChart(SampleRows(), Format("gif")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestChartCache(t *testing.T) {
	c := NewChartCache(SampleRows(), time.Hour)
	first, err := c.Chart(FormatSVG)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Chart(FormatSVG)
	if err != nil {
		t.Fatal(err)
	}
	if &first[0] != &second[0] {
		t.Error("second call should be served from the cache")
	}
	if c.Cache().Size() != 1 {
		t.Errorf("cache size = %d, want 1", c.Cache().Size())
	}
	if FormatSVG.ContentType() != "image/svg+xml" || FormatPNG.ContentType() != "image/png" {
		t.Error("unexpected content types")
	}
}
