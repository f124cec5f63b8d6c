package dashboard

import "sync"

// ExpenseDraft is what the add-expense form collected. It is never stored.
type ExpenseDraft struct {
	Category    string
	Amount      string
	Description string
}

// View is the per-signed-in-user dashboard state: only the modal flag.
type View struct {
	mu        sync.Mutex
	modalOpen bool
}

func NewView() *View {
	return &View{}
}

func (v *View) OpenModal() {
	v.mu.Lock()
	v.modalOpen = true
	v.mu.Unlock()
}

func (v *View) CloseModal() {
	v.mu.Lock()
	v.modalOpen = false
	v.mu.Unlock()
}

// SubmitExpense closes the modal. The draft is discarded: no row, total or
// card changes.
func (v *View) SubmitExpense(ExpenseDraft) {
	v.CloseModal()
}

func (v *View) ModalOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.modalOpen
}

// Rows returns the category rows shown in the chart.
func (v *View) Rows() []CategoryRow {
	return SampleRows()
}

// Summary returns the card figures.
func (v *View) Summary() Summary {
	return StaticSummary()
}
