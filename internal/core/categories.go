package core

import "strings"

// FallbackCategory is selected when the selected label is removed and
// nothing else is left.
const FallbackCategory = "Other"

var (
	DefaultIncomeCategories  = []string{"Salary", "Freelance", "Investments", "Gifts", "Other"}
	DefaultExpenseCategories = []string{"Food", "Transport", "Shopping", "Bills", "Entertainment", "Other"}
)

// DefaultCategories returns a fresh copy of the defaults for t.
func DefaultCategories(t TransactionType) []string {
	src := DefaultExpenseCategories
	if t == Income {
		src = DefaultIncomeCategories
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// CategoryList is an ordered, de-duplicated set of labels with one
// selected entry. It is not safe for concurrent use.
type CategoryList struct {
	labels   []string
	selected string
}

// NewCategoryList builds a list from labels, selecting the first one.
func NewCategoryList(labels []string) *CategoryList {
	cl := &CategoryList{}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || cl.Contains(l) {
			continue
		}
		cl.labels = append(cl.labels, l)
	}
	if len(cl.labels) == 0 {
		cl.labels = []string{FallbackCategory}
	}
	cl.selected = cl.labels[0]
	return cl
}

// NewDefaultCategoryList returns the defaults for t.
func NewDefaultCategoryList(t TransactionType) *CategoryList {
	return NewCategoryList(DefaultCategories(t))
}

func (cl *CategoryList) Contains(label string) bool {
	for _, l := range cl.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Add appends label and selects it. Blank labels are ignored and
// existing labels are only selected.
func (cl *CategoryList) Add(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	if !cl.Contains(label) {
		cl.labels = append(cl.labels, label)
	}
	cl.selected = label
	return true
}

// Remove deletes label. If it was selected, the selection moves to the
// first remaining label, or to FallbackCategory when the list is empty.
func (cl *CategoryList) Remove(label string) bool {
	idx := -1
	for i, l := range cl.labels {
		if l == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	cl.labels = append(cl.labels[:idx], cl.labels[idx+1:]...)
	if cl.selected == label {
		if len(cl.labels) > 0 {
			cl.selected = cl.labels[0]
		} else {
			cl.labels = []string{FallbackCategory}
			cl.selected = FallbackCategory
		}
	}
	return true
}

// Select marks label as selected if present.
func (cl *CategoryList) Select(label string) bool {
	if !cl.Contains(label) {
		return false
	}
	cl.selected = label
	return true
}

func (cl *CategoryList) Selected() string {
	return cl.selected
}

// Labels returns a copy of the labels in insertion order.
func (cl *CategoryList) Labels() []string {
	out := make([]string, len(cl.labels))
	copy(out, cl.labels)
	return out
}
