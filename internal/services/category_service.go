package services

import (
	"sync"

	"expensetracker/internal/core"
)

// CategorySeeder provides the initial labels for a transaction type.
type CategorySeeder interface {
	Categories(t core.TransactionType) []string
}

// CategoryState is a snapshot of one category list.
type CategoryState struct {
	Labels   []string `json:"labels"`
	Selected string   `json:"selected"`
}

// CategoryService keeps a category list per user and transaction type.
// Lists live in memory only.
type CategoryService struct {
	seeder CategorySeeder

	mu    sync.Mutex
	lists map[string]*core.CategoryList
}

// NewCategoryService seeds new lists from seeder, or from the defaults
// when seeder is nil.
func NewCategoryService(seeder CategorySeeder) *CategoryService {
	return &CategoryService{
		seeder: seeder,
		lists:  make(map[string]*core.CategoryList),
	}
}

func (s *CategoryService) List(userID string, t core.TransactionType) CategoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return state(s.listLocked(userID, t))
}

// Add appends label and selects it.
func (s *CategoryService) Add(userID string, t core.TransactionType, label string) (CategoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cl := s.listLocked(userID, t)
	if !cl.Add(label) {
		return state(cl), core.ErrEmptyCategory
	}
	return state(cl), nil
}

// Remove deletes label; ok is false when it was not in the list.
func (s *CategoryService) Remove(userID string, t core.TransactionType, label string) (CategoryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cl := s.listLocked(userID, t)
	ok := cl.Remove(label)
	return state(cl), ok
}

func (s *CategoryService) Select(userID string, t core.TransactionType, label string) (CategoryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cl := s.listLocked(userID, t)
	ok := cl.Select(label)
	return state(cl), ok
}

func (s *CategoryService) listLocked(userID string, t core.TransactionType) *core.CategoryList {
	key := userID + "|" + string(t)
	cl, ok := s.lists[key]
	if ok {
		return cl
	}
	var seed []string
	if s.seeder != nil {
		seed = s.seeder.Categories(t)
	}
	if len(seed) == 0 {
		seed = core.DefaultCategories(t)
	}
	cl = core.NewCategoryList(seed)
	s.lists[key] = cl
	return cl
}

func state(cl *core.CategoryList) CategoryState {
	return CategoryState{Labels: cl.Labels(), Selected: cl.Selected()}
}
