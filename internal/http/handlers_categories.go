package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	t, err := ParseCategoryType(r.URL.Query().Get("type"))
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().JSON(toCategoriesJSON(t, s.categories.List(userFrom(r), t))).Write(w)
}

// handleAddCategory adds a label and selects it. Adding an existing
// label only selects it.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	t, err := ParseCategoryType(p.Get("type"))
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	st, err := s.categories.Add(userFrom(r), t, p.Get("label"))
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toCategoriesJSON(t, st)).Write(w)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	t, err := ParseCategoryType(r.URL.Query().Get("type"))
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	st, ok := s.categories.Remove(userFrom(r), t, sanitizeInput(mux.Vars(r)["label"]))
	if !ok {
		NotFoundError("category not found").Write(w)
		return
	}
	NewResponse().JSON(toCategoriesJSON(t, st)).Write(w)
}

func (s *Server) handleSelectCategory(w http.ResponseWriter, r *http.Request) {
	t, err := ParseCategoryType(r.URL.Query().Get("type"))
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	st, ok := s.categories.Select(userFrom(r), t, sanitizeInput(mux.Vars(r)["label"]))
	if !ok {
		NotFoundError("category not found").Write(w)
		return
	}
	NewResponse().JSON(toCategoriesJSON(t, st)).Write(w)
}
