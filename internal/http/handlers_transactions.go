package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	items, err := s.insights.Transactions(r.Context(), userFrom(r), f)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	out := transactionListJSON{
		Transactions: make([]transactionJSON, 0, len(items)),
		Count:        len(items),
	}
	for _, t := range items {
		out.Transactions = append(out.Transactions, toTransactionJSON(t))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), userFrom(r), mux.Vars(r)["id"])
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().JSON(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	t, err := ParseTransaction(p, userFrom(r), s.clock())
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+created.ID).
		JSON(toTransactionJSON(created)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	t, err := ParseTransaction(p, userFrom(r), s.clock())
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	t.ID = mux.Vars(r)["id"]
	if err := s.transactions.Update(r.Context(), t); err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().JSON(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), userFrom(r), mux.Vars(r)["id"]); err != nil {
		errorFor(r, err).Write(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ov, err := s.insights.Overview(r.Context(), userFrom(r))
	if err != nil {
		errorFor(r, err).Write(w)
		return
	}
	NewResponse().JSON(toSummaryJSON(ov)).Write(w)
}
