package api

import (
	"net/http"

	"asset-tokenization-kit/internal/apperr"
	"asset-tokenization-kit/internal/auth"
	"asset-tokenization-kit/internal/domain"
)

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var in auth.UpdateProfileInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.auth.UpdateProfile(r.Context(), currentUser(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) myAssets(w http.ResponseWriter, r *http.Request) {
	balances, err := s.assets.UserAssets(r.Context(), currentUser(r).Wallet)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) myActions(w http.ResponseWriter, r *http.Request) {
	status := domain.ActionStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		s.writeError(w, r, apperr.BadRequest("unknown action status").WithDetails("field", "status"))
		return
	}
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	actions, err := s.assets.Actions(r.Context(), currentUser(r), status, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) myIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := s.assets.Identity(r.Context(), currentUser(r).Wallet)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if id == nil {
		s.writeError(w, r, apperr.NotFound("no identity registered for this wallet"))
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) myTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txs, err := s.assets.UserTransactions(r.Context(), currentUser(r), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) myAirdrops(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	drops, err := s.assets.AirdropsForRecipient(r.Context(), currentUser(r).Wallet, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drops)
}
