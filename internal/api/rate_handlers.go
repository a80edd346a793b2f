package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/apperr"
	"asset-tokenization-kit/internal/domain"
)

// defaultHistoryWindow applies when a history query has no "from".
const defaultHistoryWindow = 30 * 24 * time.Hour

func queryCurrency(r *http.Request, name string, required bool) (domain.Currency, error) {
	c := domain.Currency(r.URL.Query().Get(name))
	if c == "" && !required {
		return "", nil
	}
	if !c.IsValid() {
		return "", apperr.BadRequest("unsupported currency").WithDetails("field", name)
	}
	return c, nil
}

func queryTime(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.BadRequest("invalid RFC 3339 timestamp").WithDetails("field", name)
	}
	return t, nil
}

func (s *Server) listExchangeRates(w http.ResponseWriter, r *http.Request) {
	base, err := queryCurrency(r, "base", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rates, err := s.exchangeRates.Rates(r.Context(), base)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

type conversionResponse struct {
	Amount decimal.Decimal `json:"amount"`
	From   domain.Currency `json:"from"`
	To     domain.Currency `json:"to"`
	Result decimal.Decimal `json:"result"`
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		s.writeError(w, r, apperr.BadRequest("invalid amount").WithDetails("field", "amount"))
		return
	}
	from, err := queryCurrency(r, "from", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := queryCurrency(r, "to", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.exchangeRates.Convert(r.Context(), amount, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{Amount: amount, From: from, To: to, Result: out})
}

func (s *Server) rateHistory(w http.ResponseWriter, r *http.Request) {
	base, err := queryCurrency(r, "base", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quote, err := queryCurrency(r, "quote", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := time.Now().UTC()
	end, err := queryTime(r, "to", now)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := queryTime(r, "from", end.Add(-defaultHistoryWindow))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !start.Before(end) {
		s.writeError(w, r, apperr.BadRequest("from must be before to").WithDetails("field", "from"))
		return
	}
	history, err := s.exchangeRates.History(r.Context(), base, quote, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []domain.ExchangeRate{}
	}
	writeJSON(w, http.StatusOK, history)
}
