package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"asset-tokenization-kit/internal/apperr"
	"asset-tokenization-kit/internal/assets"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/validate"
)

func (s *Server) assetRoutes(r *mux.Router) {
	r.Handle("", s.authed(s.listAssets)).Methods(http.MethodGet)
	r.Handle("", s.authed(s.createAsset)).Methods(http.MethodPost)

	r.Handle("/{address}", s.authed(s.getAsset)).Methods(http.MethodGet)
	r.Handle("/{address}/holders", s.authed(s.assetHolders)).Methods(http.MethodGet)
	r.Handle("/{address}/events", s.authed(s.assetEvents)).Methods(http.MethodGet)
	r.Handle("/{address}/stats", s.authed(s.assetStats)).Methods(http.MethodGet)
	r.Handle("/{address}/airdrops", s.authed(s.assetAirdrops)).Methods(http.MethodGet)

	a := s.assets
	post := func(path string, h http.HandlerFunc) {
		r.Handle("/{address}/"+path, s.authed(h)).Methods(http.MethodPost)
	}
	post("mint", assetMutation(s, func(in *assets.MintInput, addr string) { in.Asset = addr }, a.Mint))
	post("burn", assetMutation(s, func(in *assets.BurnInput, addr string) { in.Asset = addr }, a.Burn))
	post("transfer", assetMutation(s, func(in *assets.TransferInput, addr string) { in.Asset = addr }, a.Transfer))
	post("pause", assetMutation(s, setAsset, a.Pause))
	post("unpause", assetMutation(s, setAsset, a.Unpause))
	post("block-user", assetMutation(s, setAccountAsset, a.BlockUser))
	post("unblock-user", assetMutation(s, setAccountAsset, a.UnblockUser))
	post("freeze", assetMutation(s, func(in *assets.FreezeInput, addr string) { in.Asset = addr }, a.Freeze))
	post("grant-role", assetMutation(s, setRolesAsset, a.GrantRole))
	post("revoke-role", assetMutation(s, setRolesAsset, a.RevokeRole))
	post("withdraw-token", assetMutation(s, func(in *assets.WithdrawTokenInput, addr string) { in.Asset = addr }, a.WithdrawToken))
	post("update-collateral", assetMutation(s, func(in *assets.CollateralInput, addr string) { in.Asset = addr }, a.UpdateCollateral))

	post("mature", assetMutation(s, setAsset, a.Mature))
	post("redeem", assetMutation(s, func(in *assets.RedeemInput, addr string) { in.Asset = addr }, a.Redeem))
	post("top-up-underlying", assetMutation(s, setUnderlyingAsset, a.TopUpUnderlying))
	post("withdraw-underlying", assetMutation(s, setUnderlyingAsset, a.WithdrawUnderlying))
	post("yield-schedule", assetMutation(s, func(in *assets.YieldScheduleInput, addr string) { in.Asset = addr }, a.SetYieldSchedule))
	post("claim-yield", assetMutation(s, setAsset, a.ClaimYield))

	post("airdrops", assetMutation(s, func(in *assets.AirdropInput, addr string) { in.Asset = addr }, a.CreateAirdrop))

	r.Handle("/{address}/private", s.authed(assetMutation(s, func(in *assets.PrivateInput, addr string) { in.Asset = addr }, a.SetPrivate))).Methods(http.MethodPut)
	r.Handle("/{address}/value", s.authed(assetMutation(s, func(in *assets.ValueInput, addr string) { in.Asset = addr }, a.SetValue))).Methods(http.MethodPut)
}

func setAsset(in *assets.AssetInput, addr string)                { in.Asset = addr }
func setAccountAsset(in *assets.AccountInput, addr string)       { in.Asset = addr }
func setRolesAsset(in *assets.RolesInput, addr string)           { in.Asset = addr }
func setUnderlyingAsset(in *assets.UnderlyingInput, addr string) { in.Asset = addr }

// assetMutation binds the JSON body to T, takes the asset from the path,
// validates and runs the mutation for the current user.
func assetMutation[T, R any](s *Server, bind func(*T, string), run func(context.Context, *domain.User, T) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeBody(r, &in); err != nil {
			s.writeError(w, r, err)
			return
		}
		bind(&in, mux.Vars(r)["address"])
		if err := validate.Struct(&in); err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err := run(r.Context(), currentUser(r), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func pathAddress(r *http.Request) (string, error) {
	addr := mux.Vars(r)["address"]
	if !validate.IsAddress(addr) {
		return "", apperr.BadRequest("invalid asset address").WithDetails("field", "address")
	}
	return addr, nil
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	t := domain.AssetType(r.URL.Query().Get("type"))
	if t != "" && !t.IsValid() {
		s.writeError(w, r, apperr.BadRequest("unknown asset type").WithDetails("field", "type"))
		return
	}
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.assets.ListAssets(r.Context(), currentUser(r), t, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var in assets.CreateInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.assets.Create(r.Context(), currentUser(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.assets.GetAsset(r.Context(), currentUser(r), addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) assetHolders(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	holders, err := s.assets.Holders(r.Context(), currentUser(r), addr, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holders)
}

func (s *Server) assetEvents(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", assets.DefaultEventLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events, err := s.assets.Events(r.Context(), currentUser(r), addr, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) assetStats(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 7)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := s.assets.Stats(r.Context(), currentUser(r), addr, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) assetAirdrops(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	drops, err := s.assets.Airdrops(r.Context(), currentUser(r), addr, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drops)
}

func (s *Server) transaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.assets.Transaction(r.Context(), currentUser(r), mux.Vars(r)["hash"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type baseCurrencyBody struct {
	Currency domain.Currency `json:"currency" validate:"required,currency"`
}

func (s *Server) baseCurrency(w http.ResponseWriter, r *http.Request) {
	c, err := s.assets.BaseCurrency(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, baseCurrencyBody{Currency: c})
}

func (s *Server) setBaseCurrency(w http.ResponseWriter, r *http.Request) {
	var in baseCurrencyBody
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.assets.SetBaseCurrency(r.Context(), currentUser(r), in.Currency); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}
