package token_api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/api"
	"ms-marketplace/internal/token"
)

// Handler exposes the payment-token ledger. Mint is bootstrap/test surface
// only and should be fenced off at the edge in any real deployment.
type Handler struct {
	Token *token.Service
}

func NewHandler(svc *token.Service) *Handler {
	return &Handler{Token: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/token/mint", h.Mint)
	r.Post("/token/approve", h.Approve)
	r.Post("/token/transfer", h.Transfer)
	r.Get("/token/accounts/{account}/balance", h.Balance)
}

func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Token.Mint(r.Context(), body.To, body.Amount); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Spender string `json:"spender"`
		Amount  int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Token.Approve(r.Context(), api.Caller(r), body.Spender, body.Amount); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Token.Transfer(r.Context(), api.Caller(r), body.To, body.Amount); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Token.BalanceOf(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}
