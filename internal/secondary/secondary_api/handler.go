package secondary_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/api"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/secondary"
)

type Handler struct {
	Secondary *secondary.Service
	Logger    *logger.Logger
}

func NewHandler(svc *secondary.Service, log *logger.Logger) *Handler {
	return &Handler{Secondary: svc, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/collections/{collectionID}/tickets/{ticketID}/list", h.ListTicket)
	r.Post("/collections/{collectionID}/tickets/{ticketID}/bid", h.SubmitBid)
	r.Post("/collections/{collectionID}/tickets/{ticketID}/accept", h.AcceptBid)
	r.Post("/collections/{collectionID}/tickets/{ticketID}/delist", h.DelistTicket)
	r.Get("/collections/{collectionID}/tickets/{ticketID}/listing", h.GetListing)
	r.Get("/collections/{collectionID}/listings", h.Listings)
}

func ticketParams(r *http.Request) (string, int64, error) {
	collectionID := chi.URLParam(r, "collectionID")
	ticketID, err := strconv.ParseInt(chi.URLParam(r, "ticketID"), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid ticket id: %w", err)
	}
	return collectionID, ticketID, nil
}

func (h *Handler) ListTicket(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Price int64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Secondary.ListTicket(r.Context(), api.Caller(r), collectionID, ticketID, body.Price); err != nil {
		api.WriteError(w, err)
		return
	}

	h.Logger.LogEscrow("LIST", fmt.Sprintf("ticket %d of %s listed at %d", ticketID, collectionID, body.Price))
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Amount     int64  `json:"amount"`
		BidderName string `json:"bidder_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Secondary.SubmitBid(r.Context(), api.Caller(r), collectionID, ticketID, body.Amount, body.BidderName); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Secondary.AcceptBid(r.Context(), api.Caller(r), collectionID, ticketID); err != nil {
		api.WriteError(w, err)
		return
	}

	h.Logger.LogEscrow("ACCEPT", fmt.Sprintf("ticket %d of %s settled", ticketID, collectionID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DelistTicket(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Secondary.DelistTicket(r.Context(), api.Caller(r), collectionID, ticketID); err != nil {
		api.WriteError(w, err)
		return
	}

	h.Logger.LogEscrow("DELIST", fmt.Sprintf("ticket %d of %s delisted", ticketID, collectionID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	listing, err := h.Secondary.GetListing(r.Context(), collectionID, ticketID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if listing == nil {
		http.Error(w, "no active listing", http.StatusNotFound)
		return
	}
	api.WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) Listings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Secondary.ListingsByCollection(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, listings)
}
