package primary_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/api"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/primary"
)

type Handler struct {
	Primary *primary.Service
	Logger  *logger.Logger
}

func NewHandler(svc *primary.Service, log *logger.Logger) *Handler {
	return &Handler{Primary: svc, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/events", h.CreateEvent)
	r.Post("/collections/{collectionID}/purchase", h.Purchase)
	r.Get("/collections/{collectionID}/price", h.GetPrice)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EventName string `json:"event_name"`
		Price     int64  `json:"price"`
		MaxSupply int64  `json:"max_supply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	collection, err := h.Primary.CreateEvent(r.Context(), api.Caller(r), body.EventName, body.Price, body.MaxSupply)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	h.Logger.LogMarket("CREATE_EVENT", fmt.Sprintf("%s (%s) supply=%d price=%d",
		collection.EventName, collection.ID, collection.MaxSupply, body.Price))
	api.WriteJSON(w, http.StatusCreated, collection)
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HolderName string `json:"holder_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.Primary.Purchase(r.Context(), api.Caller(r), chi.URLParam(r, "collectionID"), body.HolderName)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	h.Logger.LogMarket("PURCHASE", fmt.Sprintf("ticket %d of %s sold to %s",
		ticket.TicketID, ticket.CollectionID, ticket.Holder))
	api.WriteJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.Primary.GetPrice(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int64{"price": price})
}
