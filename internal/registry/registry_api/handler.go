package registry_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/api"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/registry"
	"ms-marketplace/internal/registry/qr"
)

type Handler struct {
	Registry *registry.Service
	QR       *qr.Generator
	Logger   *logger.Logger
}

func NewHandler(reg *registry.Service, qrGen *qr.Generator, log *logger.Logger) *Handler {
	return &Handler{Registry: reg, QR: qrGen, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/collections/{collectionID}", h.GetCollection)
	r.Get("/collections/{collectionID}/tickets/{ticketID}", h.GetTicket)
	r.Get("/collections/{collectionID}/tickets/{ticketID}/qr", h.TicketQR)
	r.Post("/collections/{collectionID}/tickets/{ticketID}/transfer", h.Transfer)
	r.Post("/collections/{collectionID}/tickets/{ticketID}/approve", h.Approve)
	r.Put("/collections/{collectionID}/tickets/{ticketID}/holder-name", h.UpdateHolderName)
	r.Post("/checkin", h.Checkin)
	r.Get("/accounts/{account}/tickets", h.TicketsOf)
}

func ticketParams(r *http.Request) (string, int64, error) {
	collectionID := chi.URLParam(r, "collectionID")
	ticketID, err := strconv.ParseInt(chi.URLParam(r, "ticketID"), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid ticket id: %w", err)
	}
	return collectionID, ticketID, nil
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.Registry.GetCollection(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, collection)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ticket, err := h.Registry.GetTicket(r.Context(), collectionID, ticketID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, ticket)
}

// TicketQR renders the gate QR PNG for a ticket. Only the current holder
// can fetch it.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	caller := api.Caller(r)

	ticket, err := h.Registry.GetTicket(r.Context(), collectionID, ticketID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if ticket.Holder != caller {
		http.Error(w, "only the holder can fetch the ticket QR", http.StatusForbidden)
		return
	}

	png, err := h.QR.GenerateTicketQR(qr.Claim{
		CollectionID: collectionID,
		TicketID:     ticketID,
		Holder:       ticket.Holder,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketQR: %v", err))
		http.Error(w, "failed to generate QR", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Registry.Transfer(r.Context(), api.Caller(r), body.From, body.To, collectionID, ticketID); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Delegate string `json:"delegate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Registry.Approve(r.Context(), api.Caller(r), body.Delegate, collectionID, ticketID); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateHolderName(w http.ResponseWriter, r *http.Request) {
	collectionID, ticketID, err := ticketParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Registry.UpdateHolderName(r.Context(), api.Caller(r), collectionID, ticketID, body.Name); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkin decrypts a presented QR claim and marks the ticket used. The
// caller must be the collection creator.
func (h *Handler) Checkin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EncryptedQR string `json:"encrypted_qr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.EncryptedQR == "" {
		http.Error(w, "encrypted_qr is required", http.StatusBadRequest)
		return
	}

	claim, err := h.QR.DecryptClaim(body.EncryptedQR)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("Checkin: bad QR payload: %v", err))
		http.Error(w, "invalid QR payload", http.StatusBadRequest)
		return
	}

	if err := h.Registry.SetUsed(r.Context(), api.Caller(r), claim.CollectionID, claim.TicketID); err != nil {
		api.WriteError(w, err)
		return
	}

	h.Logger.LogRegistry("CHECKIN", fmt.Sprintf("ticket %d in %s checked in", claim.TicketID, claim.CollectionID))
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"collection_id": claim.CollectionID,
		"ticket_id":     claim.TicketID,
		"checked_in":    true,
	})
}

func (h *Handler) TicketsOf(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Registry.TicketsOf(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, tickets)
}
