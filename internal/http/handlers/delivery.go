package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// DeliveryHandler serves delivery resources.
type DeliveryHandler struct {
	usecase deliveryUsecase
	logger  logx.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(logger logx.Logger, uc deliveryUsecase) *DeliveryHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &DeliveryHandler{usecase: uc, logger: logger}
}

// Create handles POST /deliveries.
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	var req createDeliveryRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	d, err := h.usecase.CreateDelivery(r.Context(), p.UserID, req.toDraft())
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, deliveryToResponse(*d))
}

// Available handles GET /deliveries/available.
func (h *DeliveryHandler) Available(w http.ResponseWriter, r *http.Request) {
	list, err := h.usecase.ListAvailable(r.Context())
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, deliveriesToResponse(list))
}

// Mine handles GET /deliveries/mine.
func (h *DeliveryHandler) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	list, err := h.usecase.ListByCustomer(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, deliveriesToResponse(list))
}

// Get handles GET /deliveries/{deliveryID}.
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "deliveryID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	d, err := h.usecase.GetDelivery(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, deliveryToResponse(*d))
}

// Bids handles GET /deliveries/{deliveryID}/bids.
func (h *DeliveryHandler) Bids(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "deliveryID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	list, err := h.usecase.ListBids(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, bidsToResponse(list))
}

// Cancel handles POST /deliveries/{deliveryID}/cancel.
func (h *DeliveryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.usecase.CancelDelivery)
}

// Start handles POST /deliveries/{deliveryID}/start.
func (h *DeliveryHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.usecase.StartDelivery)
}

// Complete handles POST /deliveries/{deliveryID}/complete.
func (h *DeliveryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.usecase.CompleteDelivery)
}

func (h *DeliveryHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, uuid.UUID, string) (*domain.Delivery, error),
) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "deliveryID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	d, err := op(r.Context(), id, p.UserID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, deliveryToResponse(*d))
}
