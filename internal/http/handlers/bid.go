package handlers

import (
	"net/http"

	"service-dispatch/internal/logx"
)

// BidHandler serves bid placement and acceptance.
type BidHandler struct {
	usecase   bidUsecase
	directory driverDirectory
	logger    logx.Logger
}

// NewBidHandler creates a new BidHandler.
func NewBidHandler(logger logx.Logger, uc bidUsecase, directory driverDirectory) *BidHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &BidHandler{usecase: uc, directory: directory, logger: logger}
}

// Place handles POST /bids.
func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	var req placeBidRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	driver, err := h.directory.Driver(r.Context(), p.UserID)
	if err != nil {
		// The bid goes through with an id-only summary.
		h.logger.Warn("driver profile lookup failed",
			logx.String("req_id", reqID(r.Context())),
			logx.String("driver_id", p.UserID),
			logx.Err(err),
		)
		driver.ID = p.UserID
	}

	bid, err := h.usecase.PlaceBid(r.Context(), driver, req.DeliveryID, req.Amount)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, bidToResponse(*bid))
}

// Accept handles POST /bids/{bidID}/accept.
func (h *BidHandler) Accept(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "bidID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid bid id")
		return
	}

	bid, d, err := h.usecase.AcceptBid(r.Context(), id, p.UserID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, acceptBidResponse{
		Bid:      bidToResponse(*bid),
		Delivery: deliveryToResponse(*d),
	})
}
