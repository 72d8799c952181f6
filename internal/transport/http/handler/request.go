package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/transport/http/middleware"
	"github.com/ErlanBelekov/recircular-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type requestUsecaser interface {
	Create(ctx context.Context, requesterID, offerID, message string) (*domain.Request, error)
	ListForOffer(ctx context.Context, ownerID, offerID string) ([]*domain.Request, error)
	ListMine(ctx context.Context, requesterID string) ([]*domain.Request, error)
	Cancel(ctx context.Context, requesterID, requestID string) (*domain.Request, error)
	Accept(ctx context.Context, ownerID, offerID, requestID string) (*usecase.AcceptResult, error)
}

type RequestHandler struct {
	requestUsecase requestUsecaser
	logger         *slog.Logger
}

func NewRequestHandler(requestUsecase requestUsecaser, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{requestUsecase: requestUsecase, logger: logger.With("component", "request_handler")}
}

type createRequestRequest struct {
	Message string `json:"message" binding:"max=1000"`
}

type acceptResponse struct {
	Message       string           `json:"message"`
	Offer         *offerResponse   `json:"offer"`
	Request       *requestResponse `json:"request"`
	RejectedCount int              `json:"rejected_count"`
}

// POST /api/offers/:id/requests
func (h *RequestHandler) Create(c *gin.Context) {
	offerID, ok := pathID(c, "id", domain.ErrOfferNotFound)
	if !ok {
		return
	}

	// An empty body is a request without a message.
	var req createRequestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	created, err := h.requestUsecase.Create(c.Request.Context(), c.GetString(middleware.UserIDKey), offerID, req.Message)
	if err != nil {
		respondError(c, h.logger, "create request", err)
		return
	}

	c.JSON(http.StatusCreated, toRequest(created))
}

// GET /api/offers/:id/requests
func (h *RequestHandler) ListForOffer(c *gin.Context) {
	offerID, ok := pathID(c, "id", domain.ErrOfferNotFound)
	if !ok {
		return
	}

	reqs, err := h.requestUsecase.ListForOffer(c.Request.Context(), c.GetString(middleware.UserIDKey), offerID)
	if err != nil {
		respondError(c, h.logger, "list offer requests", err)
		return
	}
	c.JSON(http.StatusOK, toRequests(reqs))
}

// POST /api/offers/:id/requests/:requestId/accept
func (h *RequestHandler) Accept(c *gin.Context) {
	offerID, ok := pathID(c, "id", domain.ErrOfferNotFound)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "requestId", domain.ErrRequestNotFound)
	if !ok {
		return
	}

	res, err := h.requestUsecase.Accept(c.Request.Context(), c.GetString(middleware.UserIDKey), offerID, requestID)
	if err != nil {
		respondError(c, h.logger, "accept request", err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "request accepted",
		"offer_id", offerID, "request_id", requestID, "rejected", res.RejectedCount)

	c.JSON(http.StatusOK, acceptResponse{
		Message:       "Request accepted",
		Offer:         toOffer(res.Offer),
		Request:       toRequest(res.Request),
		RejectedCount: res.RejectedCount,
	})
}

// GET /api/requests/my
func (h *RequestHandler) ListMine(c *gin.Context) {
	reqs, err := h.requestUsecase.ListMine(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, h.logger, "list own requests", err)
		return
	}
	c.JSON(http.StatusOK, toRequests(reqs))
}

// PATCH /api/requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	requestID, ok := pathID(c, "id", domain.ErrRequestNotFound)
	if !ok {
		return
	}

	cancelled, err := h.requestUsecase.Cancel(c.Request.Context(), c.GetString(middleware.UserIDKey), requestID)
	if err != nil {
		respondError(c, h.logger, "cancel request", err)
		return
	}
	c.JSON(http.StatusOK, toRequest(cancelled))
}
