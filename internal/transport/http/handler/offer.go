package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/transport/http/middleware"
	"github.com/ErlanBelekov/recircular-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type offerUsecaser interface {
	Create(ctx context.Context, input usecase.CreateOfferInput) (*domain.Offer, error)
	SearchNearby(ctx context.Context, input usecase.NearbyInput) ([]*domain.NearbyOffer, error)
	ListPublic(ctx context.Context) ([]*domain.Offer, error)
	ListMine(ctx context.Context, ownerID string) ([]*domain.Offer, error)
	Cancel(ctx context.Context, ownerID, offerID string) (*usecase.CancelOfferResult, error)
}

type OfferHandler struct {
	offerUsecase offerUsecaser
	logger       *slog.Logger
}

func NewOfferHandler(offerUsecase offerUsecaser, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{offerUsecase: offerUsecase, logger: logger.With("component", "offer_handler")}
}

type itemRequest struct {
	Denomination float64 `json:"denomination" binding:"gt=0"`
	Quantity     int     `json:"quantity"     binding:"gt=0"`
}

type locationRequest struct {
	Lat     *float64 `json:"lat"     binding:"required,min=-90,max=90"`
	Lng     *float64 `json:"lng"     binding:"required,min=-180,max=180"`
	Address string   `json:"address" binding:"max=200"`
	Comuna  string   `json:"comuna"  binding:"max=100"`
}

type createOfferRequest struct {
	Items    []itemRequest   `json:"items"    binding:"required,min=1,dive"`
	Location locationRequest `json:"location"`
}

// POST /api/offers
func (h *OfferHandler) Create(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]domain.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.Item{Denomination: it.Denomination, Quantity: it.Quantity})
	}

	offer, err := h.offerUsecase.Create(c.Request.Context(), usecase.CreateOfferInput{
		OwnerID: c.GetString(middleware.UserIDKey),
		Items:   items,
		Lat:     *req.Location.Lat,
		Lng:     *req.Location.Lng,
		Address: req.Location.Address,
		Comuna:  req.Location.Comuna,
	})
	if err != nil {
		respondError(c, h.logger, "create offer", err)
		return
	}

	c.JSON(http.StatusCreated, toOffer(offer))
}

// GET /api/offers/nearby?lat=&lng=&radiusKm=
func (h *OfferHandler) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters must be numbers"})
		return
	}

	// Anything unparsable falls back to the default radius.
	radius, err := strconv.ParseFloat(c.Query("radiusKm"), 64)
	if err != nil {
		radius = 0
	}

	offers, err := h.offerUsecase.SearchNearby(c.Request.Context(), usecase.NearbyInput{
		Lat:      lat,
		Lng:      lng,
		RadiusKm: radius,
		ViewerID: c.GetString(middleware.UserIDKey),
	})
	if err != nil {
		respondError(c, h.logger, "search nearby offers", err)
		return
	}

	resp := make([]*offerResponse, 0, len(offers))
	for _, n := range offers {
		resp = append(resp, toNearbyOffer(n))
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/offers
func (h *OfferHandler) List(c *gin.Context) {
	offers, err := h.offerUsecase.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list offers", err)
		return
	}
	c.JSON(http.StatusOK, toOffers(offers))
}

// GET /api/offers/my
func (h *OfferHandler) ListMine(c *gin.Context) {
	offers, err := h.offerUsecase.ListMine(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, h.logger, "list own offers", err)
		return
	}
	c.JSON(http.StatusOK, toOffers(offers))
}

// PATCH /api/offers/:id/cancel
func (h *OfferHandler) Cancel(c *gin.Context) {
	offerID, ok := pathID(c, "id", domain.ErrOfferNotFound)
	if !ok {
		return
	}

	res, err := h.offerUsecase.Cancel(c.Request.Context(), c.GetString(middleware.UserIDKey), offerID)
	if err != nil {
		respondError(c, h.logger, "cancel offer", err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "offer cancelled", "offer_id", offerID, "cascaded_requests", res.CancelledRequests)
	c.JSON(http.StatusOK, toOffer(res.Offer))
}
