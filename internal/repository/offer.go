package repository

import (
	"context"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/geo"
)

type NearbyQuery struct {
	Center   geo.Point
	RadiusKm float64
	ViewerID *string // nil for anonymous callers
}

type AcceptResult struct {
	Offer    *domain.Offer
	Accepted *domain.Request   // Requester populated
	Rejected []*domain.Request // Requester populated, used only for notification
}

type OfferRepository interface {
	Create(ctx context.Context, offer *domain.Offer) (*domain.Offer, error)
	GetByID(ctx context.Context, id string) (*domain.Offer, error)
	ListActive(ctx context.Context) ([]*domain.Offer, error)
	// ListByOwner populates AcceptedRequest (with its Requester) on assigned offers.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Offer, error)
	Nearby(ctx context.Context, q NearbyQuery) ([]*domain.NearbyOffer, error)

	// Cancel moves an active offer to cancelled and every pending request on
	// it to cancelled, in one transaction. Returns the number of cascaded
	// requests, or domain.ErrOfferNotActive if the offer left active first.
	Cancel(ctx context.Context, offerID string) (int, error)

	// Accept runs the accept transition in one transaction, conditional on
	// the offer still being active and the request still pending.
	Accept(ctx context.Context, offerID, requestID string) (*AcceptResult, error)
}
