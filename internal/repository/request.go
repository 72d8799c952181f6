package repository

import (
	"context"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
)

type RequestRepository interface {
	// Create inserts a pending request only while its offer is active.
	// Returns domain.ErrOfferNotActive or domain.ErrDuplicateRequest.
	Create(ctx context.Context, req *domain.Request) (*domain.Request, error)
	// GetByID joins the requester identity.
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	// ListByOffer never joins requester identities.
	ListByOffer(ctx context.Context, offerID string) ([]*domain.Request, error)
	// ListByRequester populates Offer (with its owner) on every request.
	ListByRequester(ctx context.Context, requesterID string) ([]*domain.Request, error)
	// HasOpen reports a pending or accepted request by requester on offer.
	HasOpen(ctx context.Context, offerID, requesterID string) (bool, error)
	// Cancel moves a pending request to cancelled; domain.ErrRequestNotPending otherwise.
	Cancel(ctx context.Context, id string) (*domain.Request, error)
}
