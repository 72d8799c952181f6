package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/geo"
	"github.com/ErlanBelekov/recircular-api/internal/metrics"
	"github.com/ErlanBelekov/recircular-api/internal/repository"
)

const (
	DefaultRadiusKm = 0.2
	MaxRadiusKm     = 50.0
)

type OfferUsecase struct {
	offers repository.OfferRepository
}

func NewOfferUsecase(offers repository.OfferRepository) *OfferUsecase {
	return &OfferUsecase{offers: offers}
}

type CreateOfferInput struct {
	OwnerID string
	Items   []domain.Item
	Lat     float64
	Lng     float64
	Address string
	Comuna  string
}

func (u *OfferUsecase) Create(ctx context.Context, input CreateOfferInput) (*domain.Offer, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", domain.ErrValidation)
	}
	for i, item := range input.Items {
		if !item.Valid() {
			return nil, fmt.Errorf("%w: item %d needs a positive denomination and quantity", domain.ErrValidation, i)
		}
	}
	if err := (geo.Point{Lat: input.Lat, Lng: input.Lng}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	created, err := u.offers.Create(ctx, &domain.Offer{
		OwnerID: input.OwnerID,
		Items:   input.Items,
		Location: domain.Location{
			Lat:     input.Lat,
			Lng:     input.Lng,
			Address: optional(input.Address),
			Comuna:  optional(input.Comuna),
		},
		Status: domain.OfferActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	metrics.OfferTransitionsTotal.WithLabelValues(string(domain.OfferActive)).Inc()
	return created, nil
}

type NearbyInput struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
	// ViewerID is empty for anonymous callers.
	ViewerID string
}

// SearchNearby returns active offers within the radius, closest first. A
// missing or non-positive radius means DefaultRadiusKm.
func (u *OfferUsecase) SearchNearby(ctx context.Context, input NearbyInput) ([]*domain.NearbyOffer, error) {
	center := geo.Point{Lat: input.Lat, Lng: input.Lng}
	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	radius := input.RadiusKm
	if math.IsNaN(radius) || radius <= 0 {
		radius = DefaultRadiusKm
	}
	if radius > MaxRadiusKm {
		return nil, fmt.Errorf("%w: radiusKm must not exceed %g", domain.ErrValidation, MaxRadiusKm)
	}

	q := repository.NearbyQuery{Center: center, RadiusKm: radius}
	if input.ViewerID != "" {
		q.ViewerID = &input.ViewerID
	}

	offers, err := u.offers.Nearby(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search nearby: %w", err)
	}
	metrics.NearbyResults.Observe(float64(len(offers)))
	return offers, nil
}

func (u *OfferUsecase) ListPublic(ctx context.Context) ([]*domain.Offer, error) {
	offers, err := u.offers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}

func (u *OfferUsecase) ListMine(ctx context.Context, ownerID string) ([]*domain.Offer, error) {
	offers, err := u.offers.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list own offers: %w", err)
	}
	return offers, nil
}

type CancelOfferResult struct {
	Offer *domain.Offer
	// CancelledRequests counts pending requests cascaded to cancelled.
	CancelledRequests int
}

// Cancel withdraws an active offer and every pending request on it.
func (u *OfferUsecase) Cancel(ctx context.Context, ownerID, offerID string) (*CancelOfferResult, error) {
	offer, err := u.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, wrapNotFound("get offer", err, domain.ErrOfferNotFound)
	}
	if !offer.OwnedBy(ownerID) {
		return nil, domain.ErrNotOfferOwner
	}
	if offer.Status != domain.OfferActive {
		return nil, domain.ErrOfferNotActive
	}

	cascaded, err := u.offers.Cancel(ctx, offerID)
	if err != nil {
		if errors.Is(err, domain.ErrOfferNotActive) {
			return nil, domain.ErrOfferNotActive
		}
		return nil, fmt.Errorf("cancel offer: %w", err)
	}

	metrics.OfferTransitionsTotal.WithLabelValues(string(domain.OfferCancelled)).Inc()
	metrics.RequestTransitionsTotal.WithLabelValues(string(domain.RequestCancelled)).Add(float64(cascaded))

	updated, err := u.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("reload offer: %w", err)
	}
	return &CancelOfferResult{Offer: updated, CancelledRequests: cascaded}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// wrapNotFound passes the not-found sentinel through unwrapped and adds
// context to anything else.
func wrapNotFound(op string, err, notFound error) error {
	if errors.Is(err, notFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
