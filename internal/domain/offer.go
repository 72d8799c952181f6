package domain

import (
	"math"
	"time"
)

type OfferStatus string

const (
	OfferActive    OfferStatus = "active"
	OfferAssigned  OfferStatus = "assigned"
	OfferCancelled OfferStatus = "cancelled"
	// OfferClosed is part of the schema but no operation produces it.
	OfferClosed OfferStatus = "closed"
)

// Item is one line of an offer: Quantity notes or coins of a Denomination.
type Item struct {
	Denomination float64 `json:"denomination"`
	Quantity     int     `json:"quantity"`
}

func (i Item) Valid() bool {
	if math.IsNaN(i.Denomination) || math.IsInf(i.Denomination, 0) {
		return false
	}
	return i.Denomination > 0 && i.Quantity > 0
}

type Location struct {
	Lat     float64
	Lng     float64
	Address *string
	Comuna  *string
}

type Offer struct {
	ID      string
	OwnerID string
	Owner   *UserSummary

	Items    []Item
	Location Location
	Status   OfferStatus

	// AcceptedRequestID is set iff Status == OfferAssigned.
	AcceptedRequestID *string
	AcceptedRequest   *Request // populated only by owner-facing listings

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Offer) OwnedBy(userID string) bool {
	return o.OwnerID == userID
}

// NearbyOffer is an active offer annotated for the caller of a radius search.
type NearbyOffer struct {
	Offer         *Offer
	DistanceKm    float64
	RequestedByMe bool
}
