package handler

import (
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
)

type userResponse struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type locationResponse struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address *string `json:"address,omitempty"`
	Comuna  *string `json:"comuna,omitempty"`
}

type offerResponse struct {
	ID              string             `json:"id"`
	Owner           *userResponse      `json:"owner,omitempty"`
	Items           []domain.Item      `json:"items"`
	Location        locationResponse   `json:"location"`
	Status          domain.OfferStatus `json:"status"`
	AcceptedRequest *requestResponse   `json:"accepted_request,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	// Set only on radius search results.
	DistanceKm    *float64 `json:"distance_km,omitempty"`
	RequestedByMe *bool    `json:"requested_by_me,omitempty"`
}

type requestResponse struct {
	ID        string               `json:"id"`
	OfferID   string               `json:"offer_id"`
	User      *userResponse        `json:"user,omitempty"`
	Offer     *offerResponse       `json:"offer,omitempty"`
	Message   string               `json:"message"`
	Status    domain.RequestStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func toUser(u *domain.UserSummary) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toOffer(o *domain.Offer) *offerResponse {
	if o == nil {
		return nil
	}
	items := o.Items
	if items == nil {
		items = []domain.Item{}
	}
	resp := &offerResponse{
		ID:    o.ID,
		Owner: toUser(o.Owner),
		Items: items,
		Location: locationResponse{
			Lat:     o.Location.Lat,
			Lng:     o.Location.Lng,
			Address: o.Location.Address,
			Comuna:  o.Location.Comuna,
		},
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.AcceptedRequest != nil {
		resp.AcceptedRequest = toRequest(o.AcceptedRequest)
	}
	if resp.Owner != nil {
		// Owner contact is only ever shared through the acceptance email.
		resp.Owner.Email = ""
	}
	return resp
}

func toNearbyOffer(n *domain.NearbyOffer) *offerResponse {
	resp := toOffer(n.Offer)
	distance := n.DistanceKm
	requested := n.RequestedByMe
	resp.DistanceKm = &distance
	resp.RequestedByMe = &requested
	return resp
}

func toRequest(r *domain.Request) *requestResponse {
	return &requestResponse{
		ID:        r.ID,
		OfferID:   r.OfferID,
		User:      toUser(r.Requester),
		Offer:     toOffer(r.Offer),
		Message:   r.Message,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toOffers(offers []*domain.Offer) []*offerResponse {
	out := make([]*offerResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, toOffer(o))
	}
	return out
}

func toRequests(reqs []*domain.Request) []*requestResponse {
	out := make([]*requestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequest(r))
	}
	return out
}
