package domain

import "time"

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestCancelled RequestStatus = "cancelled"
	RequestRejected  RequestStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestCancelled || s == RequestRejected
}

type Request struct {
	ID          string
	OfferID     string
	RequesterID string

	// Requester is nil unless the query explicitly joined the user.
	Requester *UserSummary
	Offer     *Offer

	Message string
	Status  RequestStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}
