package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/metrics"
	"github.com/ErlanBelekov/recircular-api/internal/notify"
	"github.com/ErlanBelekov/recircular-api/internal/repository"
)

const maxMessageLen = 1000

type RequestUsecase struct {
	offers      repository.OfferRepository
	requests    repository.RequestRepository
	users       repository.UserRepository
	notifier    notify.Dispatcher
	frontendURL string
	logger      *slog.Logger
}

func NewRequestUsecase(
	offers repository.OfferRepository,
	requests repository.RequestRepository,
	users repository.UserRepository,
	notifier notify.Dispatcher,
	frontendURL string,
	logger *slog.Logger,
) *RequestUsecase {
	return &RequestUsecase{
		offers:      offers,
		requests:    requests,
		users:       users,
		notifier:    notifier,
		frontendURL: frontendURL,
		logger:      logger.With("component", "requests"),
	}
}

// Create files a pending request on an active offer and tells the owner,
// without revealing who asked.
func (u *RequestUsecase) Create(ctx context.Context, requesterID, offerID, message string) (*domain.Request, error) {
	message = strings.TrimSpace(message)
	if len(message) > maxMessageLen {
		return nil, fmt.Errorf("%w: message must not exceed %d bytes", domain.ErrValidation, maxMessageLen)
	}

	offer, err := u.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, wrapNotFound("get offer", err, domain.ErrOfferNotFound)
	}
	if offer.Status != domain.OfferActive {
		return nil, domain.ErrOfferNotActive
	}
	if offer.OwnedBy(requesterID) {
		return nil, domain.ErrOwnOffer
	}

	open, err := u.requests.HasOpen(ctx, offerID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("check open request: %w", err)
	}
	if open {
		return nil, domain.ErrDuplicateRequest
	}

	created, err := u.requests.Create(ctx, &domain.Request{
		OfferID:     offerID,
		RequesterID: requesterID,
		Message:     message,
		Status:      domain.RequestPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	created.Offer = offer
	metrics.RequestTransitionsTotal.WithLabelValues(string(domain.RequestPending)).Inc()

	owner, err := u.users.FindByID(ctx, offer.OwnerID)
	if err != nil {
		u.logger.WarnContext(ctx, "skip request notification: load owner", "offer_id", offerID, "error", err)
		return created, nil
	}
	u.notifier.Dispatch(ctx, notify.RequestReceived(owner.Email, offer.ID, message, u.frontendURL))

	return created, nil
}

// ListForOffer shows an owner the requests on their offer. Requesters stay
// anonymous except the one whose request was accepted.
func (u *RequestUsecase) ListForOffer(ctx context.Context, ownerID, offerID string) ([]*domain.Request, error) {
	offer, err := u.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, wrapNotFound("get offer", err, domain.ErrOfferNotFound)
	}
	if !offer.OwnedBy(ownerID) {
		return nil, domain.ErrNotOfferOwner
	}

	requests, err := u.requests.ListByOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	for _, r := range requests {
		if offer.AcceptedRequestID == nil || r.ID != *offer.AcceptedRequestID || r.Status != domain.RequestAccepted {
			r.Requester = domain.AnonymousRequester()
			continue
		}
		requester, err := u.users.FindByID(ctx, r.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("load accepted requester: %w", err)
		}
		r.Requester = requester.Summary()
	}
	return requests, nil
}

func (u *RequestUsecase) ListMine(ctx context.Context, requesterID string) ([]*domain.Request, error) {
	requests, err := u.requests.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list own requests: %w", err)
	}
	return requests, nil
}

// Cancel withdraws the caller's own pending request.
func (u *RequestUsecase) Cancel(ctx context.Context, requesterID, requestID string) (*domain.Request, error) {
	req, err := u.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, wrapNotFound("get request", err, domain.ErrRequestNotFound)
	}
	if req.RequesterID != requesterID {
		return nil, domain.ErrNotRequestOwner
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}

	cancelled, err := u.requests.Cancel(ctx, requestID)
	if err != nil {
		return nil, wrapNotFound("cancel request", err, domain.ErrRequestNotPending)
	}
	metrics.RequestTransitionsTotal.WithLabelValues(string(domain.RequestCancelled)).Inc()
	return cancelled, nil
}

type AcceptResult struct {
	Offer         *domain.Offer
	Request       *domain.Request
	RejectedCount int
}

// Accept assigns the offer to one pending request and rejects the rest in a
// single transaction, then notifies the winner and every rejected requester.
func (u *RequestUsecase) Accept(ctx context.Context, ownerID, offerID, requestID string) (*AcceptResult, error) {
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

	req, err := u.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, wrapNotFound("get request", err, domain.ErrRequestNotFound)
	}
	if req.OfferID != offerID {
		return nil, domain.ErrRequestNotFound
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}

	// The store re-checks both states under a row lock; a concurrent accept
	// or cancel surfaces here as ErrOfferNotActive or ErrRequestNotPending.
	res, err := u.offers.Accept(ctx, offerID, requestID)
	if err != nil {
		return nil, fmt.Errorf("accept request: %w", err)
	}

	metrics.OfferTransitionsTotal.WithLabelValues(string(domain.OfferAssigned)).Inc()
	metrics.RequestTransitionsTotal.WithLabelValues(string(domain.RequestAccepted)).Inc()
	metrics.RequestTransitionsTotal.WithLabelValues(string(domain.RequestRejected)).Add(float64(len(res.Rejected)))

	u.notifyAccepted(ctx, res)

	return &AcceptResult{
		Offer:         res.Offer,
		Request:       res.Accepted,
		RejectedCount: len(res.Rejected),
	}, nil
}

func (u *RequestUsecase) notifyAccepted(ctx context.Context, res *repository.AcceptResult) {
	msgs := make([]notify.Message, 0, len(res.Rejected)+1)

	owner, err := u.users.FindByID(ctx, res.Offer.OwnerID)
	switch {
	case err != nil:
		u.logger.WarnContext(ctx, "skip acceptance notification: load owner", "offer_id", res.Offer.ID, "error", err)
	case res.Accepted.Requester == nil:
		u.logger.WarnContext(ctx, "skip acceptance notification: requester not loaded", "request_id", res.Accepted.ID)
	default:
		msgs = append(msgs, notify.RequestAccepted(
			res.Accepted.Requester.Email, res.Accepted.Requester.Name,
			owner.Name, owner.Email, res.Offer.Items,
		))
	}

	for _, r := range res.Rejected {
		if r.Requester != nil {
			msgs = append(msgs, notify.RequestRejected(r.Requester.Email))
		}
	}
	u.notifier.Dispatch(ctx, msgs...)
}
