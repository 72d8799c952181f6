package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/geo"
	"github.com/ErlanBelekov/recircular-api/internal/repository"
	"github.com/google/uuid"
)

// memStore implements the user, offer and request repositories over maps.
// Every mutation holds the lock for its whole read-check-write, giving the
// same atomicity the SQL transactions provide.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[string]*domain.User
	offers   map[string]*domain.Offer
	requests map[string]*domain.Request
	// identityLoads counts requester identities handed out by user lookups.
	identityLoads map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		clock:         time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		users:         map[string]*domain.User{},
		offers:        map[string]*domain.Offer{},
		requests:      map[string]*domain.Request{},
		identityLoads: map[string]int{},
	}
}

// tick returns a strictly increasing timestamp so newest-first ordering is deterministic.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addUser(name, email string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	u := &domain.User{ID: uuid.NewString(), Name: name, Email: email, Active: true, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return u
}

// ---- UserRepository ----

func (s *memStore) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	c := *u
	c.ID = uuid.NewString()
	c.CreatedAt = s.tick()
	c.UpdatedAt = c.CreatedAt
	s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	s.identityLoads[id]++
	c := *u
	return &c, nil
}

func (s *memStore) Activate(_ context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ActivationTokenHash != nil && *u.ActivationTokenHash == tokenHash &&
			u.ActivationExpiresAt != nil && u.ActivationExpiresAt.After(now) {
			u.Active = true
			u.ActivationTokenHash = nil
			u.ActivationExpiresAt = nil
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrTokenInvalid
}

func (s *memStore) ClearExpiredActivations(_ context.Context, before time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if n == limit {
			break
		}
		if u.ActivationExpiresAt != nil && !u.ActivationExpiresAt.After(before) {
			u.ActivationTokenHash = nil
			u.ActivationExpiresAt = nil
			n++
		}
	}
	return n, nil
}

// ---- OfferRepository ----

type offerRepo struct{ *memStore }

func (r offerRepo) Create(_ context.Context, o *domain.Offer) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *o
	c.ID = uuid.NewString()
	c.Status = domain.OfferActive
	c.CreatedAt = r.tick()
	c.UpdatedAt = c.CreatedAt
	c.Items = append([]domain.Item(nil), o.Items...)
	r.offers[c.ID] = &c
	return r.offerView(&c), nil
}

func (r offerRepo) GetByID(_ context.Context, id string) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	return r.offerView(o), nil
}

func (r offerRepo) ListActive(_ context.Context) ([]*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Offer{}
	for _, o := range r.offers {
		if o.Status == domain.OfferActive {
			out = append(out, r.offerView(o))
		}
	}
	sortOffersNewestFirst(out)
	return out, nil
}

func (r offerRepo) ListByOwner(_ context.Context, ownerID string) ([]*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Offer{}
	for _, o := range r.offers {
		if o.OwnerID != ownerID {
			continue
		}
		v := r.offerView(o)
		if o.AcceptedRequestID != nil {
			v.AcceptedRequest = r.requestWithRequester(r.requests[*o.AcceptedRequestID])
		}
		out = append(out, v)
	}
	sortOffersNewestFirst(out)
	return out, nil
}

func (r offerRepo) Nearby(_ context.Context, q repository.NearbyQuery) ([]*domain.NearbyOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.NearbyOffer{}
	for _, o := range r.offers {
		if o.Status != domain.OfferActive {
			continue
		}
		d := geo.DistanceKm(q.Center, geo.Point{Lat: o.Location.Lat, Lng: o.Location.Lng})
		if d > q.RadiusKm {
			continue
		}
		n := &domain.NearbyOffer{Offer: r.offerView(o), DistanceKm: d}
		if q.ViewerID != nil {
			for _, req := range r.requests {
				if req.OfferID == o.ID && req.RequesterID == *q.ViewerID && req.Status == domain.RequestPending {
					n.RequestedByMe = true
				}
			}
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func (r offerRepo) Cancel(_ context.Context, offerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok || o.Status != domain.OfferActive {
		return 0, domain.ErrOfferNotActive
	}
	now := r.tick()
	o.Status = domain.OfferCancelled
	o.UpdatedAt = now
	n := 0
	for _, req := range r.requests {
		if req.OfferID == offerID && req.Status == domain.RequestPending {
			req.Status = domain.RequestCancelled
			req.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r offerRepo) Accept(_ context.Context, offerID, requestID string) (*repository.AcceptResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	if o.Status != domain.OfferActive {
		return nil, domain.ErrOfferNotActive
	}
	target, ok := r.requests[requestID]
	if !ok || target.OfferID != offerID {
		return nil, domain.ErrRequestNotFound
	}
	if target.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}

	now := r.tick()
	target.Status = domain.RequestAccepted
	target.UpdatedAt = now

	rejected := []*domain.Request{}
	for _, req := range r.requests {
		if req.OfferID == offerID && req.ID != requestID && req.Status == domain.RequestPending {
			req.Status = domain.RequestRejected
			req.UpdatedAt = now
			rejected = append(rejected, r.requestWithRequester(req))
		}
	}

	o.Status = domain.OfferAssigned
	o.AcceptedRequestID = &target.ID
	o.UpdatedAt = now

	accepted := r.requestWithRequester(target)
	offer := r.offerView(o)
	offer.AcceptedRequest = accepted
	return &repository.AcceptResult{Offer: offer, Accepted: accepted, Rejected: rejected}, nil
}

// ---- RequestRepository ----

type requestRepo struct{ *memStore }

func (r requestRepo) Create(_ context.Context, req *domain.Request) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[req.OfferID]
	if !ok || o.Status != domain.OfferActive {
		return nil, domain.ErrOfferNotActive
	}
	for _, existing := range r.requests {
		if existing.OfferID == req.OfferID && existing.RequesterID == req.RequesterID &&
			(existing.Status == domain.RequestPending || existing.Status == domain.RequestAccepted) {
			return nil, domain.ErrDuplicateRequest
		}
	}
	c := *req
	c.ID = uuid.NewString()
	c.Status = domain.RequestPending
	c.CreatedAt = r.tick()
	c.UpdatedAt = c.CreatedAt
	r.requests[c.ID] = &c
	out := c
	return &out, nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return r.requestWithRequester(req), nil
}

func (r requestRepo) ListByOffer(_ context.Context, offerID string) ([]*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Request{}
	for _, req := range r.requests {
		if req.OfferID == offerID {
			c := *req
			out = append(out, &c)
		}
	}
	sortRequestsNewestFirst(out)
	return out, nil
}

func (r requestRepo) ListByRequester(_ context.Context, requesterID string) ([]*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Request{}
	for _, req := range r.requests {
		if req.RequesterID == requesterID {
			c := *req
			c.Offer = r.offerView(r.offers[req.OfferID])
			out = append(out, &c)
		}
	}
	sortRequestsNewestFirst(out)
	return out, nil
}

func (r requestRepo) HasOpen(_ context.Context, offerID, requesterID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.OfferID == offerID && req.RequesterID == requesterID &&
			(req.Status == domain.RequestPending || req.Status == domain.RequestAccepted) {
			return true, nil
		}
	}
	return false, nil
}

func (r requestRepo) Cancel(_ context.Context, id string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}
	req.Status = domain.RequestCancelled
	req.UpdatedAt = r.tick()
	c := *req
	return &c, nil
}

// ---- views; callers hold mu ----

func (s *memStore) offerView(o *domain.Offer) *domain.Offer {
	c := *o
	c.Items = append([]domain.Item(nil), o.Items...)
	if owner, ok := s.users[o.OwnerID]; ok {
		c.Owner = &domain.UserSummary{ID: owner.ID, Name: owner.Name}
	}
	return &c
}

func (s *memStore) requestWithRequester(req *domain.Request) *domain.Request {
	c := *req
	if u, ok := s.users[req.RequesterID]; ok {
		c.Requester = u.Summary()
	}
	return &c
}

func sortOffersNewestFirst(offers []*domain.Offer) {
	sort.Slice(offers, func(i, j int) bool { return offers[i].CreatedAt.After(offers[j].CreatedAt) })
}

func sortRequestsNewestFirst(reqs []*domain.Request) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
}
