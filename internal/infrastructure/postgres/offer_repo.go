package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// offerSelect yields the columns scanOffer expects, with the owner joined.
const offerSelect = `
	SELECT o.id, o.owner_id, o.items,
	       ST_Y(o.location::geometry), ST_X(o.location::geometry),
	       o.address, o.comuna, o.status, o.accepted_request_id,
	       o.created_at, o.updated_at, u.name
	FROM   offers o
	JOIN   users u ON u.id = o.owner_id`

type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) (*domain.Offer, error) {
	query := `
		WITH inserted AS (
			INSERT INTO offers (owner_id, items, location, address, comuna, status)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6, $7)
			RETURNING *
		)
		SELECT o.id, o.owner_id, o.items,
		       ST_Y(o.location::geometry), ST_X(o.location::geometry),
		       o.address, o.comuna, o.status, o.accepted_request_id,
		       o.created_at, o.updated_at, u.name
		FROM   inserted o
		JOIN   users u ON u.id = o.owner_id`

	row := r.pool.QueryRow(ctx, query,
		offer.OwnerID,
		offer.Items,
		offer.Location.Lng,
		offer.Location.Lat,
		offer.Location.Address,
		offer.Location.Comuna,
		domain.OfferActive,
	)
	return scanOffer(row)
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	return scanOffer(r.pool.QueryRow(ctx, offerSelect+` WHERE o.id = $1`, id))
}

func (r *OfferRepository) ListActive(ctx context.Context) ([]*domain.Offer, error) {
	rows, err := r.pool.Query(ctx,
		offerSelect+` WHERE o.status = 'active' ORDER BY o.created_at DESC, o.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active offers: %w", err)
	}
	defer rows.Close()

	offers := []*domain.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *OfferRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Offer, error) {
	// Only the accepted request's requester is joined; other requesters stay unloaded.
	query := `
		SELECT o.id, o.owner_id, o.items,
		       ST_Y(o.location::geometry), ST_X(o.location::geometry),
		       o.address, o.comuna, o.status, o.accepted_request_id,
		       o.created_at, o.updated_at, u.name,
		       ar.message, ar.status, ar.created_at, ar.updated_at,
		       ru.id, ru.name, ru.email
		FROM   offers o
		JOIN   users u ON u.id = o.owner_id
		LEFT JOIN requests ar ON ar.id = o.accepted_request_id
		LEFT JOIN users ru ON ru.id = ar.requester_id
		WHERE  o.owner_id = $1
		ORDER BY o.created_at DESC, o.id DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list offers by owner: %w", err)
	}
	defer rows.Close()

	offers := []*domain.Offer{}
	for rows.Next() {
		var (
			o         domain.Offer
			ownerName string
			arMessage *string
			arStatus  *string
			arCreated *time.Time
			arUpdated *time.Time
			reqID     *string
			reqName   *string
			reqEmail  *string
		)
		err := rows.Scan(
			&o.ID, &o.OwnerID, &o.Items,
			&o.Location.Lat, &o.Location.Lng,
			&o.Location.Address, &o.Location.Comuna, &o.Status, &o.AcceptedRequestID,
			&o.CreatedAt, &o.UpdatedAt, &ownerName,
			&arMessage, &arStatus, &arCreated, &arUpdated,
			&reqID, &reqName, &reqEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan owner offer: %w", err)
		}
		o.Owner = &domain.UserSummary{ID: o.OwnerID, Name: ownerName}

		if o.AcceptedRequestID != nil && arStatus != nil && reqID != nil {
			o.AcceptedRequest = &domain.Request{
				ID:          *o.AcceptedRequestID,
				OfferID:     o.ID,
				RequesterID: *reqID,
				Requester:   &domain.UserSummary{ID: *reqID, Name: deref(reqName), Email: deref(reqEmail)},
				Message:     deref(arMessage),
				Status:      domain.RequestStatus(*arStatus),
				CreatedAt:   derefTime(arCreated),
				UpdatedAt:   derefTime(arUpdated),
			}
		}
		offers = append(offers, &o)
	}
	return offers, rows.Err()
}

func (r *OfferRepository) Nearby(ctx context.Context, q repository.NearbyQuery) ([]*domain.NearbyOffer, error) {
	// use_spheroid = false: great-circle distance on a sphere.
	query := `
		WITH center AS (
			SELECT ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography AS pt
		)
		SELECT o.id, o.owner_id, o.items,
		       ST_Y(o.location::geometry), ST_X(o.location::geometry),
		       o.address, o.comuna, o.status, o.accepted_request_id,
		       o.created_at, o.updated_at, u.name,
		       ST_Distance(o.location, center.pt, false) / 1000.0 AS distance_km,
		       EXISTS (
		           SELECT 1 FROM requests rq
		           WHERE  rq.offer_id = o.id
		             AND  rq.requester_id = $4::uuid
		             AND  rq.status = 'pending'
		       ) AS requested_by_me
		FROM   offers o
		JOIN   users u ON u.id = o.owner_id
		CROSS JOIN center
		WHERE  o.status = 'active'
		  AND  ST_DWithin(o.location, center.pt, $3 * 1000.0, false)
		ORDER BY distance_km ASC, o.created_at DESC`

	rows, err := r.pool.Query(ctx, query, q.Center.Lng, q.Center.Lat, q.RadiusKm, q.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("nearby offers: %w", err)
	}
	defer rows.Close()

	result := []*domain.NearbyOffer{}
	for rows.Next() {
		var (
			o         domain.Offer
			ownerName string
			n         domain.NearbyOffer
		)
		err := rows.Scan(
			&o.ID, &o.OwnerID, &o.Items,
			&o.Location.Lat, &o.Location.Lng,
			&o.Location.Address, &o.Location.Comuna, &o.Status, &o.AcceptedRequestID,
			&o.CreatedAt, &o.UpdatedAt, &ownerName,
			&n.DistanceKm, &n.RequestedByMe,
		)
		if err != nil {
			return nil, fmt.Errorf("scan nearby offer: %w", err)
		}
		o.Owner = &domain.UserSummary{ID: o.OwnerID, Name: ownerName}
		n.Offer = &o
		result = append(result, &n)
	}
	return result, rows.Err()
}

func (r *OfferRepository) Cancel(ctx context.Context, offerID string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin cancel: %w", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, `
		UPDATE offers
		SET    status = 'cancelled', updated_at = NOW()
		WHERE  id = $1 AND status = 'active'`, offerID)
	if err != nil {
		return 0, fmt.Errorf("cancel offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrOfferNotActive
	}

	tag, err = tx.Exec(ctx, `
		UPDATE requests
		SET    status = 'cancelled', updated_at = NOW()
		WHERE  offer_id = $1 AND status = 'pending'`, offerID)
	if err != nil {
		return 0, fmt.Errorf("cascade cancel requests: %w", err)
	}
	cascaded := int(tag.RowsAffected())

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit cancel: %w", err)
	}
	return cascaded, nil
}

func (r *OfferRepository) Accept(ctx context.Context, offerID, requestID string) (*repository.AcceptResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept: %w", err)
	}
	defer rollback(ctx, tx)

	// Row lock serialises concurrent accepts and cancels on the same offer.
	var status domain.OfferStatus
	err = tx.QueryRow(ctx, `SELECT status FROM offers WHERE id = $1 FOR UPDATE`, offerID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, fmt.Errorf("lock offer: %w", err)
	}
	if status != domain.OfferActive {
		return nil, domain.ErrOfferNotActive
	}

	tag, err := tx.Exec(ctx, `
		UPDATE requests
		SET    status = 'accepted', updated_at = NOW()
		WHERE  id = $1 AND offer_id = $2 AND status = 'pending'`, requestID, offerID)
	if err != nil {
		return nil, fmt.Errorf("accept request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1 AND offer_id = $2)`,
			requestID, offerID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check request: %w", err)
		}
		if !exists {
			return nil, domain.ErrRequestNotFound
		}
		return nil, domain.ErrRequestNotPending
	}

	rows, err := tx.Query(ctx, `
		UPDATE requests rq
		SET    status = 'rejected', updated_at = NOW()
		FROM   users u
		WHERE  rq.offer_id = $1
		  AND  rq.id <> $2
		  AND  rq.status = 'pending'
		  AND  u.id = rq.requester_id
		RETURNING rq.id, rq.offer_id, rq.requester_id, rq.message, rq.status,
		          rq.created_at, rq.updated_at, u.name, u.email`, offerID, requestID)
	if err != nil {
		return nil, fmt.Errorf("reject siblings: %w", err)
	}
	rejected, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}

	tag, err = tx.Exec(ctx, `
		UPDATE offers
		SET    status = 'assigned', accepted_request_id = $2, updated_at = NOW()
		WHERE  id = $1 AND status = 'active'`, offerID, requestID)
	if err != nil {
		return nil, fmt.Errorf("assign offer: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, domain.ErrOfferNotActive
	}

	accepted, err := scanRequestWithRequester(tx.QueryRow(ctx, requestSelect+` WHERE rq.id = $1`, requestID))
	if err != nil {
		return nil, err
	}
	offer, err := scanOffer(tx.QueryRow(ctx, offerSelect+` WHERE o.id = $1`, offerID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}

	offer.AcceptedRequest = accepted
	return &repository.AcceptResult{Offer: offer, Accepted: accepted, Rejected: rejected}, nil
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var (
		o         domain.Offer
		ownerName string
	)
	err := row.Scan(
		&o.ID, &o.OwnerID, &o.Items,
		&o.Location.Lat, &o.Location.Lng,
		&o.Location.Address, &o.Location.Comuna, &o.Status, &o.AcceptedRequestID,
		&o.CreatedAt, &o.UpdatedAt, &ownerName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, fmt.Errorf("scan offer: %w", err)
	}
	o.Owner = &domain.UserSummary{ID: o.OwnerID, Name: ownerName}
	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
