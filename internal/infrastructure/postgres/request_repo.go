package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// requestSelect joins the requester; use it only where the identity may be revealed.
const requestSelect = `
	SELECT rq.id, rq.offer_id, rq.requester_id, rq.message, rq.status,
	       rq.created_at, rq.updated_at, u.name, u.email
	FROM   requests rq
	JOIN   users u ON u.id = rq.requester_id`

const requestColumns = `id, offer_id, requester_id, message, status, created_at, updated_at`

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) (*domain.Request, error) {
	// Conditional insert: nothing is written if the offer left active since
	// the caller last looked at it.
	query := `
		INSERT INTO requests (offer_id, requester_id, message, status)
		SELECT $1::uuid, $2::uuid, $3::text, 'pending'
		WHERE  EXISTS (SELECT 1 FROM offers WHERE id = $1::uuid AND status = 'active')
		RETURNING ` + requestColumns

	created, err := scanRequest(r.pool.QueryRow(ctx, query, req.OfferID, req.RequesterID, req.Message))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateRequest
		}
		if errors.Is(err, domain.ErrRequestNotFound) {
			return nil, domain.ErrOfferNotActive
		}
		return nil, err
	}
	return created, nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	return scanRequestWithRequester(r.pool.QueryRow(ctx, requestSelect+` WHERE rq.id = $1`, id))
}

func (r *RequestRepository) ListByOffer(ctx context.Context, offerID string) ([]*domain.Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM   requests
		WHERE  offer_id = $1
		ORDER BY created_at DESC, id DESC`, offerID)
	if err != nil {
		return nil, fmt.Errorf("list requests by offer: %w", err)
	}
	defer rows.Close()

	requests := []*domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]*domain.Request, error) {
	query := `
		SELECT rq.id, rq.offer_id, rq.requester_id, rq.message, rq.status,
		       rq.created_at, rq.updated_at,
		       o.id, o.owner_id, o.items,
		       ST_Y(o.location::geometry), ST_X(o.location::geometry),
		       o.address, o.comuna, o.status, o.accepted_request_id,
		       o.created_at, o.updated_at, ou.name
		FROM   requests rq
		JOIN   offers o ON o.id = rq.offer_id
		JOIN   users ou ON ou.id = o.owner_id
		WHERE  rq.requester_id = $1
		ORDER BY rq.created_at DESC, rq.id DESC`

	rows, err := r.pool.Query(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests by requester: %w", err)
	}
	defer rows.Close()

	requests := []*domain.Request{}
	for rows.Next() {
		var (
			req       domain.Request
			o         domain.Offer
			ownerName string
		)
		err := rows.Scan(
			&req.ID, &req.OfferID, &req.RequesterID, &req.Message, &req.Status,
			&req.CreatedAt, &req.UpdatedAt,
			&o.ID, &o.OwnerID, &o.Items,
			&o.Location.Lat, &o.Location.Lng,
			&o.Location.Address, &o.Location.Comuna, &o.Status, &o.AcceptedRequestID,
			&o.CreatedAt, &o.UpdatedAt, &ownerName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan requester request: %w", err)
		}
		o.Owner = &domain.UserSummary{ID: o.OwnerID, Name: ownerName}
		req.Offer = &o
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}

func (r *RequestRepository) HasOpen(ctx context.Context, offerID, requesterID string) (bool, error) {
	var open bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM requests
			WHERE  offer_id = $1 AND requester_id = $2
			  AND  status IN ('pending', 'accepted')
		)`, offerID, requesterID).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("check open request: %w", err)
	}
	return open, nil
}

func (r *RequestRepository) Cancel(ctx context.Context, id string) (*domain.Request, error) {
	query := `
		UPDATE requests
		SET    status = 'cancelled', updated_at = NOW()
		WHERE  id = $1 AND status = 'pending'
		RETURNING ` + requestColumns

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, domain.ErrRequestNotFound) {
		return nil, domain.ErrRequestNotPending
	}
	return req, err
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	var req domain.Request
	err := row.Scan(
		&req.ID, &req.OfferID, &req.RequesterID, &req.Message, &req.Status,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	return &req, nil
}

func scanRequestWithRequester(row rowScanner) (*domain.Request, error) {
	var (
		req   domain.Request
		name  string
		email string
	)
	err := row.Scan(
		&req.ID, &req.OfferID, &req.RequesterID, &req.Message, &req.Status,
		&req.CreatedAt, &req.UpdatedAt, &name, &email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("scan request: %w", err)
	}
	req.Requester = &domain.UserSummary{ID: req.RequesterID, Name: name, Email: email}
	return &req, nil
}

// collectRequests drains rows produced by a RETURNING clause in requestSelect order.
func collectRequests(rows pgx.Rows) ([]*domain.Request, error) {
	defer rows.Close()

	requests := []*domain.Request{}
	for rows.Next() {
		req, err := scanRequestWithRequester(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
