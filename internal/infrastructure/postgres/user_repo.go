package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, is_active,
	activation_token_hash, activation_expires_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, is_active, activation_token_hash, activation_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Active,
		u.ActivationTokenHash,
		u.ActivationExpiresAt,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) Activate(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	// The WHERE clause makes the token single-use: the second caller matches nothing.
	query := `
		UPDATE users
		SET    is_active             = TRUE,
		       activation_token_hash = NULL,
		       activation_expires_at = NULL,
		       updated_at            = NOW()
		WHERE  activation_token_hash = $1
		  AND  activation_expires_at > $2
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, tokenHash, now))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrTokenInvalid
	}
	return u, err
}

func (r *UserRepository) ClearExpiredActivations(ctx context.Context, before time.Time, limit int) (int, error) {
	query := `
		UPDATE users
		SET    activation_token_hash = NULL,
		       activation_expires_at = NULL,
		       updated_at            = NOW()
		WHERE  id IN (
			SELECT id FROM users
			WHERE  activation_token_hash IS NOT NULL
			  AND  activation_expires_at <= $1
			LIMIT  $2
		)`

	tag, err := r.pool.Exec(ctx, query, before, limit)
	if err != nil {
		return 0, fmt.Errorf("clear expired activations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Active,
		&u.ActivationTokenHash, &u.ActivationExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
