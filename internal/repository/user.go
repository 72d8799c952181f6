package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
)

type UserRepository interface {
	// Create returns domain.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// Activate atomically claims an unexpired activation token: the user is
	// marked active and the token cleared, so a second call with the same
	// hash returns domain.ErrTokenInvalid.
	Activate(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)

	// ClearExpiredActivations drops up to limit activation tokens that expired
	// before the cutoff and returns how many were cleared.
	ClearExpiredActivations(ctx context.Context, before time.Time, limit int) (int, error)
}
