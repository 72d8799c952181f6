package domain

import "errors"

// ErrValidation is wrapped with a detail message, e.g.
// fmt.Errorf("%w: items must not be empty", ErrValidation).
var ErrValidation = errors.New("validation failed")

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not activated")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUnauthorized       = errors.New("unauthorized")
)

var (
	ErrOfferNotFound  = errors.New("offer not found")
	ErrOfferNotActive = errors.New("offer is not active")
	ErrNotOfferOwner  = errors.New("offer belongs to another user")
)

var (
	ErrRequestNotFound   = errors.New("request not found")
	ErrRequestNotPending = errors.New("request is not pending")
	ErrNotRequestOwner   = errors.New("request belongs to another user")
	ErrOwnOffer          = errors.New("cannot request your own offer")
	ErrDuplicateRequest  = errors.New("request for this offer already exists")
)
