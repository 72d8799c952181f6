package domain

import (
	"time"
)

// AnonymousRequesterName is shown to offer owners in place of a requester's
// identity until that requester's request has been accepted.
const AnonymousRequesterName = "anonymous requester"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool

	// Only the SHA-256 of the activation token is stored; both are cleared
	// once the account is confirmed.
	ActivationTokenHash *string
	ActivationExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSummary is the identity attached to offers and requests. Email is left
// empty wherever the contact address must not leak.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func AnonymousRequester() *UserSummary {
	return &UserSummary{Name: AnonymousRequesterName}
}
