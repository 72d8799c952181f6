package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/notify"
	"github.com/ErlanBelekov/recircular-api/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultJWTTTL        = 7 * 24 * time.Hour
	defaultActivationTTL = 24 * time.Hour

	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
)

type AuthConfig struct {
	JWTSecret     []byte
	JWTTTL        time.Duration
	ActivationTTL time.Duration
	// BackendURL is the public base of this API; confirmation links point at it.
	BackendURL string
	BcryptCost int
	// ExposeConfirmURL returns the activation link in the register response.
	// Never enable in production.
	ExposeConfirmURL bool
}

type AuthUsecase struct {
	users    repository.UserRepository
	notifier notify.Dispatcher
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthUsecase(users repository.UserRepository, notifier notify.Dispatcher, cfg AuthConfig) *AuthUsecase {
	if cfg.JWTTTL == 0 {
		cfg.JWTTTL = defaultJWTTTL
	}
	if cfg.ActivationTTL == 0 {
		cfg.ActivationTTL = defaultActivationTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	return &AuthUsecase{
		users:    users,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type RegisterResult struct {
	User *domain.User
	// ConfirmURL is empty unless AuthConfig.ExposeConfirmURL is set.
	ConfirmURL string
}

// Register creates an inactive account and emails its activation link.
func (u *AuthUsecase) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	name := strings.TrimSpace(input.Name)
	emailAddr := NormalizeEmail(input.Email)
	if name == "" || emailAddr == "" {
		return nil, fmt.Errorf("%w: name and email are required", domain.ErrValidation)
	}
	if n := len(input.Password); n < minPasswordLen || n > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d to %d bytes", domain.ErrValidation, minPasswordLen, maxPasswordLen)
	}

	if _, err := u.users.FindByEmail(ctx, emailAddr); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), u.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rawToken, tokenHash, err := newActivationToken()
	if err != nil {
		return nil, err
	}
	expiresAt := u.now().Add(u.cfg.ActivationTTL)

	user, err := u.users.Create(ctx, &domain.User{
		Name:                name,
		Email:               emailAddr,
		PasswordHash:        string(hash),
		ActivationTokenHash: &tokenHash,
		ActivationExpiresAt: &expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	link := u.cfg.BackendURL + "/api/auth/confirm/" + rawToken
	u.notifier.Dispatch(ctx, notify.Activation(user.Email, user.Name, link, u.cfg.ActivationTTL.String()))

	result := &RegisterResult{User: user}
	if u.cfg.ExposeConfirmURL {
		result.ConfirmURL = link
	}
	return result, nil
}

// Confirm hashes the raw token and atomically claims it.
func (u *AuthUsecase) Confirm(ctx context.Context, rawToken string) (*domain.User, error) {
	if rawToken == "" {
		return nil, domain.ErrTokenInvalid
	}
	user, err := u.users.Activate(ctx, hashToken(rawToken), u.now())
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("activate user: %w", err)
	}
	return user, nil
}

type LoginResult struct {
	Token string
	User  *domain.User
}

// Login checks the password before the active flag, so an inactive account
// is only disclosed to someone who knows its password.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*LoginResult, error) {
	user, err := u.users.FindByEmail(ctx, NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrAccountInactive
	}

	now := u.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(u.cfg.JWTTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(u.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}
	return &LoginResult{Token: signed, User: user}, nil
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func newActivationToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = io.ReadFull(rand.Reader, buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}
