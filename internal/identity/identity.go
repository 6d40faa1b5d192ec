package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	minPasswordLength  = 8
	DefaultTokenTTL    = 24 * time.Hour
	invalidCredentials = "invalid email or password"
)

// UserStore is implemented by database.UserRepository
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Provider issues and checks HS256 session tokens for stored users
type Provider struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewProvider(users UserStore, secret string, ttl time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Provider{users: users, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (p *Provider) CreateUser(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.New(apperr.InvalidInput, "a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Newf(apperr.InvalidInput, "password must be at least %d characters", minPasswordLength)
	}

	if _, err := p.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.Conflict, "user with this email already exists")
	} else if apperr.KindOf(err) != apperr.NotFound {
		return nil, err
	}

	user := &models.User{Email: email, Name: strings.TrimSpace(name)}
	if err := user.HashPassword(password); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyCredentials returns a fresh session. Unknown email and wrong
// password produce the same error.
func (p *Provider) VerifyCredentials(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, apperr.New(apperr.Unauthorized, invalidCredentials)
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, apperr.New(apperr.Unauthorized, invalidCredentials)
	}

	token, expiresAt, err := p.issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (p *Provider) GetUser(ctx context.Context, id string) (*models.User, error) {
	return p.users.Get(ctx, id)
}

func (p *Provider) DeleteUser(ctx context.Context, id string) error {
	return p.users.Delete(ctx, id)
}

func (p *Provider) issue(user *models.User) (string, time.Time, error) {
	now := p.now()
	expiresAt := now.Add(p.ttl)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.Internal, "failed to sign token", err)
	}
	return token, expiresAt, nil
}

func (p *Provider) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.Unauthorized, "invalid or expired token", err)
	}
	if claims.UserID == "" {
		return nil, apperr.New(apperr.Unauthorized, "token has no subject")
	}
	return claims, nil
}
