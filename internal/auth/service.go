package auth

import (
	"context"
	"errors"
	"time"

	"papertrade/internal/model"
	"papertrade/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrNoKeysAvailable    = errors.New("no wallet keys available")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// KeyPool hands out pre-generated deposit wallets.
type KeyPool interface {
	Take(ctx context.Context) (store.Key, error)
}

// Service handles registration and login. Registration consumes one
// wallet key from the pool; the key is gone from the pool even if a
// later save fails, which matches the one-key-per-signup guarantee.
type Service struct {
	store  store.Store
	keys   KeyPool
	guard  *store.Guard
	issuer string
	secret []byte
	ttl    time.Duration
}

func NewService(st store.Store, keys KeyPool, issuer string, secret []byte, ttl time.Duration) *Service {
	return &Service{
		store:  st,
		keys:   keys,
		guard:  store.NewGuard(),
		issuer: issuer,
		secret: secret,
		ttl:    ttl,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password required")
	}
	unlock := s.guard.Lock(username)
	defer unlock()

	accounts, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if _, ok := accounts[username]; ok {
		return ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	key, err := s.keys.Take(ctx)
	if err != nil {
		if errors.Is(err, store.ErrPoolEmpty) {
			return ErrNoKeysAvailable
		}
		return err
	}
	acc := model.NewAccount(username, string(hash), key.Address, key.PrivateKey)
	return s.store.SaveAccount(ctx, username, acc)
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	accounts, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	acc, ok := accounts[username]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.signToken(username)
}

func (s *Service) signToken(username string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Issuer != s.issuer {
		return "", errors.New("invalid issuer")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid subject")
	}
	return claims.Subject, nil
}
