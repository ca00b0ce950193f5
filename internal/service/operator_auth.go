package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = time.Hour
	tokenIssuer     = "enclosure-gateway"
	minPasswordLen  = 6
)

var (
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidUsername    = errors.New("username is empty")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid operator token")
)

// OperatorClaims identify the operator behind a command request.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

// OperatorAuth registers operators and issues the bearer tokens that guard
// the command route. Tokens are HS256, signed with the configured key and
// valid for the configured TTL measured on the injected clock.
type OperatorAuth struct {
	operators repository.Operators
	key       []byte
	ttl       time.Duration
	clock     Clock
	log       *logger.Logger
}

type OperatorAuthOptions struct {
	SigningKey string
	TokenTTL   time.Duration
	Clock      Clock
}

func NewOperatorAuth(operators repository.Operators, opts OperatorAuthOptions, log *logger.Logger) *OperatorAuth {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OperatorAuth{
		operators: operators,
		key:       []byte(opts.SigningKey),
		ttl:       opts.TokenTTL,
		clock:     opts.Clock,
		log:       log,
	}
}

// normalizeUsername makes operator names case-insensitive.
func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register stores a new operator with a bcrypt hash of password.
func (a *OperatorAuth) Register(ctx context.Context, username, password string) (int, error) {
	name := normalizeUsername(username)
	if name == "" {
		return 0, ErrInvalidUsername
	}
	if len(strings.TrimSpace(password)) < minPasswordLen {
		return 0, fmt.Errorf("%w: need at least %d characters", ErrWeakPassword, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := a.operators.Create(ctx, name, string(hash))
	if err != nil {
		return 0, err
	}
	a.log.Infow("operator_registered", "operator", name, "id", id)
	return id, nil
}

// SignIn checks the credentials and returns a token for the operator.
// Unknown names and wrong passwords both yield ErrInvalidCredentials.
func (a *OperatorAuth) SignIn(ctx context.Context, username, password string) (string, error) {
	name := normalizeUsername(username)
	op, err := a.operators.GetByUsername(ctx, name)
	if err != nil {
		return "", err
	}
	if op == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.issue(op.ID, op.Username)
}

func (a *OperatorAuth) issue(id int, name string) (string, error) {
	now := a.clock.Now()
	claims := &OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Operator: name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

// Verify validates a token and returns the operator id it was issued to.
func (a *OperatorAuth) Verify(token string) (int, error) {
	claims := &OperatorClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}
