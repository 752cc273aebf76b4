package jwt

import (
	"errors"
	"strconv"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// Symmetric implements JWT signing and verification using an HMAC secret.
type Symmetric struct {
	secret     []byte
	issuer     string
	audiences  []string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clocker
	uuid       generator
}

// NewHS512 constructs a Symmetric JWT implementation using HS512.
func NewHS512(cfg Config) (*Symmetric, error) {
	if len(cfg.Secret) < 64 {
		return nil, ErrSigningKeyTooShort
	}

	refreshTTL := cfg.RefreshTTL
	if refreshTTL < cfg.AccessTTL {
		refreshTTL = cfg.AccessTTL
	}

	return &Symmetric{
		secret:     cfg.Secret,
		issuer:     cfg.Issuer,
		audiences:  cfg.Audiences,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: refreshTTL,
		clock:      cfg.Clock,
		uuid:       cfg.UUID,
	}, nil
}

// Issue signs an access and a refresh token for sub.
func (s *Symmetric) Issue(sub Subject) (Pair, error) {
	now := s.clock.Now()

	access, err := s.sign(sub, KindAccess, now, now.Add(s.accessTTL))
	if err != nil {
		return Pair{}, err
	}

	refresh, err := s.sign(sub, KindRefresh, now, now.Add(s.refreshTTL))
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

func (s *Symmetric) sign(sub Subject, kind Kind, now, exp time.Time) (string, error) {
	return libJWT.
		NewWithClaims(libJWT.SigningMethodHS512, Claims{
			RegisteredClaims: libJWT.RegisteredClaims{
				ID:        s.uuid.Generate(),
				Subject:   strconv.FormatInt(sub.UserID, 10),
				Issuer:    s.issuer,
				Audience:  s.audiences,
				IssuedAt:  libJWT.NewNumericDate(now),
				NotBefore: libJWT.NewNumericDate(now),
				ExpiresAt: libJWT.NewNumericDate(exp),
			},
			UserID:   sub.UserID,
			Username: sub.Username,
			Role:     sub.Role,
			Kind:     kind,
		}).
		SignedString(s.secret)
}

// Verify parses and validates a JWT string of the expected kind.
func (s *Symmetric) Verify(tokenStr string, kind Kind) (Claims, error) {
	var claims Claims

	token, err := libJWT.ParseWithClaims(tokenStr, &claims,
		func(t *libJWT.Token) (any, error) {
			if t.Method != libJWT.SigningMethodHS512 {
				return nil, ErrInvalidSigningMethod
			}
			return s.secret, nil
		},
		libJWT.WithIssuer(s.issuer),
		libJWT.WithAudience(s.audiences...),
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
		libJWT.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, libJWT.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if claims.Kind != kind {
		return Claims{}, ErrWrongTokenKind
	}

	return claims, nil
}
