package receipt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired receipt token")

// Purpose limits what a signed handle can be used for.
type Purpose string

const (
	PurposeUpload   Purpose = "upload"
	PurposeDownload Purpose = "download"
)

// Claims is the payload of a signed receipt handle. Subject is the object
// key.
type Claims struct {
	Purpose     Purpose `json:"purpose"`
	ContentType string  `json:"content_type,omitempty"`
	MaxBytes    int64   `json:"max_bytes,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and checks HS256 handles for receipt objects.
type Signer struct {
	secretKey []byte
	now       func() time.Time
}

func NewSigner(secretKey string) *Signer {
	return &Signer{secretKey: []byte(secretKey), now: time.Now}
}

// Sign returns a token for claims valid for ttl, and its expiry.
func (s *Signer) Sign(claims Claims, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.NotBefore = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign receipt token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses token and checks that it was issued for purpose.
func (s *Signer) Verify(tokenString string, purpose Purpose) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: token is for %s", ErrInvalidToken, claims.Purpose)
	}
	if !validKey(claims.Subject) {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidToken)
	}
	return claims, nil
}
