package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// tokenIssuer signs and verifies HS256 access tokens whose subject is the user id.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// newTokenIssuer returns an issuer for secret. A zero ttl issues tokens without expiry.
func newTokenIssuer(secret []byte, ttl time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{secret: secret, ttl: ttl, now: now}
}

func (ti *tokenIssuer) issue(userID int64) (string, error) {
	now := ti.now()
	claims := jwt.RegisteredClaims{
		Subject:  strconv.FormatInt(userID, 10),
		IssuedAt: jwt.NewNumericDate(now),
		ID:       uuid.NewString(),
	}
	if ti.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ti.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// verify checks the signature of tokenStr, then its time claims against the
// issuer's clock, and returns the user id it was issued for.
func (ti *tokenIssuer) verify(tokenStr string) (int64, error) {
	if tokenStr == "" {
		return 0, errInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	now := ti.now()
	switch {
	case !claims.VerifyExpiresAt(now, false):
		return 0, fmt.Errorf("%w: token is expired", errInvalidToken)
	case !claims.VerifyNotBefore(now, false):
		return 0, fmt.Errorf("%w: token is not valid yet", errInvalidToken)
	case !claims.VerifyIssuedAt(now, false):
		return 0, fmt.Errorf("%w: token used before issued", errInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", errInvalidToken, claims.Subject)
	}
	return userID, nil
}
