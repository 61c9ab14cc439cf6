package store

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 14 * 24 * time.Hour

type tokenClaims struct {
	RecordID     string `json:"id"`
	CollectionID string `json:"collectionId"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

type tokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (s *tokenSigner) issue(collection, recordID string) (string, error) {
	now := s.now()
	claims := tokenClaims{
		RecordID:     recordID,
		CollectionID: collection,
		Type:         "auth",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify returns the record id of a valid auth token.
func (s *tokenSigner) verify(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty token")
	}
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if claims.Type != "auth" || claims.RecordID == "" {
		return "", errors.New("not an auth token")
	}
	return claims.RecordID, nil
}
