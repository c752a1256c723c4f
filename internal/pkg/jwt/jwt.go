package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// JSONWebToken signs and verifies RS256 tokens issued by the identity
// provider. The subject claim is the stable customer id; the engine treats
// it as opaque.
type JSONWebToken struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewJSONWebToken(privateKeyPEM, publicKeyPEM []byte) *JSONWebToken {
	j := &JSONWebToken{}

	if len(privateKeyPEM) > 0 {
		if pk, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM); err == nil {
			j.privateKey = pk
		}
	}
	if len(publicKeyPEM) > 0 {
		if pub, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM); err == nil {
			j.publicKey = pub
		}
	}

	return j
}

func (j *JSONWebToken) Sign(claims Claims, ttl time.Duration) (string, error) {
	if j.privateKey == nil {
		return "", fmt.Errorf("jwt: signing key is not configured")
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.privateKey)
}

func (j *JSONWebToken) Parse(tokenString string) (*Claims, error) {
	if j.publicKey == nil {
		return nil, fmt.Errorf("jwt: verification key is not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("jwt: unexpected signing method %v", t.Header["alg"])
		}
		return j.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("jwt: token is not valid")
	}

	return claims, nil
}
