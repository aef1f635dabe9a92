// internal/utils/jwt.go
package utils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// LoginKeys holds the ES256 key pair used to sign self-service login
// tokens. The public half is published so downstream services can verify
// tokens without calling back.
type LoginKeys struct {
	private *ecdsa.PrivateKey
}

// LoadOrGenerateLoginKeys parses a PEM-encoded EC private key, or generates
// an ephemeral P-256 key when the PEM is empty. Ephemeral keys invalidate
// outstanding login links on restart, which is acceptable outside
// production and flagged by config validation there.
func LoadOrGenerateLoginKeys(pemData string) (*LoginKeys, error) {
	if pemData == "" {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate login key: %w", err)
		}
		return &LoginKeys{private: key}, nil
	}

	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("login key PEM contains no key block")
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		// PKCS#8 is the other encoding in circulation.
		parsed, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if pkcs8Err != nil {
			return nil, fmt.Errorf("failed to parse login key: %w", err)
		}
		ecKey, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("login key is not an EC key")
		}
		key = ecKey
	}

	return &LoginKeys{private: key}, nil
}

// Sign issues a login token whose subject is the registration id the holder
// may act on. Tokens expire after ttl.
func (k *LoginKeys) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(k.private)
	if err != nil {
		return "", fmt.Errorf("failed to sign login token: %w", err)
	}

	return signed, nil
}

// Verify checks signature and expiry and returns the token's subject.
func (k *LoginKeys) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return &k.private.PublicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid login token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid login token claims")
	}

	return claims.Subject, nil
}

// PublicKeyPEM exports the verification key in PKIX PEM form.
func (k *LoginKeys) PublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&k.private.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to encode public key: %w", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
