package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"testing"
)

// NewJWK generates a small RSA key and returns it as JWK JSON, the same shape
// a wallet export has.
func NewJWK(t *testing.T) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	key.Precompute()

	enc := func(b *big.Int) string { return base64.RawURLEncoding.EncodeToString(b.Bytes()) }
	jwk := map[string]string{
		"kty": "RSA",
		"n":   enc(key.N),
		"e":   enc(big.NewInt(int64(key.E))),
		"d":   enc(key.D),
		"p":   enc(key.Primes[0]),
		"q":   enc(key.Primes[1]),
		"dp":  enc(key.Precomputed.Dp),
		"dq":  enc(key.Precomputed.Dq),
		"qi":  enc(key.Precomputed.Qinv),
	}
	data, err := json.Marshal(jwk)
	if err != nil {
		t.Fatalf("encoding JWK: %v", err)
	}
	return data
}
