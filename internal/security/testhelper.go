package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"time"
)

// Test-only key pair, generated once per process. Exported helpers let other
// packages' tests mint real signed tokens without shipping key material in
// the repo.
var testKeys struct {
	once    sync.Once
	privPEM string
	pubPEM  string
	err     error
}

func testKeyPairPEM() (privPEM, pubPEM string, err error) {
	testKeys.once.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			testKeys.err = err
			return
		}
		privDER, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			testKeys.err = err
			return
		}
		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			testKeys.err = err
			return
		}
		testKeys.privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
		testKeys.pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	})
	return testKeys.privPEM, testKeys.pubPEM, testKeys.err
}

// NewTestTokenProvider returns a TokenProvider over the generated test key
// pair with sane TTLs. Tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTestTokenProviderTTL(15*time.Minute, 24*time.Hour)
}

// NewTestTokenProviderTTL is NewTestTokenProvider with explicit TTLs;
// negative TTLs produce already-expired tokens for expiry tests.
func NewTestTokenProviderTTL(accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	privPEM, pubPEM, err := testKeyPairPEM()
	if err != nil {
		return nil, err
	}
	signer, err := ParsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "test-issuer", "test-audience", accessTTL, refreshTTL), nil
}
