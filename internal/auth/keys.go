package auth

import (
	"crypto/rsa"
	"fmt"
	"os"

	jwt "github.com/golang-jwt/jwt/v5"
)

// KeyProvider holds the RSA keypair used to sign and verify tokens.
// Keys are read once and never rotated for the life of the process.
type KeyProvider struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// NewKeyProvider wraps already parsed keys. Either may be nil.
func NewKeyProvider(private *rsa.PrivateKey, public *rsa.PublicKey) *KeyProvider {
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	return &KeyProvider{private: private, public: public}
}

// LoadKeys reads PEM encoded keys from disk. An empty privatePath yields a verify-only provider.
func LoadKeys(privatePath, publicPath string) (*KeyProvider, error) {
	var private *rsa.PrivateKey
	if privatePath != "" {
		raw, err := os.ReadFile(privatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read private key %s: %v", ErrKeyUnavailable, privatePath, err)
		}
		private, err = jwt.ParseRSAPrivateKeyFromPEM(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parse private key %s: %v", ErrKeyUnavailable, privatePath, err)
		}
	}

	raw, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read public key %s: %v", ErrKeyUnavailable, publicPath, err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key %s: %v", ErrKeyUnavailable, publicPath, err)
	}

	if private != nil && !private.PublicKey.Equal(public) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrKeyUnavailable)
	}

	return &KeyProvider{private: private, public: public}, nil
}

// PrivateKey returns the signing key.
func (k *KeyProvider) PrivateKey() (*rsa.PrivateKey, error) {
	if k == nil || k.private == nil {
		return nil, ErrKeyUnavailable
	}
	return k.private, nil
}

// PublicKey returns the verification key.
func (k *KeyProvider) PublicKey() (*rsa.PublicKey, error) {
	if k == nil || k.public == nil {
		return nil, ErrKeyUnavailable
	}
	return k.public, nil
}
