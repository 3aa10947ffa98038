package server

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/secfit/ip-protector/internal/fingerprint"
)

// Headers read by SignatureIdentity.
const (
	HeaderAuthorKey = "X-Author-Key"
	HeaderSignature = "X-Signature"
)

var (
	// ErrMissingCredentials is returned when a write carries no identity headers.
	ErrMissingCredentials = errors.New("missing " + HeaderAuthorKey + " or " + HeaderSignature)

	// ErrBadSignature is returned when the signature does not cover the body.
	ErrBadSignature = errors.New("signature verification failed")
)

// IdentityProvider authenticates the caller of a write request.
type IdentityProvider interface {
	// Identify returns the caller's identity. body is the raw request body.
	Identify(r *http.Request, body []byte) (fingerprint.Identity, error)
}

// SignatureIdentity authenticates a request by an ed25519 signature over its
// raw body. The public key is the author identity.
type SignatureIdentity struct{}

func (SignatureIdentity) Identify(r *http.Request, body []byte) (fingerprint.Identity, error) {
	keyHex := r.Header.Get(HeaderAuthorKey)
	sigHex := r.Header.Get(HeaderSignature)
	if keyHex == "" || sigHex == "" {
		return fingerprint.Identity{}, ErrMissingCredentials
	}

	id, err := fingerprint.ParseIdentity(keyHex)
	if err != nil {
		return fingerprint.Identity{}, fmt.Errorf("%s: %w", HeaderAuthorKey, err)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fingerprint.Identity{}, fmt.Errorf("%s: want %d hex-encoded bytes", HeaderSignature, ed25519.SignatureSize)
	}
	if !ed25519.Verify(ed25519.PublicKey(id[:]), body, sig) {
		return fingerprint.Identity{}, ErrBadSignature
	}
	return id, nil
}

// Sign produces the headers SignatureIdentity expects for body.
func Sign(priv ed25519.PrivateKey, body []byte) http.Header {
	h := http.Header{}
	h.Set(HeaderAuthorKey, hex.EncodeToString(priv.Public().(ed25519.PublicKey)))
	h.Set(HeaderSignature, hex.EncodeToString(ed25519.Sign(priv, body)))
	return h
}
