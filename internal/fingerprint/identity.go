package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IdentitySize is the length of an author identity (an ed25519 public key).
const IdentitySize = 32

// KeySize is the length of a derived storage key.
const KeySize = sha256.Size

// Identity is an opaque, fixed-length author identity.
type Identity [IdentitySize]byte

// ParseIdentity decodes a hex-encoded identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	if err := decodeFixedHex(id[:], s); err != nil {
		return Identity{}, fmt.Errorf("parse identity: %w", err)
	}
	return id, nil
}

// String returns the lowercase hex encoding.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the identity is all zero bytes.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Key is a derived storage key.
type Key [KeySize]byte

// reservedKeyPrefix marks keys kept for store metadata. Record keys never
// start with it.
const reservedKeyPrefix = 0xFF

// ParseKey decodes a hex-encoded key.
func ParseKey(s string) (Key, error) {
	var k Key
	if err := decodeFixedHex(k[:], s); err != nil {
		return Key{}, fmt.Errorf("parse key: %w", err)
	}
	return k, nil
}

// String returns the lowercase hex encoding.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Reserved reports whether k falls in the range kept for store metadata.
func (k Key) Reserved() bool {
	return k[0] == reservedKeyPrefix
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Proof is the disambiguation byte chosen during derivation.
type Proof uint8

func decodeFixedHex(dst []byte, s string) error {
	if len(s) != hex.EncodedLen(len(dst)) {
		return fmt.Errorf("want %d hex characters, got %d", hex.EncodedLen(len(dst)), len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return err
	}
	return nil
}
