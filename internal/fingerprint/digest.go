package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/text/unicode/norm"
)

// Digest returns the content fingerprint of text: the lowercase hex SHA-256
// of its NFC normal form. The result is 64 bytes, which fits every hash
// bound in the registry.
//
// NFC normalization makes visually identical text (precomposed vs combining
// accents) hash the same.
func Digest(text string) string {
	sum := sha256.Sum256([]byte(norm.NFC.String(text)))
	return hex.EncodeToString(sum[:])
}

// DigestReader fingerprints raw bytes without normalization. Used for
// binary documents such as PDFs.
func DigestReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
