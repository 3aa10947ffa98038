package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// Domain separators for derived keys.
// Version suffix enables future algorithm migration.
const (
	DomainPaper   = "ipp/paper/v1"
	DomainSection = "ipp/section/v1"
)

// Field bounds, in bytes.
const (
	MaxPaperHashLen   = 64
	MaxSectionTypeLen = 32
	MaxContentHashLen = 64
)

// ErrNoViableProof is returned when every proof value yields a reserved key.
var ErrNoViableProof = errors.New("no proof yields an unreserved key")

// BoundsError reports a field that exceeds its length limit.
type BoundsError struct {
	Field string
	Len   int
	Max   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s is %d bytes, max %d", e.Field, e.Len, e.Max)
}

func checkLen(field, value string, max int) error {
	if len(value) > max {
		return &BoundsError{Field: field, Len: len(value), Max: max}
	}
	return nil
}

// CheckPaperHash validates the paper hash bound.
func CheckPaperHash(paperHash string) error {
	return checkLen("paper_hash", paperHash, MaxPaperHashLen)
}

// CheckSectionFields validates the section type and content hash bounds.
func CheckSectionFields(sectionType, contentHash string) error {
	if err := checkLen("section_type", sectionType, MaxSectionTypeLen); err != nil {
		return err
	}
	return checkLen("content_hash", contentHash, MaxContentHashLen)
}

// DerivePaperKey derives the key of the paper registered by author under
// paperHash.
func DerivePaperKey(author Identity, paperHash string) (Key, Proof, error) {
	if err := CheckPaperHash(paperHash); err != nil {
		return Key{}, 0, err
	}
	return derive(DomainPaper, author[:], []byte(paperHash))
}

// DeriveSectionKey derives the key of the section registered by author
// under (sectionType, contentHash).
func DeriveSectionKey(author Identity, sectionType, contentHash string) (Key, Proof, error) {
	if err := CheckSectionFields(sectionType, contentHash); err != nil {
		return Key{}, 0, err
	}
	return derive(DomainSection, author[:], []byte(sectionType), []byte(contentHash))
}

// ReproducePaperKey recomputes a paper key from its fields and stored proof.
func ReproducePaperKey(author Identity, paperHash string, proof Proof) (Key, error) {
	if err := CheckPaperHash(paperHash); err != nil {
		return Key{}, err
	}
	return candidate(DomainPaper, proof, author[:], []byte(paperHash)), nil
}

// ReproduceSectionKey recomputes a section key from its fields and stored
// proof.
func ReproduceSectionKey(author Identity, sectionType, contentHash string, proof Proof) (Key, error) {
	if err := CheckSectionFields(sectionType, contentHash); err != nil {
		return Key{}, err
	}
	return candidate(DomainSection, proof, author[:], []byte(sectionType), []byte(contentHash)), nil
}

// derive searches proofs from 255 down to 0 and returns the first key
// outside the reserved range.
func derive(domain string, fields ...[]byte) (Key, Proof, error) {
	for p := 255; p >= 0; p-- {
		proof := Proof(p)
		k := candidate(domain, proof, fields...)
		if !k.Reserved() {
			return k, proof, nil
		}
	}
	return Key{}, 0, ErrNoViableProof
}

func candidate(domain string, proof Proof, fields ...[]byte) Key {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator between domain and fields
	var lenBuf [4]byte
	for _, f := range fields {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f)))
		h.Write(lenBuf[:])
		h.Write(f)
	}
	h.Write([]byte{byte(proof)})

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}
