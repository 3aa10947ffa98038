// Package record defines the registry's immutable record types and their
// storage encoding.
//
// An encoded record is an 8-byte discriminator followed by a JSON body. The
// discriminator tells a paper from a section when both share one key space.
package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/secfit/ip-protector/internal/fingerprint"
)

// Kind names a record type.
type Kind string

const (
	KindPaper   Kind = "paper"
	KindSection Kind = "section"
)

// DiscriminatorSize is the length of the type tag prefixed to every record.
const DiscriminatorSize = 8

var (
	// ErrMalformed is returned for data too short or with an unknown tag.
	ErrMalformed = errors.New("malformed record")

	// ErrWrongKind is returned when decoding data of the other record kind.
	ErrWrongKind = errors.New("record kind mismatch")
)

var (
	paperDiscriminator   = discriminator("ipp:record:Paper")
	sectionDiscriminator = discriminator("ipp:record:Section")
)

func discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte(name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Paper anchors a document fingerprint to its author.
type Paper struct {
	Author          fingerprint.Identity `json:"author"`
	PaperHash       string               `json:"paper_hash"`
	SectionsCount   uint8                `json:"sections_count"` // advisory, not enforced
	CreatedAt       int64                `json:"created_at"`
	DerivationProof fingerprint.Proof    `json:"derivation_proof"`
}

// Section anchors a section fingerprint to its author.
type Section struct {
	Author          fingerprint.Identity `json:"author"`
	SectionType     string               `json:"section_type"`
	ContentHash     string               `json:"content_hash"`
	UniquenessScore uint8                `json:"uniqueness_score"`
	Summary         string               `json:"summary"`
	CreatedAt       int64                `json:"created_at"`
	DerivationProof fingerprint.Proof    `json:"derivation_proof"`
}

// EncodePaper serializes p with its discriminator.
func EncodePaper(p Paper) ([]byte, error) {
	return encode(paperDiscriminator, p)
}

// EncodeSection serializes s with its discriminator.
func EncodeSection(s Section) ([]byte, error) {
	return encode(sectionDiscriminator, s)
}

func encode(tag [DiscriminatorSize]byte, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(tag[:])
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// KindOf reads the discriminator of an encoded record.
func KindOf(data []byte) (Kind, error) {
	if len(data) < DiscriminatorSize {
		return "", fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	switch {
	case bytes.Equal(data[:DiscriminatorSize], paperDiscriminator[:]):
		return KindPaper, nil
	case bytes.Equal(data[:DiscriminatorSize], sectionDiscriminator[:]):
		return KindSection, nil
	default:
		return "", fmt.Errorf("%w: unknown discriminator %x", ErrMalformed, data[:DiscriminatorSize])
	}
}

// DecodePaper parses an encoded paper record.
func DecodePaper(data []byte) (Paper, error) {
	var p Paper
	if err := decode(data, KindPaper, &p); err != nil {
		return Paper{}, err
	}
	return p, nil
}

// DecodeSection parses an encoded section record.
func DecodeSection(data []byte) (Section, error) {
	var s Section
	if err := decode(data, KindSection, &s); err != nil {
		return Section{}, err
	}
	return s, nil
}

func decode(data []byte, want Kind, v any) error {
	kind, err := KindOf(data)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, want, kind)
	}
	if err := json.Unmarshal(data[DiscriminatorSize:], v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
