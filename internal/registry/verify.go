package registry

import (
	"context"
	"errors"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/store"
)

// SectionQuery identifies a section registration to check.
type SectionQuery struct {
	Author      fingerprint.Identity
	SectionType string
	ContentHash string
}

// Outcome is the result of an authorship lookup.
type Outcome string

const (
	// OutcomeNotFound: no record at the derived key.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeMismatch: a record exists but does not match the query.
	OutcomeMismatch Outcome = "mismatch"

	// OutcomeVerified: the record matches author and content hash.
	OutcomeVerified Outcome = "verified"
)

// Verification is the detailed result of Lookup.
type Verification struct {
	Outcome Outcome
	Key     fingerprint.Key

	// Section is set when a section record was found at Key.
	Section *record.Section
}

// Verified reports whether the outcome is OutcomeVerified.
func (v Verification) Verified() bool {
	return v.Outcome == OutcomeVerified
}

// Lookup checks whether q.ContentHash was registered by q.Author under
// q.SectionType.
//
// A missing record is a legitimate negative result, not an error. When a
// record exists, its stored author and content hash are compared with the
// query and its stored proof must reproduce the key. Author and hash are
// already key inputs; the comparison is kept so that verification never
// rests on the key derivation alone.
func (s *Service) Lookup(ctx context.Context, q SectionQuery) (Verification, error) {
	key, _, err := fingerprint.DeriveSectionKey(q.Author, q.SectionType, q.ContentHash)
	if err != nil {
		return Verification{}, derivationError(err)
	}

	data, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return Verification{Outcome: OutcomeNotFound, Key: key}, nil
	}
	if err != nil {
		return Verification{}, storeUnavailable("get section", key.String(), err)
	}

	section, err := record.DecodeSection(data)
	if errors.Is(err, record.ErrWrongKind) {
		return Verification{Outcome: OutcomeMismatch, Key: key}, nil
	}
	if err != nil {
		return Verification{}, storeUnavailable("decode section", key.String(), err)
	}

	v := Verification{Outcome: OutcomeMismatch, Key: key, Section: &section}
	if section.ContentHash == q.ContentHash &&
		section.Author == q.Author &&
		reproducesKey(section, key) {
		v.Outcome = OutcomeVerified
	}
	return v, nil
}

// VerifyAuthorship is the boolean form of Lookup: true only for
// OutcomeVerified. Not-found and mismatch both yield false.
func (s *Service) VerifyAuthorship(ctx context.Context, q SectionQuery) (bool, error) {
	v, err := s.Lookup(ctx, q)
	if err != nil {
		return false, err
	}
	return v.Verified(), nil
}

// GetSection returns the section record matching q, or a NotFound error.
func (s *Service) GetSection(ctx context.Context, q SectionQuery) (record.Section, error) {
	v, err := s.Lookup(ctx, q)
	if err != nil {
		return record.Section{}, err
	}
	switch v.Outcome {
	case OutcomeVerified:
		return *v.Section, nil
	case OutcomeMismatch:
		return record.Section{}, &Error{Code: CodeNotFound, Message: "stored record does not match query", Key: v.Key.String()}
	default:
		return record.Section{}, &Error{Code: CodeNotFound, Message: "section not registered", Key: v.Key.String()}
	}
}

// GetPaper returns the paper registered by author under paperHash.
func (s *Service) GetPaper(ctx context.Context, author fingerprint.Identity, paperHash string) (record.Paper, error) {
	key, _, err := fingerprint.DerivePaperKey(author, paperHash)
	if err != nil {
		return record.Paper{}, derivationError(err)
	}

	data, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return record.Paper{}, &Error{Code: CodeNotFound, Message: "paper not registered", Key: key.String()}
	}
	if err != nil {
		return record.Paper{}, storeUnavailable("get paper", key.String(), err)
	}

	paper, err := record.DecodePaper(data)
	if errors.Is(err, record.ErrWrongKind) {
		return record.Paper{}, &Error{Code: CodeNotFound, Message: "key holds a non-paper record", Key: key.String()}
	}
	if err != nil {
		return record.Paper{}, storeUnavailable("decode paper", key.String(), err)
	}
	return paper, nil
}

func reproducesKey(s record.Section, key fingerprint.Key) bool {
	k, err := fingerprint.ReproduceSectionKey(s.Author, s.SectionType, s.ContentHash, s.DerivationProof)
	return err == nil && k == key
}
