// Package registry implements the authorship registry: admission control for
// paper and section registrations, and authorship verification.
//
// Every operation derives the record key with package fingerprint and issues
// exactly one store call. Writes use the store's atomic create-if-absent, so
// the first registration of a (author, content) pair wins irrevocably and
// there is no check-then-insert window. The service holds no state of its
// own and never logs; errors are returned to the caller as *Error.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/store"
)

// MaxSummaryLen bounds a section summary, in bytes.
const MaxSummaryLen = 500

// PaperRequest registers a document fingerprint.
type PaperRequest struct {
	Author        fingerprint.Identity
	PaperHash     string
	SectionsCount uint8
}

// SectionRequest registers a section fingerprint.
type SectionRequest struct {
	Author          fingerprint.Identity
	SectionType     string
	ContentHash     string
	UniquenessScore uint8
	Summary         string
}

// Service orchestrates registration and verification over a Store.
type Service struct {
	store store.Store
	clock Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// New creates a Service over st. The default clock is a monotonic wrapper
// around the system clock.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		clock: NewMonotonicClock(SystemClock{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterPaper anchors req.PaperHash to req.Author.
//
// caller is the authenticated identity of the requester; writing on behalf
// of another author fails with Unauthorized. A second registration of the
// same (author, paper_hash) fails with AlreadyRegistered and leaves the
// first record untouched.
func (s *Service) RegisterPaper(ctx context.Context, caller fingerprint.Identity, req PaperRequest) (record.Paper, error) {
	if err := fingerprint.CheckPaperHash(req.PaperHash); err != nil {
		return record.Paper{}, boundsError(err)
	}
	if err := authorize(caller, req.Author); err != nil {
		return record.Paper{}, err
	}

	key, proof, err := fingerprint.DerivePaperKey(req.Author, req.PaperHash)
	if err != nil {
		return record.Paper{}, derivationError(err)
	}

	paper := record.Paper{
		Author:          req.Author,
		PaperHash:       req.PaperHash,
		SectionsCount:   req.SectionsCount,
		CreatedAt:       s.clock.Now(),
		DerivationProof: proof,
	}
	data, err := record.EncodePaper(paper)
	if err != nil {
		return record.Paper{}, fmt.Errorf("register paper: %w", err)
	}

	if err := s.create(ctx, key, data, "paper"); err != nil {
		return record.Paper{}, err
	}
	return paper, nil
}

// RegisterSection anchors a section fingerprint to req.Author.
// Same admission rules as RegisterPaper; additionally the summary is bounded.
func (s *Service) RegisterSection(ctx context.Context, caller fingerprint.Identity, req SectionRequest) (record.Section, error) {
	if err := fingerprint.CheckSectionFields(req.SectionType, req.ContentHash); err != nil {
		return record.Section{}, boundsError(err)
	}
	if len(req.Summary) > MaxSummaryLen {
		return record.Section{}, invalidInput("summary",
			fmt.Sprintf("summary is %d bytes, max %d", len(req.Summary), MaxSummaryLen), nil)
	}
	if err := authorize(caller, req.Author); err != nil {
		return record.Section{}, err
	}

	key, proof, err := fingerprint.DeriveSectionKey(req.Author, req.SectionType, req.ContentHash)
	if err != nil {
		return record.Section{}, derivationError(err)
	}

	section := record.Section{
		Author:          req.Author,
		SectionType:     req.SectionType,
		ContentHash:     req.ContentHash,
		UniquenessScore: req.UniquenessScore,
		Summary:         req.Summary,
		CreatedAt:       s.clock.Now(),
		DerivationProof: proof,
	}
	data, err := record.EncodeSection(section)
	if err != nil {
		return record.Section{}, fmt.Errorf("register section: %w", err)
	}

	if err := s.create(ctx, key, data, "section"); err != nil {
		return record.Section{}, err
	}
	return section, nil
}

// create issues the single atomic store write for a registration.
func (s *Service) create(ctx context.Context, key fingerprint.Key, data []byte, kind string) error {
	err := s.store.CreateIfAbsent(ctx, key, data)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrAlreadyExists):
		return &Error{
			Code:    CodeAlreadyRegistered,
			Message: kind + " already registered",
			Key:     key.String(),
		}
	default:
		return storeUnavailable("create "+kind, key.String(), err)
	}
}

// authorize rejects writes where the caller is not the claimed author.
func authorize(caller, author fingerprint.Identity) error {
	if caller != author {
		return &Error{
			Code:    CodeUnauthorized,
			Message: fmt.Sprintf("caller %s cannot register as author %s", caller, author),
		}
	}
	return nil
}

func boundsError(err error) error {
	var be *fingerprint.BoundsError
	if errors.As(err, &be) {
		return invalidInput(be.Field, be.Error(), err)
	}
	return invalidInput("", err.Error(), err)
}

func derivationError(err error) error {
	var be *fingerprint.BoundsError
	if errors.As(err, &be) {
		return boundsError(err)
	}
	return fmt.Errorf("derive key: %w", err)
}
