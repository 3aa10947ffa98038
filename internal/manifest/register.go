package manifest

import (
	"context"
	"fmt"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/registry"
)

// Registrar is the write side of the registry service.
type Registrar interface {
	RegisterPaper(ctx context.Context, caller fingerprint.Identity, req registry.PaperRequest) (record.Paper, error)
	RegisterSection(ctx context.Context, caller fingerprint.Identity, req registry.SectionRequest) (record.Section, error)
}

// Status of one registration in a Report.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusExisting   Status = "already_registered"
)

// Entry reports the outcome for the paper or one section.
type Entry struct {
	Kind        record.Kind `json:"kind"`
	SectionType string      `json:"section_type,omitempty"`
	Hash        string      `json:"hash"`
	Status      Status      `json:"status"`
}

// Report lists what Register did, paper first.
type Report struct {
	Author  fingerprint.Identity `json:"author"`
	Entries []Entry              `json:"entries"`
}

// Registered counts entries newly written.
func (r *Report) Registered() int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == StatusRegistered {
			n++
		}
	}
	return n
}

// Options control Register.
type Options struct {
	// SkipExisting records AlreadyRegistered outcomes in the report instead
	// of stopping at the first one.
	SkipExisting bool
}

// Register anchors the paper and then each section, in manifest order, as
// the manifest author. The paper's sections_count is the number of
// sections listed.
//
// All sources are resolved before the first write, so an unreadable file
// leaves the registry untouched. A failure midway returns the partial
// report together with the error.
func Register(ctx context.Context, reg Registrar, m *Manifest, opts Options) (*Report, error) {
	author, err := fingerprint.ParseIdentity(m.Author)
	if err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}

	paperHash, err := m.Paper.Resolve(m.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("paper: %w", err)
	}
	sectionHashes := make([]string, len(m.Sections))
	for i, s := range m.Sections {
		h, err := s.Resolve(m.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("sections[%d] (%s): %w", i, s.Type, err)
		}
		sectionHashes[i] = h
	}

	report := &Report{Author: author}

	_, err = reg.RegisterPaper(ctx, author, registry.PaperRequest{
		Author:        author,
		PaperHash:     paperHash,
		SectionsCount: uint8(len(m.Sections)),
	})
	status, err := outcome(err, opts)
	if err != nil {
		return report, fmt.Errorf("register paper: %w", err)
	}
	report.Entries = append(report.Entries, Entry{Kind: record.KindPaper, Hash: paperHash, Status: status})

	for i, s := range m.Sections {
		_, err := reg.RegisterSection(ctx, author, registry.SectionRequest{
			Author:          author,
			SectionType:     s.Type,
			ContentHash:     sectionHashes[i],
			UniquenessScore: s.UniquenessScore,
			Summary:         s.Summary,
		})
		status, err := outcome(err, opts)
		if err != nil {
			return report, fmt.Errorf("register section %s: %w", s.Type, err)
		}
		report.Entries = append(report.Entries, Entry{
			Kind:        record.KindSection,
			SectionType: s.Type,
			Hash:        sectionHashes[i],
			Status:      status,
		})
	}
	return report, nil
}

func outcome(err error, opts Options) (Status, error) {
	switch {
	case err == nil:
		return StatusRegistered, nil
	case opts.SkipExisting && registry.IsAlreadyRegistered(err):
		return StatusExisting, nil
	default:
		return "", err
	}
}
