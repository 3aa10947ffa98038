package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/manifest"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/registry"
)

// sourceFlags selects content by pre-computed hash, file, or literal text.
type sourceFlags struct {
	Hash string
	File string
	Text string
}

func (s *sourceFlags) bind(cmd *cobra.Command, what string) {
	cmd.Flags().StringVar(&s.Hash, "hash", "", what+" hash, used as given")
	cmd.Flags().StringVar(&s.File, "file", "", "fingerprint the "+what+" from this file")
	cmd.Flags().StringVar(&s.Text, "text", "", "fingerprint the "+what+" from this text (NFC normalized)")
	cmd.MarkFlagsMutuallyExclusive("hash", "file", "text")
	cmd.MarkFlagsOneRequired("hash", "file", "text")
}

func (s *sourceFlags) resolve() (string, error) {
	return manifest.Source{Hash: s.Hash, File: s.File, Text: s.Text}.Resolve("")
}

func parseAuthor(hexID string) (fingerprint.Identity, error) {
	id, err := fingerprint.ParseIdentity(hexID)
	if err != nil {
		return fingerprint.Identity{}, &registry.Error{Code: registry.CodeInvalidInput, Field: "author", Message: err.Error(), Err: err}
	}
	return id, nil
}

// RegisterPaperOptions holds flags for the register-paper command.
type RegisterPaperOptions struct {
	*RootOptions
	Author   string
	Source   sourceFlags
	Sections uint8
}

type paperResult struct {
	Key   fingerprint.Key `json:"key"`
	Paper record.Paper    `json:"paper"`
}

func (r paperResult) Text() string {
	return fmt.Sprintf("registered paper %s\n  author:   %s\n  sections: %d\n  key:      %s (proof %d)",
		r.Paper.PaperHash, r.Paper.Author, r.Paper.SectionsCount, r.Key, r.Paper.DerivationProof)
}

// NewRegisterPaperCommand creates the register-paper command.
func NewRegisterPaperCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterPaperOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register-paper",
		Short: "Anchor a paper fingerprint to its author",
		Long: `Register a paper fingerprint under an author identity.

The first registration of (author, paper hash) wins. Registering the same
pair again fails with ALREADY_REGISTERED and leaves the record unchanged.

Example:
  ipp register-paper --author <hex> --file paper.pdf --sections 5
  ipp register-paper --author <hex> --hash 9f86d0...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegisterPaper(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Author, "author", "", "author identity, 64 hex characters (required)")
	cmd.Flags().Uint8Var(&opts.Sections, "sections", 0, "number of sections in the paper")
	_ = cmd.MarkFlagRequired("author")
	opts.Source.bind(cmd, "paper")

	return cmd
}

func runRegisterPaper(opts *RegisterPaperOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	author, err := parseAuthor(opts.Author)
	if err != nil {
		return out.Fail(ErrCodeInput, "invalid author", err)
	}
	hash, err := opts.Source.resolve()
	if err != nil {
		return out.Fail(ErrCodeInput, "failed to fingerprint paper", err)
	}

	e, err := openEnv(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail(ErrCodeStore, "failed to open registry", err)
	}
	defer e.Close()

	// The local operator acts as the author.
	paper, err := e.registry.RegisterPaper(cmd.Context(), author, registry.PaperRequest{
		Author:        author,
		PaperHash:     hash,
		SectionsCount: opts.Sections,
	})
	if err != nil {
		return out.Fail(ErrCodeInternal, "registration failed", err)
	}
	e.logger.Debug("paper registered", "author", author.String(), "paper_hash", hash)

	key, err := fingerprint.ReproducePaperKey(paper.Author, paper.PaperHash, paper.DerivationProof)
	if err != nil {
		return out.Fail(ErrCodeInternal, "registration failed", err)
	}
	return out.Success(paperResult{Key: key, Paper: paper})
}

// RegisterSectionOptions holds flags for the register-section command.
type RegisterSectionOptions struct {
	*RootOptions
	Author  string
	Type    string
	Source  sourceFlags
	Score   uint8
	Summary string
}

type sectionResult struct {
	Key     fingerprint.Key `json:"key"`
	Section record.Section  `json:"section"`
}

func (r sectionResult) Text() string {
	return fmt.Sprintf("registered %s section %s\n  author: %s\n  score:  %d\n  key:    %s (proof %d)",
		r.Section.SectionType, r.Section.ContentHash, r.Section.Author, r.Section.UniquenessScore, r.Key, r.Section.DerivationProof)
}

// NewRegisterSectionCommand creates the register-section command.
func NewRegisterSectionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterSectionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register-section",
		Short: "Anchor a section fingerprint to its author",
		Long: `Register a section fingerprint under an author identity.

Sections are keyed by (author, section type, content hash) and are not
linked to a paper record.

Example:
  ipp register-section --author <hex> --type abstract --file abstract.txt --score 90
  ipp register-section --author <hex> --type conclusion --text "We conclude..."`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegisterSection(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Author, "author", "", "author identity, 64 hex characters (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "section type, e.g. abstract (required)")
	cmd.Flags().Uint8Var(&opts.Score, "score", 0, "uniqueness score (0-255, opaque)")
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "short summary, at most 500 bytes")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("type")
	opts.Source.bind(cmd, "section content")

	return cmd
}

func runRegisterSection(opts *RegisterSectionOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	author, err := parseAuthor(opts.Author)
	if err != nil {
		return out.Fail(ErrCodeInput, "invalid author", err)
	}
	hash, err := opts.Source.resolve()
	if err != nil {
		return out.Fail(ErrCodeInput, "failed to fingerprint section", err)
	}

	e, err := openEnv(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail(ErrCodeStore, "failed to open registry", err)
	}
	defer e.Close()

	section, err := e.registry.RegisterSection(cmd.Context(), author, registry.SectionRequest{
		Author:          author,
		SectionType:     opts.Type,
		ContentHash:     hash,
		UniquenessScore: opts.Score,
		Summary:         opts.Summary,
	})
	if err != nil {
		return out.Fail(ErrCodeInternal, "registration failed", err)
	}
	e.logger.Debug("section registered", "author", author.String(), "section_type", opts.Type, "content_hash", hash)

	key, err := fingerprint.ReproduceSectionKey(section.Author, section.SectionType, section.ContentHash, section.DerivationProof)
	if err != nil {
		return out.Fail(ErrCodeInternal, "registration failed", err)
	}
	return out.Success(sectionResult{Key: key, Section: section})
}
