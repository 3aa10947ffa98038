package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/registry"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Author string
	Type   string
	Source sourceFlags
}

type verifyResult struct {
	Verified bool             `json:"verified"`
	Outcome  registry.Outcome `json:"outcome"`
	Key      fingerprint.Key  `json:"key"`
	Section  *record.Section  `json:"section,omitempty"`
}

func (r verifyResult) Text() string {
	if r.Verified {
		return fmt.Sprintf("verified: %s section %s was registered by %s at %d",
			r.Section.SectionType, r.Section.ContentHash, r.Section.Author, r.Section.CreatedAt)
	}
	return fmt.Sprintf("not verified (%s)", r.Outcome)
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a section was registered by an author",
		Long: `Check whether a section fingerprint was registered by the claimed author.

Exits 0 when verified and 1 otherwise. "not_found" means nothing is
registered for the query; "mismatch" means a record exists but does not
match it.

Example:
  ipp verify --author <hex> --type abstract --file abstract.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Author, "author", "", "claimed author identity (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "section type (required)")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("type")
	opts.Source.bind(cmd, "section content")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
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

	v, err := e.registry.Lookup(cmd.Context(), registry.SectionQuery{
		Author:      author,
		SectionType: opts.Type,
		ContentHash: hash,
	})
	if err != nil {
		return out.Fail(ErrCodeInternal, "verification failed", err)
	}

	result := verifyResult{Verified: v.Verified(), Outcome: v.Outcome, Key: v.Key}
	if v.Verified() {
		result.Section = v.Section
	}
	if err := out.Success(result); err != nil {
		return err
	}
	if !v.Verified() {
		return NewExitError(ExitFailure, fmt.Sprintf("not verified: %s", v.Outcome))
	}
	return nil
}
