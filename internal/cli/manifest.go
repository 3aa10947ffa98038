package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/secfit/ip-protector/internal/manifest"
)

type manifestResult struct {
	*manifest.Report
	Registered int `json:"registered"`
}

func (r manifestResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "author %s: %d of %d registered\n", r.Author, r.Registered, len(r.Entries))
	for _, e := range r.Entries {
		label := string(e.Kind)
		if e.SectionType != "" {
			label += "/" + e.SectionType
		}
		fmt.Fprintf(&b, "  %-28s %s  %s\n", label, e.Hash, e.Status)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewRegisterManifestCommand creates the register-manifest command.
func NewRegisterManifestCommand(rootOpts *RootOptions) *cobra.Command {
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "register-manifest <manifest.yaml>",
		Short: "Register a paper and its sections from a manifest",
		Long: `Register a paper and all of its sections described by a YAML manifest.

The paper is registered first with sections_count set to the number of
listed sections, then each section in order. Sources are fingerprinted
before anything is written.

Example:
  ipp register-manifest paper.yaml
  ipp register-manifest --skip-existing paper.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout())

			m, err := manifest.Load(args[0])
			if err != nil {
				return out.Fail(ErrCodeManifest, "invalid manifest", err)
			}

			e, err := openEnv(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return out.Fail(ErrCodeStore, "failed to open registry", err)
			}
			defer e.Close()

			report, err := manifest.Register(cmd.Context(), e.registry, m, manifest.Options{SkipExisting: skipExisting})
			if err != nil {
				if report != nil {
					e.logger.Warn("manifest partially registered", "registered", report.Registered(), "manifest", args[0])
				}
				return out.Fail(ErrCodeManifest, "manifest registration failed", err)
			}
			e.logger.Debug("manifest registered", "manifest", args[0], "entries", len(report.Entries))
			return out.Success(manifestResult{Report: report, Registered: report.Registered()})
		},
	}

	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "report already registered entries instead of failing")
	return cmd
}
