package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/secfit/ip-protector/internal/fingerprint"
)

type digestResult struct {
	Source string `json:"source"`
	Hash   string `json:"hash"`
}

func (r digestResult) Text() string {
	return r.Hash + "  " + r.Source
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	var asText bool

	cmd := &cobra.Command{
		Use:   "fingerprint <file|->",
		Short: "Print the content hash of a file",
		Long: `Print the content hash the registry would use for a file.

Files are hashed as raw bytes, matching --file on the register commands.
With --text the content is treated as UTF-8 text and NFC normalized first,
matching --text. Use "-" to read standard input.

Example:
  ipp fingerprint paper.pdf
  ipp fingerprint --text abstract.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd.OutOrStdout())

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return out.Fail(ErrCodeInput, "failed to open file", err)
				}
				defer f.Close()
				r = f
			}

			var (
				hash string
				err  error
			)
			if asText {
				var data []byte
				data, err = io.ReadAll(r)
				hash = fingerprint.Digest(string(data))
			} else {
				hash, err = fingerprint.DigestReader(r)
			}
			if err != nil {
				return out.Fail(ErrCodeInput, "failed to read input", err)
			}
			return out.Success(digestResult{Source: args[0], Hash: hash})
		},
	}

	cmd.Flags().BoolVar(&asText, "text", false, "treat input as text and NFC normalize it")
	return cmd
}
