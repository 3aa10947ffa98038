// Command ipp is the authorship registry CLI and HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/secfit/ip-protector/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ipp:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
