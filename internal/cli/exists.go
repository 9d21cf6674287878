package cli

import (
	"fmt"
	"io"
	"strconv"

	"libfs/internal/fs"

	"github.com/spf13/cobra"
)

var existsFlags struct {
	kind bool
}

var existsCmd = &cobra.Command{
	Use:   "exists PATH...",
	Short: "Report whether each path exists",
	Long: `Resolve each PATH through the mount table and print "PATH<TAB>true"
or "PATH<TAB>false". With --kind, print file, directory, other or none.

A path whose existence could not be determined is reported on stderr and
makes the command exit with code 1. It is never printed as false.`,
	Example: `  libfs exists --mount /working=./data /working/hello.txt
  libfs exists --kind /etc /etc/hosts`,
	Args: requireArgs(1),
	RunE: runExists,
}

func init() {
	existsCmd.Flags().BoolVar(&existsFlags.kind, "kind", false, "Print the entry kind instead of true/false")
	rootCmd.AddCommand(existsCmd)
}

func runExists(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	return checkPaths(resolver, args, existsFlags.kind, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// checkPaths answers every path and fails if any answer is unknown
func checkPaths(resolver *fs.Resolver, paths []string, kind bool, out, errOut io.Writer) error {
	failed := 0
	for _, p := range paths {
		var answer string
		var err error
		if kind {
			var k fs.Kind
			k, err = resolver.Kind(p)
			answer = k.String()
		} else {
			var ok bool
			ok, err = resolver.Exists(p)
			answer = strconv.FormatBool(ok)
		}

		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", p, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", p, answer)
	}

	if failed > 0 {
		return &ExitError{
			Code: ExitGeneralError,
			Err:  fmt.Errorf("%d of %d checks failed", failed, len(paths)),
		}
	}
	return nil
}
