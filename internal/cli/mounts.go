package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"libfs/internal/fs"

	"github.com/spf13/cobra"
)

var mountsCmd = &cobra.Command{
	Use:   "mounts",
	Short: "List the mount table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := loadResolver()
		if err != nil {
			return err
		}
		return printMounts(resolver, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(mountsCmd)
}

// printMounts writes one line per mount in registration order, followed
// by the root provider.
func printMounts(resolver *fs.Resolver, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PREFIX\tPROVIDER")
	for _, m := range resolver.Table().Mounts() {
		fmt.Fprintf(w, "%s\t%v\n", m.Prefix, m.Provider)
	}
	fmt.Fprintf(w, "%s\t%v (root)\n", fs.Root, resolver.RootProvider())
	return w.Flush()
}
