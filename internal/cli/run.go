package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"libfs/internal/wasmhost"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run MODULE.wasm [ARGS...]",
	Short: "Run a WASI module with the libfs host functions",
	Long: `Run a WASI command module. The module may import fs_exist,
fs_is_directory and fs_is_file from the "libfs" host module to query the
mount table. The process exits with the guest's exit code.`,
	Args: requireArgs(1),
	RunE: runRun,
}

func init() {
	// flags after the module name belong to the guest
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	wasm, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read module: %w", err)
	}

	resolver, err := loadResolver()
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	code, err := wasmhost.Run(cmd.Context(), wasm, resolver, wasmhost.RunConfig{
		Name:   name,
		Args:   args,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: int(code), Err: fmt.Errorf("%s exited with code %d", name, code)}
	}
	return nil
}
