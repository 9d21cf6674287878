package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"libfs/internal/config"
	"libfs/internal/fs"
	"libfs/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	logger = logging.GetLogger().WithPrefix("cli")
)

// Exit codes returned by the libfs binary
const (
	ExitSuccess      = 0 // all checks answered
	ExitGeneralError = 1 // a check or command failed
	ExitUsageError   = 2 // invalid arguments or flags
	ExitPanic        = 3 // internal panic
	ExitConfigError  = 10
)

// ErrUsage marks command line misuse
var ErrUsage = errors.New("usage error")

// ExitError carries an explicit process exit code, such as a guest's.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeForError maps an error returned by Execute to a process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrConfigNotFound):
		return ExitConfigError
	}
	return ExitGeneralError
}

var rootCmd = &cobra.Command{
	Use:   "libfs",
	Short: "Answer path existence questions across a virtual mount table",
	Long: `libfs maps virtual path prefixes onto providers (host directories,
in-memory trees or the native filesystem) and answers whether a path exists.

The mount table comes from a YAML config file (--config or $LIBFS_CONFIG),
extended by --mount and --root on the command line. Paths outside every
mount fall through to the root provider.

Exit Codes:
  0  - Success
  1  - General error (a check failed)
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid or missing configuration`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		// stdout carries results only
		logging.GetLogger().SetOutput(cmd.ErrOrStderr())
		if globalFlags.verbose {
			logging.GetLogger().SetLevel(logging.LevelDebug)
		}
	},
}

var globalFlags struct {
	config  string
	mounts  []string
	root    string
	verbose bool
}

// Execute runs the root command
func Execute() error {
	defer logging.GetLogger().Sync() //nolint:errcheck
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globalFlags.config, "config", "c", "", "Config file (default $"+config.EnvConfigPath+")")
	flags.StringArrayVarP(&globalFlags.mounts, "mount", "m", nil, "Mirror a host directory at a prefix, as PREFIX=DIR (repeatable)")
	flags.StringVar(&globalFlags.root, "root", "", "Mirror DIR as the root provider instead of the native filesystem")
	flags.BoolVarP(&globalFlags.verbose, "verbose", "v", false, "Enable debug logging")
}

// requireArgs is cobra.MinimumNArgs with ErrUsage attached
func requireArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s requires at least %d argument(s), got %d", ErrUsage, cmd.Name(), n, len(args))
		}
		return nil
	}
}

// exactArgs is cobra.ExactArgs with ErrUsage attached
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s accepts %d argument(s), got %d", ErrUsage, cmd.Name(), n, len(args))
		}
		return nil
	}
}

// parseMountFlag splits a --mount value into prefix and directory
func parseMountFlag(value string) (string, string, error) {
	prefix, dir, ok := strings.Cut(value, "=")
	if !ok || prefix == "" || dir == "" {
		return "", "", fmt.Errorf("%w: --mount %q must be PREFIX=DIR", ErrUsage, value)
	}
	return prefix, dir, nil
}

// loadConfig reads the config file named by --config or $LIBFS_CONFIG,
// then applies the command line mounts on top of it.
func loadConfig() (*config.Config, error) {
	path := globalFlags.config
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg = loaded
	}

	if globalFlags.root != "" {
		if err := cfg.SetRootMirror(globalFlags.root); err != nil {
			return nil, err
		}
	}
	for _, value := range globalFlags.mounts {
		prefix, dir, err := parseMountFlag(value)
		if err != nil {
			return nil, err
		}
		if err := cfg.AddMirror(prefix, dir); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func loadResolver() (*fs.Resolver, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	resolver, err := config.Build(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolver ready with %d mounts", resolver.Table().Len())
	return resolver, nil
}
