package cli

import (
	"os"
	"os/signal"
	"syscall"

	"libfs/internal/fs"

	"github.com/spf13/cobra"
)

var mountFlags struct {
	allowOther bool
}

var mountCmd = &cobra.Command{
	Use:   "mount MOUNTPOINT",
	Short: "Serve the mount table as a read-only FUSE view",
	Long: `Mount a read-only FUSE filesystem at MOUNTPOINT whose lookups are
answered by the mount table. Entries can be stat'ed but not listed, opened
or modified. The view is served until SIGINT or SIGTERM.`,
	Args: exactArgs(1),
	RunE: runMount,
}

func init() {
	mountCmd.Flags().BoolVar(&mountFlags.allowOther, "allow-other", false, "Allow other users to access the view")
	rootCmd.AddCommand(mountCmd)
}

func runMount(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}

	logger.Info("Starting libfs view...")
	logger.Debug("Mount point: %s", args[0])

	logger.Debug("Setting up signal handlers...")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	view := fs.NewView(resolver)
	if err := view.Mount(args[0], mountFlags.allowOther); err != nil {
		return err
	}
	logger.Info("Filesystem mounted and ready")

	// Wait for signal
	go func() {
		sig := <-sigChan
		logger.Info("Received signal %v", sig)
		if err := view.Unmount(); err != nil {
			logger.Error("Unmount error: %v", err)
		}
	}()

	if err := view.Wait(); err != nil {
		return err
	}
	logger.Info("Clean shutdown complete")
	return nil
}
