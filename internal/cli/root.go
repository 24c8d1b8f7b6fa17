package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree around app. Storage is opened on
// first use unless the app is already open.
func NewRootCommand(app *App) *cobra.Command {
	var (
		driver  string
		dataDir string
	)

	root := &cobra.Command{
		Use:           "writeflow",
		Short:         "writeflow - a writing workspace",
		Long:          `Organize drafts in folders, track word-count goals, back up and export your work, and run writing-assistant prompts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.opened() {
				return nil
			}
			if driver != "" {
				app.Config.StorageDriver = driver
			}
			if dataDir != "" {
				app.Config.DataDir = dataDir
			}
			return app.Open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&driver, "driver", "", "storage driver (file, sqlite, postgres, memory)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for file and sqlite storage")

	if app.In != nil {
		root.SetIn(app.In)
	}
	if app.Out != nil {
		root.SetOut(app.Out)
	}

	root.AddCommand(
		newTreeCmd(app),
		newAddCmd(app),
		newRenameCmd(app),
		newMoveCmd(app),
		newRemoveCmd(app),
		newWriteCmd(app),
		newMetaCmd(app),
		newGoalCmd(app),
		newStatsCmd(app),
		newOpenCmd(app),
		newBackupCmd(app),
		newRestoreCmd(app),
		newResetCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newAskCmd(app),
		newSeedCmd(app),
	)

	return root
}

// Execute runs the command line and returns the process exit code.
// A cancelled dialog is reported without an error message.
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case cancelled(err):
		fmt.Fprintln(root.ErrOrStderr(), "Cancelled")
		return 1
	default:
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
}
