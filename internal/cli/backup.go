package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"writeflow/internal/config"
	"writeflow/internal/dialog"
	"writeflow/internal/domain"
	"writeflow/internal/service/workspace"

	"github.com/spf13/cobra"
)

func newBackupCmd(app *App) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write the workspace and settings to a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, ts, err := app.persistence.ExportBackup(cmd.Context())
			if err != nil {
				return err
			}

			path := filepath.Join(outDir, workspace.BackupFilename(ts))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Backup written to %s (%d items)\n", path, app.store.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the backup into")
	return cmd
}

func newRestoreCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <backup.json>",
		Short: "Replace the workspace and settings with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			if info.Size() > config.MaxBackupBytes {
				return fmt.Errorf("%w: backup is larger than %d bytes", domain.ErrInvalidBackupFormat, config.MaxBackupBytes)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}

			if err := app.persistence.ImportBackup(cmd.Context(), data, confirmer(app, yes)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Restored %d items\n", app.store.Len())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every file, folder and setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.persistence.Reset(cmd.Context(), confirmer(app, yes)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Workspace reset")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func confirmer(app *App, yes bool) workspace.Confirmer {
	if yes {
		return dialog.Approve(true)
	}
	return app.Dialogs
}

func newExportCmd(app *App) *cobra.Command {
	var (
		outDir      string
		frontmatter bool
	)

	cmd := &cobra.Command{
		Use:   "export <node>",
		Short: "Export a file or folder as a zip of Markdown files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			name, err := app.exporter.Export(cmd.Context(), id, &buf, workspace.ExportOptions{Frontmatter: frontmatter})
			if err != nil {
				return err
			}

			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the archive into")
	cmd.Flags().BoolVar(&frontmatter, "frontmatter", false, "prefix each file with YAML metadata")
	return cmd
}
