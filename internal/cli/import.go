package cli

import (
	"fmt"
	"os"

	"writeflow/internal/service/workspace"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	skippedStyle = lipgloss.NewStyle().Faint(true)
)

func newImportCmd(app *App) *cobra.Command {
	var (
		parent    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import Markdown, text, HTML or zip files as workspace files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := app.resolveParent(parent)
			if err != nil {
				return err
			}

			files := make([]workspace.UploadedFile, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				defer f.Close()
				files = append(files, workspace.UploadedFile{Filename: path, Content: f})
			}

			result, err := app.importer.Import(cmd.Context(), files, workspace.ImportOptions{
				ParentID:  parentID,
				Overwrite: overwrite,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range result.Files {
				line := fmt.Sprintf("%-8s %s", f.Action, f.Path)
				if f.Action == workspace.ImportSkipped {
					line = skippedStyle.Render(line)
				}
				fmt.Fprintln(out, line)
			}
			for _, e := range result.Errors {
				fmt.Fprintln(out, failedStyle.Render(fmt.Sprintf("%-8s %s: %s", "failed", e.File, e.Error)))
			}

			s := result.Summary
			fmt.Fprintf(out, "✓ Imported %d files: %d created, %d updated, %d skipped, %d failed\n",
				s.TotalFiles, s.Created, s.Updated, s.Skipped, s.Failed)
			if s.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to import", s.Failed, s.TotalFiles)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "target folder id or path (default: root)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace content of files with the same name")
	return cmd
}
