package cli

import (
	"fmt"

	"writeflow/internal/domain"
	"writeflow/internal/service/workspace"

	"github.com/spf13/cobra"
)

func newSeedCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add the sample novel to the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.store.Len() > 0 && !force {
				return fmt.Errorf("%w: workspace is not empty (use --force to add the sample anyway)", domain.ErrValidation)
			}

			_, chapterID, err := workspace.SampleWorkspace(app.tracker)
			if err != nil {
				return err
			}
			if err := app.store.Open(&chapterID); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTree(app.query.Tree(), app.store.ActiveFileID()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "seed even if the workspace has content")
	return cmd
}
