package cli

import (
	"fmt"
	"strings"

	"writeflow/internal/dialog"
	"writeflow/internal/domain"

	"github.com/spf13/cobra"
)

func newAskCmd(app *App) *cobra.Command {
	var (
		node string
		list bool
	)

	cmd := &cobra.Command{
		Use:   "ask [template] [text...]",
		Short: "Run an assistant prompt template over text or a file",
		Long: `Run a prompt template (polish, check, expand, ...) against the active model.
The text comes from the arguments, or from a file with --node.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := app.settings.Get().PromptTemplates
			if list {
				for _, t := range templates {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s %s\n", t.ID, t.Icon, t.Name)
				}
				return nil
			}

			var templateID string
			if len(args) > 0 {
				templateID = args[0]
				args = args[1:]
			} else {
				options := make([]dialog.Option, 0, len(templates))
				for _, t := range templates {
					options = append(options, dialog.Option{Value: t.ID, Label: strings.TrimSpace(t.Icon + " " + t.Name)})
				}
				id, err := app.Dialogs.Select(cmd.Context(), "Prompt template", options)
				if err != nil {
					return err
				}
				templateID = id
			}

			text := strings.Join(args, " ")
			if node != "" {
				id, err := app.resolve(node)
				if err != nil {
					return err
				}
				n, err := app.store.Read(id)
				if err != nil {
					return err
				}
				f, ok := n.File()
				if !ok {
					return domain.NewNodeError("ask", id, domain.ErrWrongType)
				}
				text = f.Content
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("%w: no text to send", domain.ErrValidation)
			}

			out := cmd.OutOrStdout()
			_, err := app.assistant.Run(cmd.Context(), templateID, text, func(token string) {
				fmt.Fprint(out, token)
			})
			fmt.Fprintln(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&node, "node", "n", "", "use this file's content as the text")
	cmd.Flags().BoolVar(&list, "list", false, "list the available templates")
	return cmd
}
