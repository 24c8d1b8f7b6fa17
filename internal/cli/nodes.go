package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"writeflow/internal/dialog"
	"writeflow/internal/domain"
	models "writeflow/internal/domain/models/workspace"

	"github.com/spf13/cobra"
)

func newTreeCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the workspace tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := app.query.Tree()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(roots)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTree(roots, app.store.ActiveFileID()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	var (
		parent string
		folder bool
	)

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a file or folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := app.resolveParent(parent)
			if err != nil {
				return err
			}

			nodeType := models.NodeTypeFile
			title := "New file"
			if folder {
				nodeType = models.NodeTypeFolder
				title = "New folder"
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				name, err = app.Dialogs.Prompt(cmd.Context(), title, "Name", "Untitled")
				if err != nil {
					return err
				}
			}

			id, err := app.store.Create(parentID, name, nodeType)
			if err != nil {
				return err
			}

			path, _ := app.query.DisplayPath(id)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s %s (%s)\n", nodeType, path, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent folder (id or path); empty for the root")
	cmd.Flags().BoolVar(&folder, "folder", false, "create a folder instead of a file")
	return cmd
}

func newRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <node> [new-name]",
		Short: "Rename a file or folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}
			node, err := app.store.Read(id)
			if err != nil {
				return err
			}

			var name string
			if len(args) == 2 {
				name = args[1]
			} else {
				name, err = app.Dialogs.Prompt(cmd.Context(), "Rename", "New name", node.Name)
				if err != nil {
					return err
				}
			}

			if err := app.store.Rename(id, name); err != nil {
				return err
			}
			path, _ := app.query.DisplayPath(id)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Renamed to %s\n", path)
			return nil
		},
	}
}

func newMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <node> [target-folder]",
		Short: "Move a node into another folder (\"/\" for the root)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}

			var target *string
			if len(args) == 2 {
				target, err = app.resolveParent(args[1])
			} else {
				target, err = pickMoveTarget(cmd, app, id)
			}
			if err != nil {
				return err
			}

			if err := app.store.Move(id, target); err != nil {
				return err
			}
			path, _ := app.query.DisplayPath(id)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Moved to %s\n", path)
			return nil
		},
	}
}

// pickMoveTarget offers every folder outside the node's own subtree
func pickMoveTarget(cmd *cobra.Command, app *App, id string) (*string, error) {
	choices := app.query.MoveTargets(id)
	options := make([]dialog.Option, 0, len(choices))
	for _, c := range choices {
		value := ""
		if c.ID != nil {
			value = *c.ID
		}
		options = append(options, dialog.Option{Value: value, Label: c.Label, Depth: c.Depth})
	}

	value, err := app.Dialogs.TreeSelect(cmd.Context(), "Move to", options)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return &value, nil
}

func newRemoveCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <node>",
		Short: "Delete a node and everything inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}
			path, _ := app.query.DisplayPath(id)

			if !yes {
				inside := len(app.query.Descendants(id))
				msg := fmt.Sprintf("Delete %q?", path)
				if inside > 0 {
					msg = fmt.Sprintf("Delete %q and the %d items inside it?", path, inside)
				}
				ok, err := app.Dialogs.Confirm(cmd.Context(), "Delete", msg)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			if err := app.store.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func newWriteCmd(app *App) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Replace a file's content from --from or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}

			var data []byte
			if from != "" && from != "-" {
				data, err = os.ReadFile(from)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}

			words, err := app.tracker.ApplyContent(id, string(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %d words\n", words)
			return nil
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "", "read content from this file (default stdin)")
	return cmd
}

func newMetaCmd(app *App) *cobra.Command {
	var (
		status        string
		target        int
		deadline      string
		clearTarget   bool
		clearDeadline bool
	)

	cmd := &cobra.Command{
		Use:   "meta <file>",
		Short: "Set a file's status, word target or deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}

			var patch models.MetadataPatch
			if cmd.Flags().Changed("status") {
				patch.Status = models.Set(models.Status(status))
			}
			switch {
			case clearTarget:
				patch.TargetWordCount = models.Clear[int]()
			case cmd.Flags().Changed("target"):
				patch.TargetWordCount = models.Set(target)
			}
			switch {
			case clearDeadline:
				patch.Deadline = models.Clear[models.Timestamp]()
			case deadline != "":
				t, err := time.ParseInLocation(time.DateOnly, deadline, time.Local)
				if err != nil {
					return fmt.Errorf("%w: deadline must be YYYY-MM-DD", domain.ErrValidation)
				}
				patch.Deadline = models.Set(models.NewTimestamp(t))
			}
			if patch.IsEmpty() {
				return fmt.Errorf("%w: nothing to change", domain.ErrValidation)
			}

			if err := app.store.UpdateMetadata(id, patch); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Metadata updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "brainstorming, writing or completed")
	cmd.Flags().IntVar(&target, "target", 0, "target word count")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline as YYYY-MM-DD")
	cmd.Flags().BoolVar(&clearTarget, "clear-target", false, "remove the word target")
	cmd.Flags().BoolVar(&clearDeadline, "clear-deadline", false, "remove the deadline")
	return cmd
}

func newGoalCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "goal <file>",
		Short: "Show progress toward a file's word target and deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}
			goal, err := app.tracker.Goal(id)
			if err != nil {
				return err
			}
			path, _ := app.query.DisplayPath(id)
			fmt.Fprint(cmd.OutOrStdout(), formatGoal(path, goal))
			return nil
		},
	}
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show workspace totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), formatStats(app.tracker.Stats()))
			return nil
		},
	}
}

func newOpenCmd(app *App) *cobra.Command {
	var closeFile bool

	cmd := &cobra.Command{
		Use:   "open [file]",
		Short: "Mark a file as the one being edited",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if closeFile {
				if err := app.store.Open(nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Closed")
				return nil
			}

			if len(args) == 0 {
				if active := app.store.ActiveFileID(); active != nil {
					path, _ := app.query.DisplayPath(*active)
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			}

			id, err := app.resolve(args[0])
			if err != nil {
				return err
			}
			if err := app.store.Open(&id); err != nil {
				return err
			}
			path, _ := app.query.DisplayPath(id)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Opened %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&closeFile, "close", false, "close the open file")
	return cmd
}
