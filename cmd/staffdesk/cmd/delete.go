package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/listview"
)

var (
	deleteParent string
	deleteYes    bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <resource> <id>",
	Short: "Delete one record",
	Long: `Delete a record through the platform API.

You are asked to confirm unless --yes is given. Without a terminal to ask
on, --yes is required.

Examples:
  staffdesk delete jobs 42
  staffdesk delete client-users 7 --parent 12 --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	res, err := lookupResource(args[0])
	if err != nil {
		return err
	}
	if !res.Deletable {
		return fmt.Errorf("%s cannot be deleted from staffdesk", res.Name)
	}
	id := args[1]

	if err := requireParent(res, deleteParent); err != nil {
		return err
	}
	coll, err := openCollection(res, deleteParent)
	if err != nil {
		return err
	}
	if err := coll.Check(); err != nil {
		return explain(err)
	}

	if !deleteYes {
		if !stdinIsTerminal() {
			return fmt.Errorf("refusing to delete %s %s without confirmation (pass --yes)", res.Noun, id)
		}
		confirmed := false
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s %s?", res.Noun, id)).
				Description("This cannot be undone.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&confirmed),
		)).RunWithContext(cmd.Context())
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("confirm: %w", err)
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	out := cmd.OutOrStdout()
	notify := listview.NotifierFunc(func(n listview.Notification) {
		if n.Level == listview.LevelSuccess {
			fmt.Fprintf(out, "%s %s.\n", n.Message, id)
		}
	})
	ctrl := coll.NewController(0, notify, logger)
	if err := ctrl.DeleteRecord(cmd.Context(), id); err != nil {
		return explain(err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().StringVar(&deleteParent, "parent", "", "Parent record id for nested resources")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")
}
