package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	updateParent string
	updateSet    []string
)

var updateCmd = &cobra.Command{
	Use:   "update <resource> <id>",
	Short: "Update fields of a record",
	Long: `Update a record through the platform API. Only the given fields are
sent.

Field values come from --set key=value. Without --set, and with a
terminal attached, a form asks for each field; blank answers keep the
current value.

Examples:
  staffdesk update invoices 3 --set status=paid
  staffdesk update admins 2`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	res, err := lookupResource(args[0])
	if err != nil {
		return err
	}
	id := args[1]
	coll, err := openCollection(res, updateParent)
	if err != nil {
		return err
	}

	values, err := collectValues(cmd, res, updateSet, true)
	if err != nil || values == nil {
		return err
	}
	if len(values) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to update.")
		return nil
	}

	rec, err := coll.Update(cmd.Context(), id, values)
	if err != nil {
		return writeFailure(cmd, "update "+res.Noun+" "+id, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Updated %s %s\n", res.Noun, id)
	fmt.Fprintln(out, rec.Pretty())
	return nil
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVar(&updateParent, "parent", "", "Parent record id for nested resources")
	updateCmd.Flags().StringArrayVar(&updateSet, "set", nil, "Field value as key=value (repeatable)")
}
