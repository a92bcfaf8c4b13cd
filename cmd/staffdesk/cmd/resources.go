package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

var resourcesJSON bool

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resources staffdesk can manage",
	Long: `List every resource in the dashboard with its page size, scope and
the actions it supports.

Examples:
  staffdesk resources
  staffdesk resources --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if resourcesJSON {
			return outputResourcesJSON(cmd.OutOrStdout(), catalog.All())
		}
		outputResourcesTable(cmd.OutOrStdout(), catalog.All())
		return nil
	},
}

func outputResourcesTable(out io.Writer, all []catalog.Resource) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTITLE\tPAGE\tSCOPE\tAUTH\tDELETE\tOPENS")
	fmt.Fprintln(w, "────\t─────\t────\t─────\t────\t──────\t─────")

	for _, r := range all {
		scope := r.Scope.String()
		if r.Parent != "" {
			scope += " (" + r.Parent + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.Name, r.Title, pageSizeFor(r), scope, yesNo(r.RequiresToken), yesNo(r.Deletable), dash(r.Child))
	}

	w.Flush()
	fmt.Fprintf(out, "\n%d resource(s)\n", len(all))
}

func outputResourcesJSON(out io.Writer, all []catalog.Resource) error {
	output := make([]map[string]any, len(all))
	for i, r := range all {
		fields := make([]string, len(r.Form))
		for j, f := range r.Form {
			fields[j] = f.Name
		}
		output[i] = map[string]any{
			"name":           r.Name,
			"title":          r.Title,
			"page_size":      pageSizeFor(r),
			"scope":          r.Scope.String(),
			"parent":         r.Parent,
			"child":          r.Child,
			"requires_token": r.RequiresToken,
			"deletable":      r.Deletable,
			"search_fields":  r.SearchFields,
			"form_fields":    fields,
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// pageSizeFor applies the [resources.<name>] override, if any.
func pageSizeFor(r catalog.Resource) int {
	if n := cfg.PageSize(r.Name); n > 0 {
		return n
	}
	return r.PageSize
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
	resourcesCmd.Flags().BoolVar(&resourcesJSON, "json", false, "Output as JSON")
}
