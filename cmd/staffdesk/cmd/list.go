package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/export"
	"github.com/staffdesk/staffdesk/internal/listview"
	"github.com/staffdesk/staffdesk/internal/textutil"
)

var (
	listParent   string
	listSearch   string
	listPage     int
	listPageSize int
	listAll      bool
	listJSON     bool
	listCSV      bool
)

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "List one page of a resource",
	Long: `Fetch a resource from the platform API, filter it locally by a search
term and print one page of it.

The search matches case-insensitively against the resource's searchable
fields. Run 'staffdesk resources' to see every resource name.

Examples:
  staffdesk list clients
  staffdesk list jobs --search cover --page 2
  staffdesk list client-users --parent 12
  staffdesk list invoices --all --csv > invoices.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if listJSON && listCSV {
		return fmt.Errorf("--json and --csv are mutually exclusive")
	}
	if listPageSize < 0 || listPageSize > 100 {
		return fmt.Errorf("--page-size must be between 1 and 100")
	}

	res, err := lookupResource(args[0])
	if err != nil {
		return err
	}
	if err := requireParent(res, listParent); err != nil {
		return err
	}
	coll, err := openCollection(res, listParent)
	if err != nil {
		return err
	}

	pageSize := listPageSize
	if pageSize == 0 {
		pageSize = pageSizeFor(res)
	}
	ctrl := coll.NewController(pageSize, nil, logger)
	ctrl.Load(cmd.Context())
	ctrl.SetSearchTerm(listSearch)

	st := ctrl.State()
	if st.Err != nil {
		return explain(fmt.Errorf("list %s: %w", res.Name, st.Err))
	}

	if listPage > 0 && listPage != st.Page {
		if !ctrl.GoToPage(listPage) {
			return fmt.Errorf("page %d is out of range (1-%d)", listPage, max(st.TotalPages, 1))
		}
		st = ctrl.State()
	}

	recs := st.PageSlice
	if listAll {
		recs = st.Filtered
	}

	out := cmd.OutOrStdout()
	switch {
	case listJSON:
		return export.WriteCollection(out, res, recs, export.FormatJSON)
	case listCSV:
		return export.WriteCollection(out, res, recs, export.FormatCSV)
	}

	if st.Empty() {
		if st.SearchTerm != "" {
			fmt.Fprintf(out, "No %s match %q.\n", strings.ToLower(res.Title), st.SearchTerm)
		} else {
			fmt.Fprintf(out, "No %s yet.\n", strings.ToLower(res.Title))
		}
		return nil
	}

	outputRecordsTable(out, res, recs)
	fmt.Fprintln(out)
	fmt.Fprintln(out, pageSummary(st, listAll))
	return nil
}

// maxCellRunes keeps one long value from stretching every row of the table.
const maxCellRunes = 60

func outputRecordsTable(out io.Writer, res catalog.Resource, recs []catalog.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	headers := make([]string, len(res.Columns))
	rules := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		headers[i] = strings.ToUpper(c.Title)
		rules[i] = strings.Repeat("─", len([]rune(c.Title)))
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	fmt.Fprintln(w, strings.Join(rules, "\t"))

	for _, rec := range recs {
		row := res.Row(rec)
		for i, v := range row {
			v = textutil.TruncateRunes(textutil.Cell(v), maxCellRunes)
			if v == "" {
				v = "-"
			}
			row[i] = v
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// pageSummary describes which slice of the collection was printed.
func pageSummary(st listview.State[catalog.Record], all bool) string {
	n := len(st.Filtered)
	var sb strings.Builder
	if all {
		fmt.Fprintf(&sb, "%d record(s)", n)
	} else {
		start, end := listview.PageBounds(st.Page, st.PageSize, n)
		fmt.Fprintf(&sb, "page %d/%d, showing %d-%d of %d", st.Page, st.TotalPages, start+1, end, n)
	}
	if st.SearchTerm != "" {
		fmt.Fprintf(&sb, " (%d total, filter %q)", len(st.Records), st.SearchTerm)
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listParent, "parent", "", "Parent record id for nested resources")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Filter records by a search term")
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "Page to print")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Records per page (default: the resource's page size)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Print every matching record instead of one page")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listCSV, "csv", false, "Output as CSV")
}
