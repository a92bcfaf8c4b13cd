// Package export writes fetched collections to JSON or CSV files and
// takes timestamped snapshots of resources.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json", "csv" or "" (json).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or csv)", s)
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// WriteCollection encodes recs to w. JSON output is an indented array of
// the records as the API returned them. CSV output has an id column
// followed by the resource's table columns.
func WriteCollection(w io.Writer, res catalog.Resource, recs []catalog.Record, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, res, recs)
	case FormatJSON, "":
		return writeJSON(w, recs)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeJSON(w io.Writer, recs []catalog.Record) error {
	if recs == nil {
		recs = []catalog.Record{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if _, err := w.Write(pretty.Pretty(data)); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, res catalog.Resource, recs []catalog.Record) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(res.Columns)+1)
	header = append(header, "id")
	for _, c := range res.Columns {
		header = append(header, c.Title)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range recs {
		row := append([]string{res.ID(rec)}, res.Row(rec)...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
