package report

import (
	"fmt"
	"os"
	"strings"
)

// Render serializes aggregate rows as concatenated {{#subobject:}} blocks.
// Field values are inserted verbatim; names containing wiki markup
// characters will break the target page. That is the caller's problem, by
// contract.
func Render(rows []AggregateRow) string {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, `
{{#subobject:
 | log=Spotify
 | date=%s
 | song=%s
 | album=%s
 | artist=%s
 | count=%d
}}`, row.Date, row.Name, row.Album, row.Artist, row.Count)
	}
	return b.String()
}

// WriteFile renders the rows and writes the result to path.
func WriteFile(path string, rows []AggregateRow) error {
	if err := os.WriteFile(path, []byte(Render(rows)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
