// Package durablelog maintains the append-only, semicolon-delimited log of
// all play events ever merged, and the merge that deduplicates new events
// into it.
//
// The log assumes a single writer. Concurrent merges against the same file
// can interleave appends; schedule runs so they do not overlap.
package durablelog

import (
	"encoding/csv"
	"fmt"
	"os"

	apperrors "github.com/playlog/playlog/internal/errors"
)

// header is the fixed column order of the durable log.
var header = []string{"name", "album", "artist", "played_at", "date"}

// Row is one durable log entry. Rows are created at most once per unique
// played_at and never mutated or deleted.
type Row struct {
	Name     string
	Album    string
	Artist   string
	PlayedAt string
	Date     string
}

// Log is the semicolon-delimited durable log file.
type Log struct {
	path string
}

// New creates a Log handle for the given file path. The file itself is
// created lazily on first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Load reads all rows from the log. A missing file yields an empty table.
func (l *Log) Load() ([]Row, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.NewMergeError(apperrors.CodeLogReadFailed, "failed to open durable log", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewMergeError(apperrors.CodeLogReadFailed, "failed to parse durable log", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	if err := checkHeader(records[0]); err != nil {
		return nil, apperrors.NewMergeError(apperrors.CodeLogReadFailed, "unexpected durable log header", err)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, Row{
			Name:     rec[0],
			Album:    rec[1],
			Artist:   rec[2],
			PlayedAt: rec[3],
			Date:     rec[4],
		})
	}
	return rows, nil
}

// append writes rows to the end of the log, creating the file with its
// header on first use. Existing rows are never rewritten.
func (l *Log) append(rows []Row) error {
	_, statErr := os.Stat(l.path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return apperrors.NewMergeError(apperrors.CodeLogAppendFailed, "failed to open durable log for append", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	writer.Comma = ';'

	if needHeader {
		if err := writer.Write(header); err != nil {
			return apperrors.NewMergeError(apperrors.CodeLogAppendFailed, "failed to write header", err)
		}
	}
	for _, row := range rows {
		rec := []string{row.Name, row.Album, row.Artist, row.PlayedAt, row.Date}
		if err := writer.Write(rec); err != nil {
			return apperrors.NewMergeError(apperrors.CodeLogAppendFailed, "failed to append row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewMergeError(apperrors.CodeLogAppendFailed, "failed to flush durable log", err)
	}
	return nil
}

func checkHeader(rec []string) error {
	if len(rec) != len(header) {
		return fmt.Errorf("got %d columns, want %d", len(rec), len(header))
	}
	for i, col := range header {
		if rec[i] != col {
			return fmt.Errorf("column %d is %q, want %q", i, rec[i], col)
		}
	}
	return nil
}
