// Package report derives play-count aggregates from the durable log and
// renders them as Semantic MediaWiki subobject markup.
package report

import (
	"github.com/playlog/playlog/internal/durablelog"
)

// AggregateRow is one play-count group. Aggregates are recomputed from the
// full log on every run and never persisted.
type AggregateRow struct {
	Name   string
	Album  string
	Artist string
	Date   string
	Count  int
}

type groupKey struct {
	name   string
	album  string
	artist string
	date   string
}

// Aggregate groups log rows by (name, album, artist, date) and counts each
// group. Output order follows first appearance in the log, which makes the
// result deterministic for a given log.
func Aggregate(rows []durablelog.Row) []AggregateRow {
	counts := make(map[groupKey]int, len(rows))
	var order []groupKey

	for _, row := range rows {
		key := groupKey{row.Name, row.Album, row.Artist, row.Date}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	result := make([]AggregateRow, 0, len(order))
	for _, key := range order {
		result = append(result, AggregateRow{
			Name:   key.name,
			Album:  key.album,
			Artist: key.artist,
			Date:   key.date,
			Count:  counts[key],
		})
	}
	return result
}
