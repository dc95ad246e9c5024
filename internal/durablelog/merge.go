package durablelog

import (
	"log"

	"github.com/playlog/playlog/internal/eventstore"
)

// MergeNew reconciles the full event listing against the log and appends
// only rows whose played_at is not already present, returning the count
// added. Deduplication is exact string equality on played_at: a trailing
// precision or zone difference in the source string produces a new row.
//
// The caller passes the ENTIRE cache listing, not just freshly fetched
// events, so a run that crashed after fetching but before merging is backed
// up by the next run.
func (l *Log) MergeNew(events []eventstore.PlayEvent) (int, error) {
	existing, err := l.Load()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		seen[row.PlayedAt] = struct{}{}
	}

	var fresh []Row
	for _, event := range events {
		if _, ok := seen[event.PlayedAt]; ok {
			continue
		}
		date, err := event.Date()
		if err != nil {
			log.Printf("Skipping event with unparseable played_at %q: %v", event.PlayedAt, err)
			continue
		}
		fresh = append(fresh, Row{
			Name:     event.Name,
			Album:    event.Album,
			Artist:   event.ArtistLine(),
			PlayedAt: event.PlayedAt,
			Date:     date,
		})
		seen[event.PlayedAt] = struct{}{}
	}

	if len(fresh) == 0 {
		return 0, nil
	}
	if err := l.append(fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
