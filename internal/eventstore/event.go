// Package eventstore provides a content-addressed local cache of raw play
// events, one JSON file per unique played_at timestamp.
package eventstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PlayEvent is one record of a single track playback.
type PlayEvent struct {
	// Name is the track name.
	Name string
	// Album is the album name.
	Album string
	// Artists holds the artist names in source order.
	Artists []string
	// PlayedAt is the exact timestamp string as returned by the source.
	// It is the dedup identity and is never reparsed or rounded for that
	// purpose.
	PlayedAt string
	// Raw is the opaque source document for this event.
	Raw json.RawMessage
}

// ArtistLine returns the artists joined for display and for the durable log
// column.
func (e PlayEvent) ArtistLine() string {
	return strings.Join(e.Artists, ", ")
}

// Date returns the calendar day of the play in the source timezone (UTC),
// as YYYY-MM-DD. Fractional seconds are ignored.
func (e PlayEvent) Date() (string, error) {
	t, err := ParsePlayedAt(e.PlayedAt)
	if err != nil {
		return "", err
	}
	return t.UTC().Format("2006-01-02"), nil
}

// ParsePlayedAt parses a source timestamp: ISO-8601 in UTC with optional
// fractional seconds, e.g. "2025-01-15T23:30:00.123Z". This is the single
// timestamp parser for the whole pipeline.
func ParsePlayedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad played_at %q: %w", s, err)
	}
	return t, nil
}

// rawItem mirrors the upstream recently-played item shape.
type rawItem struct {
	PlayedAt string `json:"played_at"`
	Track    struct {
		Name  string `json:"name"`
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"track"`
}

// DecodeEvent decodes a raw source document into a PlayEvent, keeping the
// original bytes attached.
func DecodeEvent(raw []byte) (PlayEvent, error) {
	var item rawItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return PlayEvent{}, fmt.Errorf("undecodable play event: %w", err)
	}
	if item.PlayedAt == "" {
		return PlayEvent{}, fmt.Errorf("play event has no played_at")
	}

	event := PlayEvent{
		Name:     item.Track.Name,
		Album:    item.Track.Album.Name,
		PlayedAt: item.PlayedAt,
		Raw:      json.RawMessage(append([]byte(nil), raw...)),
	}
	for _, a := range item.Track.Artists {
		event.Artists = append(event.Artists, a.Name)
	}
	return event, nil
}
