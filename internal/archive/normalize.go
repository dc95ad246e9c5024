// Package archive normalizes cached play events and uploads them to the
// object store under day-partitioned keys.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/playlog/playlog/internal/errors"
	"github.com/playlog/playlog/internal/eventstore"
)

// Normalizer converts a raw play-event document into its archival form:
// played_at rewritten to target-timezone wall-clock time at second
// precision, and every occurrence of a configured field removed.
type Normalizer struct {
	loc        *time.Location
	stripField string
}

// NewNormalizer creates a Normalizer for the given IANA timezone name.
func NewNormalizer(timezone, stripField string) (*Normalizer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}
	return &Normalizer{loc: loc, stripField: stripField}, nil
}

// Normalize parses a raw document and returns the archival document along
// with the converted local timestamp used for key derivation.
func (n *Normalizer) Normalize(raw []byte) (map[string]interface{}, time.Time, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, time.Time{}, apperrors.NewArchiveError(apperrors.CodeMalformedInput,
			"document is not valid JSON", err)
	}

	playedAt, ok := doc["played_at"].(string)
	if !ok {
		return nil, time.Time{}, apperrors.NewArchiveError(apperrors.CodeBadTimestamp,
			"document has no played_at string", nil)
	}

	utc, err := eventstore.ParsePlayedAt(playedAt)
	if err != nil {
		return nil, time.Time{}, apperrors.NewArchiveError(apperrors.CodeBadTimestamp,
			"unparseable played_at", err)
	}

	local := utc.In(n.loc)
	doc["played_at"] = local.Format("2006-01-02T15:04:05")

	stripped, ok := StripField(doc, n.stripField).(map[string]interface{})
	if !ok {
		// Cannot happen: stripping preserves container types
		return nil, time.Time{}, apperrors.NewArchiveError(apperrors.CodeMalformedInput,
			"document lost its top-level object while stripping", nil)
	}
	return stripped, local, nil
}

// StripField removes every occurrence of field from the document tree, at
// any nesting depth, in both objects and arrays. Scalars pass through
// unchanged.
func StripField(node interface{}, field string) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if key == field {
				continue
			}
			out[key] = StripField(value, field)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = StripField(item, field)
		}
		return out
	default:
		return v
	}
}

// DestinationKey derives the object key for an archived record from the
// CONVERTED local timestamp:
//
//	<prefix>/year=YYYY/month=MM/day=DD/<local-timestamp-no-colons>.json
//
// Partitioning is per day; the hour is part of the filename but not of the
// path.
func DestinationKey(prefix string, local time.Time) string {
	return fmt.Sprintf("%s/year=%s/month=%s/day=%s/%s.json",
		prefix,
		local.Format("2006"),
		local.Format("01"),
		local.Format("02"),
		local.Format("2006-01-02T15_04_05"),
	)
}
