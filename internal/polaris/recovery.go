package polaris

import (
	"fmt"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/models"
)

// Latest selects the most recent snapshot.
const Latest = "latest"

// Layouts accepted for recovery points without a zone offset; they are
// interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseRecoveryPoint parses a recovery-point timestamp. Values carrying an
// offset (RFC 3339) keep it; others are read in loc, time.Local when nil.
func ParseRecoveryPoint(target string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, target); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, target, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("polaris: invalid recovery point %q: use %q or a timestamp such as 2006-01-02T15:04:05", target, Latest)
}

// SelectRecoveryPoint picks one snapshot. With target "latest" it is the one
// with the greatest date. Otherwise it is the snapshot closest to target
// among those taken at or after it. Ties keep the earlier list position.
func SelectRecoveryPoint(snapshots []models.Snapshot, target string, loc *time.Location) (models.Snapshot, error) {
	if target == Latest {
		return latestSnapshot(snapshots)
	}

	point, err := ParseRecoveryPoint(target, loc)
	if err != nil {
		return models.Snapshot{}, err
	}

	best := -1
	var bestDistance time.Duration
	for i, s := range snapshots {
		date, err := snapshotDate(s)
		if err != nil {
			return models.Snapshot{}, err
		}
		if date.Before(point) {
			continue
		}
		if d := date.Sub(point); best < 0 || d < bestDistance {
			best, bestDistance = i, d
		}
	}

	if best < 0 {
		return models.Snapshot{}, &NotFoundError{Kind: "snapshot at or after", Name: target}
	}
	return snapshots[best], nil
}

func latestSnapshot(snapshots []models.Snapshot) (models.Snapshot, error) {
	if len(snapshots) == 0 {
		return models.Snapshot{}, &NotFoundError{Kind: "snapshot", Name: Latest}
	}

	best := 0
	bestDate, err := snapshotDate(snapshots[0])
	if err != nil {
		return models.Snapshot{}, err
	}
	for i := 1; i < len(snapshots); i++ {
		date, err := snapshotDate(snapshots[i])
		if err != nil {
			return models.Snapshot{}, err
		}
		if date.After(bestDate) {
			best, bestDate = i, date
		}
	}
	return snapshots[best], nil
}

func snapshotDate(s models.Snapshot) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s.Date)
	if err != nil {
		return time.Time{}, &SchemaMismatchError{
			Operation: "snapshots",
			Field:     "date",
			Message:   fmt.Sprintf("snapshot %s has an unparseable date %q", s.ID, s.Date),
		}
	}
	return t, nil
}
