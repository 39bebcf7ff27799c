package polaris

import (
	"context"

	"github.com/fjacquet/rubrik_polaris/internal/models"
)

// Snapshots lists the snapshots of a snappable object.
//
// recoveryPoint selects what comes back:
//   - "" returns every snapshot, possibly none;
//   - "latest" asks for the newest snapshot only and returns it;
//   - a timestamp returns the closest snapshot taken at or after it.
//
// An object without snapshots yields an empty slice whatever recoveryPoint
// is. A selection that matches none of the existing snapshots is a
// *NotFoundError.
func (c *Client) Snapshots(ctx context.Context, snappableID, recoveryPoint string) ([]models.Snapshot, error) {
	vars := map[string]any{"snappable_id": snappableID}

	switch recoveryPoint {
	case "":
	case Latest:
		vars["first"] = 1
	default:
		if _, err := ParseRecoveryPoint(recoveryPoint, c.location); err != nil {
			return nil, err
		}
	}

	records, err := c.list(ctx, keySnapshots, vars)
	if err != nil {
		return nil, err
	}
	snapshots, err := decodeRecords[models.Snapshot](keySnapshots, records)
	if err != nil {
		return nil, err
	}

	if recoveryPoint == "" || len(snapshots) == 0 {
		return snapshots, nil
	}

	selected, err := SelectRecoveryPoint(snapshots, recoveryPoint, c.location)
	if err != nil {
		return nil, err
	}
	return []models.Snapshot{selected}, nil
}
