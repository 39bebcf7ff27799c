package polaris

import (
	"context"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/utils"
)

// EventFilter narrows an event listing. Empty lists match everything.
type EventFilter struct {
	ObjectTypes   []string
	Statuses      []string
	ActivityTypes []string
	Severities    []string
	ClusterIDs    []string
	ObjectName    string

	// Since and Until bound lastUpdated; zero values leave the window open
	Since time.Time
	Until time.Time

	// First limits the number of series returned; zero lets the server decide
	First int
}

func (f EventFilter) variables() map[string]any {
	filters := map[string]any{
		"objectType":         stringList(f.ObjectTypes),
		"lastActivityStatus": stringList(f.Statuses),
		"lastActivityType":   stringList(f.ActivityTypes),
		"severity":           stringList(f.Severities),
		"cluster":            map[string]any{"id": stringList(f.ClusterIDs)},
		"objectName":         f.ObjectName,
		"lastUpdated_gt":     nil,
		"lastUpdated_lt":     nil,
	}
	if !f.Since.IsZero() {
		filters["lastUpdated_gt"] = utils.ConvertTimeToPolarisDate(f.Since)
	}
	if !f.Until.IsZero() {
		filters["lastUpdated_lt"] = utils.ConvertTimeToPolarisDate(f.Until)
	}

	vars := map[string]any{"filters": filters}
	if f.First > 0 {
		vars["first"] = f.First
	}
	return vars
}

// Events lists activity series matching f.
func (c *Client) Events(ctx context.Context, f EventFilter) ([]models.Event, error) {
	records, err := c.list(ctx, keyEvents, f.variables())
	if err != nil {
		return nil, err
	}
	return decodeRecords[models.Event](keyEvents, records)
}
