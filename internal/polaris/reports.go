package polaris

import (
	"context"

	"github.com/fjacquet/rubrik_polaris/internal/models"
)

// DefaultReportSize is the number of objects requested when
// ReportFilter.First is zero.
const DefaultReportSize = 1000

// ReportFilter narrows the protection report. Empty lists match everything.
type ReportFilter struct {
	ObjectTypes        []string
	ClusterIDs         []string
	ComplianceStatuses []string
	ProtectionStatuses []string
	First              int
}

func (f ReportFilter) variables() map[string]any {
	first := f.First
	if first <= 0 {
		first = DefaultReportSize
	}
	return map[string]any{
		"first": first,
		"filters": map[string]any{
			"objectType":       stringList(f.ObjectTypes),
			"complianceStatus": stringList(f.ComplianceStatuses),
			"protectionStatus": stringList(f.ProtectionStatuses),
			"cluster":          map[string]any{"id": stringList(f.ClusterIDs)},
		},
	}
}

// Reports returns the protection report rows matching f.
func (c *Client) Reports(ctx context.Context, f ReportFilter) ([]models.ReportEntry, error) {
	records, err := c.list(ctx, keyReports, f.variables())
	if err != nil {
		return nil, err
	}
	return decodeRecords[models.ReportEntry](keyReports, records)
}
