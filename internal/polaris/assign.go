package polaris

import (
	"context"
	"errors"

	"github.com/tidwall/gjson"
)

// SLAAssignType selects what an SLA assignment does.
type SLAAssignType string

// Assignment types.
const (
	AssignProtectWithSLA SLAAssignType = "protectWithSlaId"
	AssignDoNotProtect   SLAAssignType = "doNotProtect"
	AssignNoAssignment   SLAAssignType = "noAssignment"
)

// SnapshotRetention is what happens to existing snapshots when protection
// is removed.
type SnapshotRetention string

// Existing-snapshot retention choices.
const (
	RetainSnapshots   SnapshotRetention = "RETAIN_SNAPSHOTS"
	KeepForever       SnapshotRetention = "KEEP_FOREVER"
	ExpireImmediately SnapshotRetention = "EXPIRE_IMMEDIATELY"
)

// SLAAssignment describes an SLA change for a set of objects.
type SLAAssignment struct {
	ObjectIDs []string
	SLAID     string

	// AssignType defaults to AssignProtectWithSLA
	AssignType SLAAssignType

	// ApplyToExistingSnapshots is sent as null when nil
	ApplyToExistingSnapshots *bool

	// ExistingSnapshotRetention is sent as null when empty
	ExistingSnapshotRetention SnapshotRetention
}

func (a SLAAssignment) variables() (map[string]any, error) {
	if len(a.ObjectIDs) == 0 {
		return nil, errors.New("polaris: SLA assignment needs at least one object id")
	}

	assignType := a.AssignType
	if assignType == "" {
		assignType = AssignProtectWithSLA
	}
	if assignType == AssignProtectWithSLA && a.SLAID == "" {
		return nil, errors.New("polaris: SLA assignment of type protectWithSlaId needs an SLA id")
	}

	vars := map[string]any{
		"objectIds":                      a.ObjectIDs,
		"globalSlaAssignType":            string(assignType),
		"slaId":                          nil,
		"shouldApplyToExistingSnapshots": nil,
		"existingSnapshotRetention":      nil,
	}
	if a.SLAID != "" {
		vars["slaId"] = a.SLAID
	}
	if a.ApplyToExistingSnapshots != nil {
		vars["shouldApplyToExistingSnapshots"] = *a.ApplyToExistingSnapshots
	}
	if a.ExistingSnapshotRetention != "" {
		vars["existingSnapshotRetention"] = string(a.ExistingSnapshotRetention)
	}
	return vars, nil
}

// AssignSLA applies an SLA assignment and returns the success flag Polaris
// reported.
func (c *Client) AssignSLA(ctx context.Context, a SLAAssignment) (bool, error) {
	vars, err := a.variables()
	if err != nil {
		return false, err
	}

	env, err := c.run(ctx, keySLAAssign, vars)
	if err != nil {
		return false, err
	}

	success := gjson.GetBytes(env.Data, "assignSla.success")
	if !success.IsBool() {
		return false, &SchemaMismatchError{Operation: env.Operation(), Field: "assignSla.success", Message: "missing or not a boolean"}
	}
	return success.Bool(), nil
}
