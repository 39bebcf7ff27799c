package polaris

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/tidwall/gjson"
)

// SubmitOnDemand requests an on-demand snapshot of objectIDs retained under
// slaID. Objects Polaris refused are listed in the result's Errors; they do
// not fail the call.
func (c *Client) SubmitOnDemand(ctx context.Context, objectIDs []string, slaID string) (models.OnDemandResult, error) {
	if len(objectIDs) == 0 {
		return models.OnDemandResult{}, errors.New("polaris: on-demand snapshot needs at least one object id")
	}

	env, err := c.run(ctx, keyOnDemand, map[string]any{
		"objectIds": objectIDs,
		"slaId":     slaID,
	})
	if err != nil {
		return models.OnDemandResult{}, err
	}

	payload := gjson.GetBytes(env.Data, "onDemand")
	if !payload.IsObject() {
		return models.OnDemandResult{}, &SchemaMismatchError{Operation: env.Operation(), Field: "onDemand", Message: "missing or not an object"}
	}

	var result models.OnDemandResult
	if err := json.Unmarshal([]byte(payload.Raw), &result); err != nil {
		return models.OnDemandResult{}, &SchemaMismatchError{Operation: env.Operation(), Field: "onDemand", Message: err.Error()}
	}
	if result.TaskChains == nil {
		result.TaskChains = []models.TaskChainRef{}
	}
	if result.Errors == nil {
		result.Errors = []models.ObjectError{}
	}

	c.log.WithField("operation", env.Operation()).Debugf("On-demand snapshot submitted: %d task chains, %d errors",
		len(result.TaskChains), len(result.Errors))

	return result, nil
}

// TaskHandles returns the task chain handles of an on-demand submission.
func TaskHandles(r models.OnDemandResult) []TaskHandle {
	handles := make([]TaskHandle, 0, len(r.TaskChains))
	for _, tc := range r.TaskChains {
		handles = append(handles, TaskHandle(tc.TaskChainUUID))
	}
	return handles
}
