package polaris

import (
	"context"

	"github.com/tidwall/gjson"
)

// TaskHandle identifies a task chain started by a mutation.
type TaskHandle string

// TaskState is the state of a task chain as reported by Polaris. Values other
// than the constants below are passed through unchanged.
type TaskState string

// Known task chain states.
const (
	TaskPending   TaskState = "PENDING"
	TaskRunning   TaskState = "RUNNING"
	TaskSucceeded TaskState = "SUCCEEDED"
	TaskFailed    TaskState = "FAILED"
	TaskCanceled  TaskState = "CANCELED"
)

// IsTerminal reports whether the state can no longer change.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskCanceled:
		return true
	}
	return false
}

// Known reports whether s is one of the documented states.
func (s TaskState) Known() bool {
	switch s {
	case TaskPending, TaskRunning, TaskSucceeded, TaskFailed, TaskCanceled:
		return true
	}
	return false
}

// TaskStatus reads the current state of a task chain once.
func (c *Client) TaskStatus(ctx context.Context, handle TaskHandle) (TaskState, error) {
	env, err := c.run(ctx, keyTaskChainStatus, map[string]any{"filter": string(handle)})
	if err != nil {
		return "", err
	}

	state := gjson.GetBytes(env.Data, "taskchain.state")
	if state.Type != gjson.String {
		return "", &SchemaMismatchError{Operation: env.Operation(), Field: "taskchain.state", Message: "missing or not a string"}
	}

	if s := TaskState(state.Str); !s.Known() {
		c.log.WithField("task", handle).Debugf("Unrecognised task state %q", state.Str)
	}

	return TaskState(state.Str), nil
}
