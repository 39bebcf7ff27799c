package polaris

import (
	"context"
	"net/http"
	"testing"

	"github.com/fjacquet/rubrik_polaris/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskChainData(state any) map[string]any {
	return map[string]any{
		"taskchain": map[string]any{
			"id":            "1",
			"taskchainUuid": testutil.TestTaskChainID,
			"state":         state,
			"progressedAt":  "2024-05-01T10:00:00Z",
		},
	}
}

func TestTaskStateIsTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
		known    bool
	}{
		{TaskPending, false, true},
		{TaskRunning, false, true},
		{TaskSucceeded, true, true},
		{TaskFailed, true, true},
		{TaskCanceled, true, true},
		{TaskState("QUEUED"), false, false},
		{TaskState(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
			assert.Equal(t, tt.known, tt.state.Known())
		})
	}
}

func TestTaskStatus(t *testing.T) {
	for _, state := range []string{"PENDING", "RUNNING", "SUCCEEDED", "FAILED", "CANCELED", "UNDOING"} {
		t.Run(state, func(t *testing.T) {
			mock := testutil.NewMockServer().WithOperation("TaskChainStatus", taskChainData(state))
			client := newTestClient(t, mock)

			got, err := client.TaskStatus(context.Background(), TaskHandle(testutil.TestTaskChainID))
			require.NoError(t, err)
			assert.Equal(t, TaskState(state), got)

			reqs := mock.Requests()
			require.Len(t, reqs, 1)
			assert.Equal(t, testutil.TestTaskChainID, reqs[0].Variables["filter"])
		})
	}
}

func TestTaskStatusTerminalIsStable(t *testing.T) {
	mock := testutil.NewMockServer().WithOperation("TaskChainStatus", taskChainData("SUCCEEDED"))
	client := newTestClient(t, mock)

	for i := 0; i < 5; i++ {
		got, err := client.TaskStatus(context.Background(), TaskHandle(testutil.TestTaskChainID))
		require.NoError(t, err)
		assert.Equal(t, TaskSucceeded, got)
		assert.True(t, got.IsTerminal())
	}
	assert.Len(t, mock.Requests(), 5, "each call is exactly one request")
}

func TestTaskStatusErrors(t *testing.T) {
	t.Run("missing state", func(t *testing.T) {
		mock := testutil.NewMockServer().WithOperation("TaskChainStatus", map[string]any{"taskchain": map[string]any{"id": "1"}})
		client := newTestClient(t, mock)

		_, err := client.TaskStatus(context.Background(), "x")
		var mismatch *SchemaMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "taskchain.state", mismatch.Field)
	})

	t.Run("graphql error", func(t *testing.T) {
		mock := testutil.NewMockServer().WithOperationHandler("TaskChainStatus", func(testutil.GraphQLRequest) (int, any) {
			return http.StatusOK, map[string]any{"data": nil, "errors": []map[string]any{{"message": "no such task chain"}}}
		})
		client := newTestClient(t, mock)

		_, err := client.TaskStatus(context.Background(), "x")
		var gqlErr *GraphQLError
		require.ErrorAs(t, err, &gqlErr)
		assert.Contains(t, gqlErr.Error(), "no such task chain")
	})
}
