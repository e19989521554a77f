package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshTask_ValueDecodesBack(t *testing.T) {
	t.Parallel()

	requested := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	original := &RefreshTask{Reason: "schedule", RequestedAt: requested, RetryCount: 2}

	require.Equal(t, "RefreshTask", original.TaskType())

	data, err := original.TaskValue()
	require.NoError(t, err)
	require.JSONEq(t, `{"reason":"schedule","requested_at":"2025-03-01T10:00:00Z","retry_count":2}`, string(data))

	decoded, err := UnmarshalTask[RefreshTask](data)
	require.NoError(t, err)
	require.Equal(t, original.Reason, decoded.Reason)
	require.True(t, requested.Equal(decoded.RequestedAt))
	require.Equal(t, 2, decoded.RetryCount)
}

func TestUnmarshalTask_InvalidData(t *testing.T) {
	t.Parallel()

	decoded, err := UnmarshalTask[RefreshTask]([]byte(`{"reason":`))
	require.Error(t, err)
	require.Nil(t, decoded)
}
