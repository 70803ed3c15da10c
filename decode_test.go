package agentpulse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStatuses_SingleRecord(t *testing.T) {
	body := []byte(`[{"name":"A","status":"busy","last_task":"build","last_task_time":"2024-01-01T00:00:00Z","tasks_completed":5,"success_rate":0.8}]`)

	got, err := DecodeStatuses(body)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, AgentStatus{
		Name:           "A",
		State:          StateBusy,
		LastTask:       "build",
		LastTaskTime:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TasksCompleted: 5,
		SuccessRate:    0.8,
	}, got[0])
}

func TestDecodeStatuses_PreservesOrder(t *testing.T) {
	body := []byte(`[
		{"name":"zeta","status":"idle"},
		{"name":"alpha","status":"busy"},
		{"name":"mid","status":"error"}
	]`)

	got, err := DecodeStatuses(body)
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, a := range got {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestDecodeStatuses_UnknownStatusNormalizes(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{"unrecognised string", `"weird-value"`},
		{"empty string", `""`},
		{"null", `null`},
		{"number", `42`},
		{"object", `{"state":"busy"}`},
		{"bool", `true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`[{"name":"B","status":` + tt.status + `,"tasks_completed":1,"success_rate":1}]`)
			got, err := DecodeStatuses(body)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, StateUnknown, got[0].State)
		})
	}
}

func TestDecodeStatuses_MissingStatusIsUnknown(t *testing.T) {
	got, err := DecodeStatuses([]byte(`[{"name":"B"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StateUnknown, got[0].State)
}

func TestDecodeStatuses_CorruptStatusKeepsRestOfBatch(t *testing.T) {
	body := []byte(`[
		{"name":"ok-1","status":"idle","tasks_completed":1,"success_rate":0.5},
		{"name":"bad","status":"on-fire","tasks_completed":2,"success_rate":0.5},
		{"name":"ok-2","status":"busy","tasks_completed":3,"success_rate":0.5}
	]`)

	got, err := DecodeStatuses(body)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, StateIdle, got[0].State)
	assert.Equal(t, StateUnknown, got[1].State)
	assert.Equal(t, StateBusy, got[2].State)
}

func TestDecodeStatuses_BadTimestampIsZero(t *testing.T) {
	for _, ts := range []string{`"yesterday"`, `""`, `null`, `1704067200`} {
		got, err := DecodeStatuses([]byte(`[{"name":"A","status":"idle","last_task_time":` + ts + `}]`))
		require.NoError(t, err, "last_task_time=%s", ts)
		assert.True(t, got[0].LastTaskTime.IsZero(), "last_task_time=%s", ts)
	}
}

func TestDecodeStatuses_EmptyArray(t *testing.T) {
	got, err := DecodeStatuses([]byte(` [] `))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecodeStatuses_DocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"whitespace", "  \n"},
		{"null", `null`},
		{"object", `{"agents":[]}`},
		{"truncated", `[{"name":"A"`},
		{"html", `<html>502 Bad Gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStatuses([]byte(tt.body))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "error %v is not a *ParseError", err)
			assert.Equal(t, -1, perr.Index)
		})
	}
}

func TestDecodeStatuses_RecordErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		index int
	}{
		{"not an object", `[{"name":"A"}, 7]`, 1},
		{"null record", `[null]`, 0},
		{"missing name", `[{"status":"idle"}]`, 0},
		{"numeric name", `[{"name":12}]`, 0},
		{"duplicate name", `[{"name":"A"},{"name":"B"},{"name":"A"}]`, 2},
		{"string counter", `[{"name":"A","tasks_completed":"five"}]`, 0},
		{"fractional counter", `[{"name":"A","tasks_completed":1.5}]`, 0},
		{"negative counter", `[{"name":"A","tasks_completed":-1}]`, 0},
		{"rate above one", `[{"name":"A","success_rate":80}]`, 0},
		{"negative rate", `[{"name":"A","success_rate":-0.1}]`, 0},
		{"string rate", `[{"name":"A","success_rate":"0.5"}]`, 0},
		{"object last_task", `[{"name":"A","last_task":{"id":1}}]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStatuses([]byte(tt.body))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "error %v is not a *ParseError", err)
			assert.Equal(t, tt.index, perr.Index)
		})
	}
}

func TestDecodeStatuses_IgnoresUnknownFields(t *testing.T) {
	got, err := DecodeStatuses([]byte(`[{"name":"A","status":"idle","region":"eu","tags":["x"]}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
}

func TestDecodeStatuses_BoundaryRates(t *testing.T) {
	got, err := DecodeStatuses([]byte(`[{"name":"A","success_rate":0},{"name":"B","success_rate":1}]`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0].SuccessRate)
	assert.Equal(t, 1.0, got[1].SuccessRate)
}
