package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// The definition config serializes as one flat object: trigger config keys
// beside the node array. Clients depend on that shape.
func TestDefinitionConfigFlatJSON(t *testing.T) {
	config := DefinitionConfig{
		Nodes: []NodeDef{
			{Id: "t", Type: "trigger", NextNodeId: "a"},
			{Id: "a", Type: "action"},
		},
		TriggerConfig: map[string]any{"patient.source": "web"},
	}

	data, err := json.Marshal(config)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, "web", raw["patient.source"])
	require.Len(t, raw["nodes"], 2)

	var decoded DefinitionConfig
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Nodes, 2)
	require.Equal(t, "t", decoded.Nodes[0].Id)
	require.Equal(t, map[string]any{"patient.source": "web"}, decoded.TriggerConfig)
}

func TestDecodeDelayPayload(t *testing.T) {
	payload, err := DecodeDelayPayload(map[string]any{"unit": "hours", "amount": float64(2)})
	require.NoError(t, err)
	require.Equal(t, "hours", payload.Unit)
	require.Equal(t, 2, payload.Amount)

	_, err = DecodeDelayPayload(map[string]any{"unit": "fortnights", "amount": 1})
	require.Error(t, err)
	_, err = DecodeDelayPayload(map[string]any{"unit": "days", "amount": 0})
	require.Error(t, err)
}

func TestDecodeActionPayloadSplitsConfig(t *testing.T) {
	payload, err := DecodeActionPayload(map[string]any{
		"actionType": ACTION_TYPE_SEND_EMAIL,
		"recipient":  "x@y.z",
		"body":       "hi",
	})
	require.NoError(t, err)
	require.Equal(t, ACTION_TYPE_SEND_EMAIL, payload.ActionType)
	require.Equal(t, "x@y.z", payload.Config["recipient"])
	require.NotContains(t, payload.Config, "actionType")

	_, err = DecodeActionPayload(map[string]any{"recipient": "x@y.z"})
	require.Error(t, err)
}
