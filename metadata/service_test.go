package metadata_test

import (
	"testing"

	"github.com/praxida/careflow/action"
	"github.com/praxida/careflow/metadata"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence/inmem"
	"github.com/stretchr/testify/require"
)

func newService() *metadata.Service {
	return metadata.NewService(inmem.NewWorkflowStorage(), action.NewRegistry(action.NewLoggingCollaborators()))
}

func TestServiceCreate(t *testing.T) {
	service := newService()
	def, err := service.Create(model.WorkflowCreateRequest{
		Name:          "welcome-sequence",
		TriggerType:   "patient_created",
		TriggerConfig: map[string]any{"patient.source": "web"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, def.Version)
	require.False(t, def.Active)
	require.Len(t, def.Config.Nodes, 1)
	require.Equal(t, "trigger", def.Config.Nodes[0].Type)
	require.Equal(t, "web", def.Config.TriggerConfig["patient.source"])

	_, err = service.Create(model.WorkflowCreateRequest{Name: "welcome-sequence", TriggerType: "patient_created"})
	require.Error(t, err)

	_, err = service.Create(model.WorkflowCreateRequest{Name: "", TriggerType: "patient_created"})
	require.Error(t, err)

	_, err = service.Create(model.WorkflowCreateRequest{Name: "x", TriggerType: "meteor_strike"})
	require.Error(t, err)
}

func TestServiceEditorOperationsVersionEveryCommit(t *testing.T) {
	service := newService()
	def, err := service.Create(model.WorkflowCreateRequest{Name: "welcome-sequence", TriggerType: "patient_created"})
	require.NoError(t, err)
	triggerId := def.Config.Nodes[0].Id

	nodeId, version, err := service.InsertNode("welcome-sequence", model.NodeInsertRequest{
		ParentId: triggerId,
		Kind:     "action",
	})
	require.NoError(t, err)
	require.Equal(t, 2, version)

	version, err = service.UpdateNodePayload("welcome-sequence", nodeId, map[string]any{
		"user_id": "u1", "message": "welcome aboard",
	})
	require.NoError(t, err)
	require.Equal(t, 3, version)

	version, err = service.DeleteNode("welcome-sequence", nodeId)
	require.NoError(t, err)
	require.Equal(t, 4, version)

	latest, err := service.Get("welcome-sequence")
	require.NoError(t, err)
	require.Len(t, latest.Config.Nodes, 1)

	// earlier versions remain readable for pinned enrollments
	pinned, err := service.GetVersion("welcome-sequence", 2)
	require.NoError(t, err)
	require.Len(t, pinned.Config.Nodes, 2)
}

func TestServiceInsertErrors(t *testing.T) {
	service := newService()
	def, err := service.Create(model.WorkflowCreateRequest{Name: "welcome-sequence", TriggerType: "patient_created"})
	require.NoError(t, err)
	triggerId := def.Config.Nodes[0].Id

	_, _, err = service.InsertNode("welcome-sequence", model.NodeInsertRequest{ParentId: triggerId, Kind: "loop"})
	require.Error(t, err)

	_, _, err = service.InsertNode("welcome-sequence", model.NodeInsertRequest{ParentId: triggerId, Branch: "sideways", Kind: "action"})
	require.Error(t, err)

	_, _, err = service.InsertNode("no-such-workflow", model.NodeInsertRequest{ParentId: triggerId, Kind: "action"})
	require.Error(t, err)

	latest, err := service.Get("welcome-sequence")
	require.NoError(t, err)
	require.Equal(t, 1, latest.Version)
}

func TestServiceActivationValidatesConfigs(t *testing.T) {
	service := newService()
	def, err := service.Create(model.WorkflowCreateRequest{Name: "welcome-sequence", TriggerType: "patient_created"})
	require.NoError(t, err)
	triggerId := def.Config.Nodes[0].Id

	nodeId, _, err := service.InsertNode("welcome-sequence", model.NodeInsertRequest{
		ParentId: triggerId,
		Kind:     "action",
	})
	require.NoError(t, err)

	// the default notification payload has no user_id or message yet
	require.Error(t, service.SetActive("welcome-sequence", true))

	_, err = service.UpdateNodePayload("welcome-sequence", nodeId, map[string]any{
		"user_id": "u1", "message": "welcome aboard",
	})
	require.NoError(t, err)
	require.NoError(t, service.SetActive("welcome-sequence", true))

	latest, err := service.Get("welcome-sequence")
	require.NoError(t, err)
	require.True(t, latest.Active)

	require.NoError(t, service.SetActive("welcome-sequence", false))
	latest, err = service.Get("welcome-sequence")
	require.NoError(t, err)
	require.False(t, latest.Active)
}

func TestServiceGetGraphServesValidatedVersions(t *testing.T) {
	service := newService()
	def, err := service.Create(model.WorkflowCreateRequest{Name: "welcome-sequence", TriggerType: "patient_created"})
	require.NoError(t, err)
	triggerId := def.Config.Nodes[0].Id

	nodeId, version, err := service.InsertNode("welcome-sequence", model.NodeInsertRequest{
		ParentId: triggerId,
		Kind:     "action",
	})
	require.NoError(t, err)

	// version 2 has an incomplete action config and is not servable
	_, err = service.GetGraph("welcome-sequence", version)
	require.Error(t, err)

	version, err = service.UpdateNodePayload("welcome-sequence", nodeId, map[string]any{
		"user_id": "u1", "message": "welcome aboard",
	})
	require.NoError(t, err)

	g, err := service.GetGraph("welcome-sequence", version)
	require.NoError(t, err)
	require.Equal(t, triggerId, g.TriggerId())
	require.Equal(t, 2, g.Len())

	// second read hits the cache and returns the same immutable graph
	again, err := service.GetGraph("welcome-sequence", version)
	require.NoError(t, err)
	require.Same(t, g, again)
}
