package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/praxida/careflow/action"
	"github.com/praxida/careflow/engine"
	"github.com/praxida/careflow/event"
	"github.com/praxida/careflow/metadata"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence/inmem"
	"github.com/praxida/careflow/rest"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) Notify(userId string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func newTestServer(t *testing.T) (*httptest.Server, *countingNotifier) {
	t.Helper()
	notifier := &countingNotifier{}
	registry := action.NewRegistry(action.Collaborators{Notifier: notifier})
	service := metadata.NewService(inmem.NewWorkflowStorage(), registry)
	enrollments := inmem.NewEnrollmentStorage()
	markers := inmem.NewMarkerStore()
	runner := engine.NewRunner(service, enrollments, inmem.NewDelayQueue(4),
		markers, registry, engine.DefaultRetryPolicy())
	wg := &sync.WaitGroup{}
	intake := event.NewIntake(service, runner, markers, wg, 16)
	intake.Start()
	t.Cleanup(intake.Stop)

	server, err := rest.NewServer(0, service, intake, enrollments)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts, notifier
}

func doJSON(t *testing.T, method string, url string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServerWorkflowLifecycle(t *testing.T) {
	ts, notifier := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/metadata/workflow", model.WorkflowCreateRequest{
		Name:        "welcome-sequence",
		TriggerType: "patient_created",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	def := decode[model.WorkflowDefinition](t, resp)
	require.Equal(t, 1, def.Version)
	triggerId := def.Config.Nodes[0].Id

	resp = doJSON(t, http.MethodPost, ts.URL+"/metadata/workflow/welcome-sequence/node", model.NodeInsertRequest{
		ParentId: triggerId,
		Kind:     "action",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inserted := decode[model.NodeInsertResponse](t, resp)
	require.Equal(t, 2, inserted.Version)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/metadata/workflow/welcome-sequence/node/"+inserted.NodeId, map[string]any{
		"user_id": "u1", "message": "new patient arrived",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/metadata/workflow/welcome-sequence/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/metadata/workflow", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defs := decode[[]model.WorkflowDefinition](t, resp)
	require.Len(t, defs, 1)
	require.True(t, defs[0].Active)

	resp = doJSON(t, http.MethodPost, ts.URL+"/event", model.Event{
		Id:          "evt-1",
		TriggerType: "patient_created",
		Snapshot:    map[string]any{"patient": map[string]any{"name": "Ada"}},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, func() bool { return notifier.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/metadata/workflow/welcome-sequence", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/metadata/workflow/welcome-sequence", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServerRejectsBadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/metadata/workflow", model.WorkflowCreateRequest{
		Name:        "x",
		TriggerType: "meteor_strike",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/metadata/workflow/no-such/node", model.NodeInsertRequest{
		ParentId: "p",
		Kind:     "action",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/event", map[string]any{"snapshot": map[string]any{}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/enrollment/welcome-sequence/unknown", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
