package event_test

import (
	"sync"
	"testing"

	"github.com/praxida/careflow/action"
	"github.com/praxida/careflow/engine"
	"github.com/praxida/careflow/event"
	"github.com/praxida/careflow/metadata"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence/inmem"
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

type intakeFixture struct {
	service  *metadata.Service
	intake   *event.Intake
	notifier *countingNotifier
	wg       *sync.WaitGroup
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	notifier := &countingNotifier{}
	registry := action.NewRegistry(action.Collaborators{Notifier: notifier})
	service := metadata.NewService(inmem.NewWorkflowStorage(), registry)
	markers := inmem.NewMarkerStore()
	runner := engine.NewRunner(service, inmem.NewEnrollmentStorage(), inmem.NewDelayQueue(4),
		markers, registry, engine.DefaultRetryPolicy())
	wg := &sync.WaitGroup{}
	return &intakeFixture{
		service:  service,
		intake:   event.NewIntake(service, runner, markers, wg, 16),
		notifier: notifier,
		wg:       wg,
	}
}

func (f *intakeFixture) createWorkflow(t *testing.T, name string, filterConfig map[string]any) {
	t.Helper()
	def, err := f.service.Create(model.WorkflowCreateRequest{
		Name:          name,
		TriggerType:   "patient_created",
		TriggerConfig: filterConfig,
	})
	require.NoError(t, err)

	nodeId, _, err := f.service.InsertNode(name, model.NodeInsertRequest{
		ParentId: def.Config.Nodes[0].Id,
		Kind:     "action",
	})
	require.NoError(t, err)
	_, err = f.service.UpdateNodePayload(name, nodeId, map[string]any{
		"user_id": "u1", "message": "new patient",
	})
	require.NoError(t, err)
	require.NoError(t, f.service.SetActive(name, true))
}

func (f *intakeFixture) process(t *testing.T, ev *model.Event) {
	t.Helper()
	require.NoError(t, f.intake.Process(ev))
	f.wg.Wait()
}

func TestIntakeEnrollsMatchingWorkflow(t *testing.T) {
	f := newIntakeFixture(t)
	f.createWorkflow(t, "welcome-sequence", map[string]any{"patient.source": "web"})

	f.process(t, &model.Event{
		Id:          "evt-1",
		TriggerType: "patient_created",
		Snapshot:    map[string]any{"patient": map[string]any{"source": "web"}},
	})
	require.Equal(t, 1, f.notifier.count())
}

func TestIntakeDeduplicatesEventInstances(t *testing.T) {
	f := newIntakeFixture(t)
	f.createWorkflow(t, "welcome-sequence", nil)

	ev := &model.Event{
		Id:          "evt-1",
		TriggerType: "patient_created",
		Snapshot:    map[string]any{},
	}
	f.process(t, ev)
	f.process(t, ev)
	require.Equal(t, 1, f.notifier.count())

	// a different event instance enrolls again
	f.process(t, &model.Event{Id: "evt-2", TriggerType: "patient_created", Snapshot: map[string]any{}})
	require.Equal(t, 2, f.notifier.count())
}

func TestIntakeSkipsNonMatchingEvents(t *testing.T) {
	f := newIntakeFixture(t)
	f.createWorkflow(t, "welcome-sequence", map[string]any{"patient.source": "web"})

	f.process(t, &model.Event{
		Id:          "evt-1",
		TriggerType: "patient_created",
		Snapshot:    map[string]any{"patient": map[string]any{"source": "referral"}},
	})
	require.Equal(t, 0, f.notifier.count())

	f.process(t, &model.Event{
		Id:          "evt-2",
		TriggerType: "deal_created",
		Snapshot:    map[string]any{"patient": map[string]any{"source": "web"}},
	})
	require.Equal(t, 0, f.notifier.count())
}

func TestIntakeSkipsInactiveWorkflows(t *testing.T) {
	f := newIntakeFixture(t)
	f.createWorkflow(t, "welcome-sequence", nil)
	require.NoError(t, f.service.SetActive("welcome-sequence", false))

	f.process(t, &model.Event{Id: "evt-1", TriggerType: "patient_created", Snapshot: map[string]any{}})
	require.Equal(t, 0, f.notifier.count())
}

func TestFilterMatches(t *testing.T) {
	snapshot := map[string]any{
		"patient": map[string]any{"source": "web", "age": float64(30)},
		"stage":   "intake",
	}
	for scenario, tc := range map[string]struct {
		filter map[string]any
		want   bool
	}{
		"empty filter matches all":  {map[string]any{}, true},
		"top level match":           {map[string]any{"stage": "intake"}, true},
		"nested match":              {map[string]any{"patient.source": "web"}, true},
		"numeric value match":       {map[string]any{"patient.age": float64(30)}, true},
		"value mismatch":            {map[string]any{"stage": "done"}, false},
		"missing key":               {map[string]any{"patient.owner": "x"}, false},
		"one of two keys mismatch":  {map[string]any{"stage": "intake", "patient.source": "ads"}, false},
		"all keys must match":       {map[string]any{"stage": "intake", "patient.source": "web"}, true},
	} {
		t.Run(scenario, func(t *testing.T) {
			require.Equal(t, tc.want, event.FilterMatches(tc.filter, snapshot))
		})
	}
}
