// Package event receives CRM domain events and enrolls matching workflows.
package event

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/oliveagle/jsonpath"
	"github.com/praxida/careflow/engine"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/metadata"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/util"
	"go.uber.org/zap"
)

// Intake matches incoming events against active workflow definitions and
// starts enrollments. Matching is per trigger type plus the trigger's
// filter config; one event instance enrolls a workflow at most once.
type Intake struct {
	metadataService *metadata.Service
	runner          *engine.Runner
	markers         persistence.MarkerStore
	worker          *util.Worker
	wg              *sync.WaitGroup
}

func NewIntake(metadataService *metadata.Service, runner *engine.Runner,
	markers persistence.MarkerStore, wg *sync.WaitGroup, capacity int) *Intake {
	intake := &Intake{
		metadataService: metadataService,
		runner:          runner,
		markers:         markers,
		wg:              wg,
	}
	intake.worker = util.NewWorker("event-intake", wg, intake.handle, capacity)
	return intake
}

func (i *Intake) Start() {
	i.worker.Start()
}

func (i *Intake) Stop() {
	i.worker.Stop()
}

// Submit queues an event for asynchronous processing.
func (i *Intake) Submit(event *model.Event) {
	if len(event.Id) == 0 {
		event.Id = uuid.New().String()
	}
	i.worker.Sender() <- event
}

func (i *Intake) handle(task util.Task) error {
	event, ok := task.(*model.Event)
	if !ok {
		return fmt.Errorf("unexpected task type %T", task)
	}
	return i.Process(event)
}

// Process enrolls every active workflow whose trigger matches the event.
// Each enrollment binds the latest definition version at match time and
// runs independently of its siblings.
func (i *Intake) Process(event *model.Event) error {
	defs, err := i.metadataService.ListLatest()
	if err != nil {
		return err
	}
	for _, def := range defs {
		if !def.Active {
			continue
		}
		if !strings.EqualFold(def.TriggerType, event.TriggerType) {
			continue
		}
		g, err := i.metadataService.GetGraph(def.Name, def.Version)
		if err != nil {
			logger.Error("skipping unservable workflow", zap.String("name", def.Name), zap.Error(err))
			continue
		}
		trigger, err := g.Get(g.TriggerId())
		if err != nil {
			continue
		}
		payload, err := model.DecodeTriggerPayload(trigger.Data)
		if err != nil {
			logger.Error("skipping workflow with bad trigger payload", zap.String("name", def.Name), zap.Error(err))
			continue
		}
		if !FilterMatches(payload.FilterConfig, event.Snapshot) {
			continue
		}
		fresh, err := i.markers.MarkOnce(persistence.MARKER_ENROLLMENT, def.Name+":"+event.Id)
		if err != nil {
			logger.Error("error checking enrollment marker", zap.String("name", def.Name), zap.Error(err))
			continue
		}
		if !fresh {
			logger.Debug("event already enrolled workflow", zap.String("name", def.Name), zap.String("eventId", event.Id))
			continue
		}
		enrollment := &model.Enrollment{
			Id:              uuid.New().String(),
			WorkflowName:    def.Name,
			WorkflowVersion: def.Version,
			EventId:         event.Id,
			FactSnapshot:    event.Snapshot,
			Cursor:          trigger.Next,
			State:           model.RUNNING,
		}
		i.wg.Add(1)
		go func(e *model.Enrollment) {
			defer i.wg.Done()
			if err := i.runner.Start(e); err != nil {
				logger.Error("error starting enrollment", zap.String("workflow", e.WorkflowName),
					zap.String("id", e.Id), zap.Error(err))
			}
		}(enrollment)
	}
	return nil
}

// FilterMatches compares every filter key, resolved as a dotted path in the
// event snapshot, against the configured value. An empty filter matches
// everything.
func FilterMatches(filterConfig map[string]any, snapshot map[string]any) bool {
	for field, expected := range filterConfig {
		path := field
		if !strings.HasPrefix(path, "$") {
			path = "$." + path
		}
		actual, err := jsonpath.JsonPathLookup(snapshot, path)
		if err != nil {
			return false
		}
		if fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected) {
			return false
		}
	}
	return true
}
