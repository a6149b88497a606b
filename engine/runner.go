package engine

import (
	"fmt"
	"time"

	"github.com/praxida/careflow/action"
	"github.com/praxida/careflow/condition"
	"github.com/praxida/careflow/graph"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/util"
	"go.uber.org/zap"
)

// DefinitionSource resolves the immutable graph an enrollment is bound to.
type DefinitionSource interface {
	GetGraph(name string, version int) (*graph.Graph, error)
}

type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  30 * time.Second,
		MaxDelay:   10 * time.Minute,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Runner drives enrollments through their workflow graph. Enrollments are
// independent; within one enrollment steps are strictly sequential. The
// only suspension point is a scheduled wakeup, and every wakeup is consumed
// at most once regardless of redelivery.
type Runner struct {
	definitions DefinitionSource
	enrollments persistence.EnrollmentStorage
	markers     persistence.MarkerStore
	scheduler   *wakeupScheduler
	registry    *action.Registry
	retryPolicy RetryPolicy
	clock       func() time.Time
}

func NewRunner(definitions DefinitionSource, enrollments persistence.EnrollmentStorage,
	delayQueue persistence.DelayQueue, markers persistence.MarkerStore,
	registry *action.Registry, retryPolicy RetryPolicy) *Runner {
	return &Runner{
		definitions: definitions,
		enrollments: enrollments,
		markers:     markers,
		scheduler:   newWakeupScheduler(delayQueue),
		registry:    registry,
		retryPolicy: retryPolicy,
		clock:       time.Now,
	}
}

// WithClock overrides the runner's clock. Test hook.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Start persists a fresh enrollment and runs it until it completes, fails,
// or suspends on a scheduled wakeup.
func (r *Runner) Start(enrollment *model.Enrollment) error {
	g, err := r.definitions.GetGraph(enrollment.WorkflowName, enrollment.WorkflowVersion)
	if err != nil {
		return err
	}
	enrollment.State = model.RUNNING
	if err := r.enrollments.Save(enrollment); err != nil {
		return err
	}
	logger.Info("enrollment started", zap.String("workflow", enrollment.WorkflowName), zap.String("id", enrollment.Id))
	r.run(enrollment, g)
	return nil
}

// HandleWakeup resumes a suspended enrollment. The wakeup id is consumed
// through the marker store first, so an at-least-once delivery that repeats
// a wakeup is a no-op.
func (r *Runner) HandleWakeup(wakeup *model.Wakeup) error {
	fresh, err := r.markers.MarkOnce(persistence.MARKER_WAKEUP_CONSUMED, wakeup.Id)
	if err != nil {
		return err
	}
	if !fresh {
		logger.Debug("wakeup already consumed", zap.String("wakeupId", wakeup.Id))
		return nil
	}
	enrollment, err := r.enrollments.Get(wakeup.WorkflowName, wakeup.EnrollmentId)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			return nil
		}
		return err
	}
	if enrollment.State.Terminal() {
		logger.Debug("wakeup for terminal enrollment ignored", zap.String("id", enrollment.Id))
		return nil
	}
	g, err := r.definitions.GetGraph(enrollment.WorkflowName, enrollment.WorkflowVersion)
	if err != nil {
		return err
	}
	switch wakeup.Kind {
	case model.WAKEUP_DELAY:
		// the cursor already moved past the delay node when it suspended
		enrollment.State = model.RUNNING
		enrollment.ScheduledResumeAt = 0
		r.run(enrollment, g)
	case model.WAKEUP_ACTION, model.WAKEUP_RETRY:
		if wakeup.NodeId != enrollment.Cursor {
			logger.Debug("stale wakeup for moved cursor ignored",
				zap.String("id", enrollment.Id), zap.String("node", wakeup.NodeId))
			return nil
		}
		enrollment.State = model.RUNNING
		enrollment.ScheduledResumeAt = 0
		node, err := g.Get(wakeup.NodeId)
		if err != nil {
			r.markFailed(enrollment, err)
			return nil
		}
		resumed := wakeup.Kind == model.WAKEUP_ACTION
		if r.executeAction(enrollment, node, resumed) {
			r.run(enrollment, g)
		}
	default:
		logger.Error("unknown wakeup kind", zap.String("kind", string(wakeup.Kind)))
	}
	return nil
}

// run advances the enrollment node by node until a terminal state or a
// suspension. The cursor always identifies the next node to resolve.
func (r *Runner) run(enrollment *model.Enrollment, g *graph.Graph) {
	for {
		if enrollment.State != model.RUNNING {
			return
		}
		if len(enrollment.Cursor) == 0 {
			r.markCompleted(enrollment)
			return
		}
		node, err := g.Get(enrollment.Cursor)
		if err != nil {
			r.markFailed(enrollment, err)
			return
		}
		switch node.Kind {
		case model.NODE_KIND_TRIGGER:
			enrollment.Cursor = node.Next
		case model.NODE_KIND_CONDITION:
			payload, err := model.DecodeConditionPayload(node.Data)
			if err != nil {
				r.markFailed(enrollment, err)
				return
			}
			// always the original fact snapshot: branch decisions must
			// not shift mid-flight
			if condition.Evaluate(payload.Field, payload.Operator, payload.Value, enrollment.FactSnapshot) {
				enrollment.Cursor = node.TrueNext
			} else {
				enrollment.Cursor = node.FalseNext
			}
		case model.NODE_KIND_DELAY:
			payload, err := model.DecodeDelayPayload(node.Data)
			if err != nil {
				r.markFailed(enrollment, err)
				return
			}
			enrollment.Cursor = node.Next
			fireAt := r.clock().Add(delayDuration(payload))
			if err := r.scheduler.schedule(model.WAKEUP_DELAY, enrollment, node.Id, fireAt); err != nil {
				r.markFailed(enrollment, err)
				return
			}
			r.markWaitingDelay(enrollment)
			return
		case model.NODE_KIND_ACTION:
			if !r.executeAction(enrollment, node, false) {
				return
			}
		default:
			r.markFailed(enrollment, fmt.Errorf("unknown node kind %s", node.Kind))
			return
		}
	}
}

// executeAction resolves and dispatches one action node. It returns true
// when the cursor advanced and the loop should continue, false when the
// enrollment suspended or terminated. On a scheduled outcome the cursor
// stays on the node so the wakeup continues past it without re-executing.
func (r *Runner) executeAction(enrollment *model.Enrollment, node *model.Node, resumed bool) bool {
	payload, err := model.DecodeActionPayload(node.Data)
	if err != nil {
		r.markFailed(enrollment, err)
		return false
	}
	resolved := &model.ActionPayload{
		ActionType: payload.ActionType,
		Config:     util.ResolveConfigParams(payload.Config, enrollment.FactSnapshot),
	}
	ctx := action.ExecutionContext{
		Enrollment: enrollment,
		NodeId:     node.Id,
		Fact:       enrollment.FactSnapshot,
		Now:        r.clock(),
		Resumed:    resumed,
		Scheduler:  r.scheduler,
	}
	outcome, err := r.registry.Execute(ctx, resolved)
	if err != nil {
		if action.IsTransient(err) {
			r.retryOrFail(enrollment, node, resumed, err)
			return false
		}
		r.markFailed(enrollment, err)
		return false
	}
	if outcome == action.OUTCOME_SCHEDULED {
		r.markWaitingDelay(enrollment)
		return false
	}
	if enrollment.RetryCounts != nil {
		delete(enrollment.RetryCounts, node.Id)
	}
	enrollment.Cursor = node.Next
	return true
}

// retryOrFail schedules a backoff retry for a transient failure, failing
// the enrollment once the attempt budget is spent. A retry of a scheduled
// invocation keeps the action wakeup kind so the landing semantics survive.
func (r *Runner) retryOrFail(enrollment *model.Enrollment, node *model.Node, resumed bool, cause error) {
	attempt := enrollment.IncrRetryCount(node.Id)
	if attempt > r.retryPolicy.MaxRetries {
		logger.Error("action retries exhausted", zap.String("workflow", enrollment.WorkflowName),
			zap.String("id", enrollment.Id), zap.String("node", node.Id), zap.Error(cause))
		r.markFailed(enrollment, cause)
		return
	}
	kind := model.WAKEUP_RETRY
	if resumed {
		kind = model.WAKEUP_ACTION
	}
	fireAt := r.clock().Add(r.retryPolicy.backoff(attempt))
	logger.Info("retrying action", zap.String("workflow", enrollment.WorkflowName),
		zap.String("id", enrollment.Id), zap.String("node", node.Id),
		zap.Int("attempt", attempt), zap.Time("at", fireAt), zap.Error(cause))
	if err := r.scheduler.schedule(kind, enrollment, node.Id, fireAt); err != nil {
		r.markFailed(enrollment, err)
		return
	}
	r.markWaitingDelay(enrollment)
}

func (r *Runner) markCompleted(enrollment *model.Enrollment) {
	enrollment.State = model.COMPLETED
	enrollment.ScheduledResumeAt = 0
	if err := r.enrollments.Save(enrollment); err != nil {
		logger.Error("error saving completed enrollment", zap.String("id", enrollment.Id), zap.Error(err))
		return
	}
	logger.Info("enrollment completed", zap.String("workflow", enrollment.WorkflowName), zap.String("id", enrollment.Id))
}

func (r *Runner) markFailed(enrollment *model.Enrollment, cause error) {
	enrollment.State = model.FAILED
	enrollment.ScheduledResumeAt = 0
	if err := r.enrollments.Save(enrollment); err != nil {
		logger.Error("error saving failed enrollment", zap.String("id", enrollment.Id), zap.Error(err))
		return
	}
	logger.Error("enrollment failed", zap.String("workflow", enrollment.WorkflowName),
		zap.String("id", enrollment.Id), zap.Error(cause))
}

func (r *Runner) markWaitingDelay(enrollment *model.Enrollment) {
	enrollment.State = model.WAITING_DELAY
	if err := r.enrollments.Save(enrollment); err != nil {
		logger.Error("error saving waiting enrollment", zap.String("id", enrollment.Id), zap.Error(err))
		return
	}
	logger.Info("enrollment waiting", zap.String("workflow", enrollment.WorkflowName),
		zap.String("id", enrollment.Id), zap.Int64("resumeAt", enrollment.ScheduledResumeAt))
}

func delayDuration(payload *model.DelayPayload) time.Duration {
	switch payload.Unit {
	case model.DELAY_UNIT_MINUTES:
		return time.Duration(payload.Amount) * time.Minute
	case model.DELAY_UNIT_HOURS:
		return time.Duration(payload.Amount) * time.Hour
	case model.DELAY_UNIT_DAYS:
		return time.Duration(payload.Amount) * 24 * time.Hour
	}
	return 0
}
