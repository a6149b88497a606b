package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/praxida/careflow/action"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
)

var _ action.Scheduler = new(wakeupScheduler)

// wakeupScheduler registers future invocations on the delay queue. It also
// stamps the enrollment's scheduledResumeAt so the suspension is visible
// before the enrollment is persisted.
type wakeupScheduler struct {
	delayQueue persistence.DelayQueue
}

func newWakeupScheduler(delayQueue persistence.DelayQueue) *wakeupScheduler {
	return &wakeupScheduler{delayQueue: delayQueue}
}

func (s *wakeupScheduler) schedule(kind model.WakeupKind, enrollment *model.Enrollment, nodeId string, fireAt time.Time) error {
	wakeup := &model.Wakeup{
		Id:           uuid.New().String(),
		Kind:         kind,
		WorkflowName: enrollment.WorkflowName,
		EnrollmentId: enrollment.Id,
		NodeId:       nodeId,
	}
	enrollment.ScheduledResumeAt = fireAt.UnixMilli()
	return s.delayQueue.Push(wakeup, fireAt)
}

func (s *wakeupScheduler) ScheduleActionWakeup(enrollment *model.Enrollment, nodeId string, fireAt time.Time) error {
	return s.schedule(model.WAKEUP_ACTION, enrollment, nodeId, fireAt)
}
