package action

import (
	"errors"
	"fmt"
	"time"

	"github.com/praxida/careflow/model"
)

type Outcome int

const OUTCOME_DONE Outcome = 1
const OUTCOME_SCHEDULED Outcome = 2

// ConfigError marks a misconfigured action. It is fatal for the enrollment:
// no retry will fix a missing field or an unknown type.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("action config error: %s", e.Message)
}

func NewConfigError(format string, args ...any) ConfigError {
	return ConfigError{Message: fmt.Sprintf(format, args...)}
}

// TransientError marks a collaborator failure worth retrying with backoff.
type TransientError struct {
	Message string
}

func (e TransientError) Error() string {
	return fmt.Sprintf("transient action error: %s", e.Message)
}

func NewTransientError(format string, args ...any) TransientError {
	return TransientError{Message: fmt.Sprintf(format, args...)}
}

func IsTransient(err error) bool {
	var transient TransientError
	return errors.As(err, &transient)
}

// Scheduler registers a future invocation of an action node. Implemented by
// the engine's wakeup scheduler; delivery is at-least-once.
type Scheduler interface {
	ScheduleActionWakeup(enrollment *model.Enrollment, nodeId string, fireAt time.Time) error
}

// ExecutionContext carries everything a handler may consult. Fact is the
// enrollment's frozen snapshot; Resumed is true when this invocation is the
// landing of a previously scheduled wakeup for the same node.
type ExecutionContext struct {
	Enrollment *model.Enrollment
	NodeId     string
	Fact       map[string]any
	Now        time.Time
	Resumed    bool
	Scheduler  Scheduler
}

// Handler executes one action type. Config arrives with {$.path} templates
// already resolved against the fact snapshot.
type Handler interface {
	Type() string
	Validate(config map[string]any) error
	Execute(ctx ExecutionContext, config map[string]any) (Outcome, error)
}
