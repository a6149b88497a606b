package persistence

import (
	"fmt"
	"time"

	"github.com/praxida/careflow/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage error: %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// WorkflowStorage persists whole workflow definitions. Saves are append-only
// versions; a stored version is never mutated. The active flag lives beside
// the versions and gates new enrollments only.
type WorkflowStorage interface {
	Save(def *model.WorkflowDefinition) (*model.WorkflowDefinition, error)
	Get(name string, version int) (*model.WorkflowDefinition, error)
	GetLatest(name string) (*model.WorkflowDefinition, error)
	SetActive(name string, active bool) error
	ListLatest() ([]*model.WorkflowDefinition, error)
	Delete(name string) error
}

type EnrollmentStorage interface {
	Save(enrollment *model.Enrollment) error
	Get(workflowName string, id string) (*model.Enrollment, error)
	Delete(workflowName string, id string) error
}

// DelayQueue holds scheduled wakeups ordered by due time, partitioned by
// enrollment so pollers can drain partitions independently. Delivery is
// at-least-once; consumers must dedupe on the wakeup id.
type DelayQueue interface {
	Push(wakeup *model.Wakeup, fireAt time.Time) error
	PopDue(partition int, batchSize int) ([]*model.Wakeup, error)
	Partitions() int
}

// MarkerStore is a set-once registry used for wakeup consumption and
// enrollment dedup markers. MarkOnce returns true only for the first caller
// of a given key.
type MarkerStore interface {
	MarkOnce(kind string, key string) (bool, error)
}

const MARKER_WAKEUP_CONSUMED string = "wakeup"
const MARKER_ENROLLMENT string = "enrollment"
