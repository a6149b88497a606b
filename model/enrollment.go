package model

type EnrollmentState int

const RUNNING EnrollmentState = 1
const WAITING_DELAY EnrollmentState = 2
const COMPLETED EnrollmentState = 3
const FAILED EnrollmentState = 4

func (s EnrollmentState) String() string {
	switch s {
	case RUNNING:
		return "RUNNING"
	case WAITING_DELAY:
		return "WAITING_DELAY"
	case COMPLETED:
		return "COMPLETED"
	case FAILED:
		return "FAILED"
	}
	return "UNDEFINED"
}

func (s EnrollmentState) Terminal() bool {
	return s == COMPLETED || s == FAILED
}

// Enrollment is one in-flight execution of a workflow version for a single
// triggering event instance. FactSnapshot is frozen at enrollment time and
// is the only input to condition evaluation for the enrollment's lifetime.
type Enrollment struct {
	Id                string          `json:"id"`
	WorkflowName      string          `json:"workflowName"`
	WorkflowVersion   int             `json:"workflowVersion"`
	EventId           string          `json:"eventId"`
	FactSnapshot      map[string]any  `json:"factSnapshot"`
	Cursor            string          `json:"cursor"`
	State             EnrollmentState `json:"state"`
	ScheduledResumeAt int64           `json:"scheduledResumeAt,omitempty"`
	Occurrences       map[string]int  `json:"occurrences,omitempty"`
	RetryCounts       map[string]int  `json:"retryCounts,omitempty"`
}

func (e *Enrollment) OccurrenceCount(nodeId string) int {
	if e.Occurrences == nil {
		return 0
	}
	return e.Occurrences[nodeId]
}

func (e *Enrollment) IncrOccurrence(nodeId string) int {
	if e.Occurrences == nil {
		e.Occurrences = make(map[string]int)
	}
	e.Occurrences[nodeId] = e.Occurrences[nodeId] + 1
	return e.Occurrences[nodeId]
}

func (e *Enrollment) RetryCount(nodeId string) int {
	if e.RetryCounts == nil {
		return 0
	}
	return e.RetryCounts[nodeId]
}

func (e *Enrollment) IncrRetryCount(nodeId string) int {
	if e.RetryCounts == nil {
		e.RetryCounts = make(map[string]int)
	}
	e.RetryCounts[nodeId] = e.RetryCounts[nodeId] + 1
	return e.RetryCounts[nodeId]
}

type EnrollmentView struct {
	Id                string         `json:"id"`
	WorkflowName      string         `json:"workflowName"`
	WorkflowVersion   int            `json:"workflowVersion"`
	State             string         `json:"state"`
	Cursor            string         `json:"cursor,omitempty"`
	ScheduledResumeAt int64          `json:"scheduledResumeAt,omitempty"`
	Occurrences       map[string]int `json:"occurrences,omitempty"`
}
